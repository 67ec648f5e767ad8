package summarizer

import "fmt"

// The four generation operations each use a fixed instruction template.
// Prompt construction is deterministic given the paper content.

const systemPrompt = "你是一个专业的学术论文摘要生成助手。"

const summaryInstruction = `请为以下论文生成一个简洁的摘要，包含主要观点和创新点：

%s

请用中文回答，控制在500字以内，并按照以下格式组织：
1. 研究背景
2. 主要方法
3. 创新点
4. 实验结果
5. 研究意义`

const highlightsInstruction = `请从以下论文中提炼3~5条研究亮点：

%s

请用中文回答，每条亮点一行，以"- "开头，每条不超过40字。`

const implicationsInstruction = `请分析以下论文的研究意义与潜在应用前景：

%s

请用中文回答，分"学术意义"和"应用前景"两段，总计不超过300字。`

const technicalInstruction = `请梳理以下论文的关键技术细节（方法框架、模型结构、实验设置）：

%s

请用中文回答，面向有技术背景的读者，使用要点列表，总计不超过400字。`

func summaryPrompt(content string) string {
	return fmt.Sprintf(summaryInstruction, content)
}

func highlightsPrompt(content string) string {
	return fmt.Sprintf(highlightsInstruction, content)
}

func implicationsPrompt(content string) string {
	return fmt.Sprintf(implicationsInstruction, content)
}

func technicalPrompt(content string) string {
	return fmt.Sprintf(technicalInstruction, content)
}
