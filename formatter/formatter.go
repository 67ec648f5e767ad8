// Package formatter renders a paper and its summary bundle into
// platform-specific articles and persists them to the output directory.
//
// Two platforms are built in: "wechat" (long-form newsletter) and
// "xiaohongshu" (short-form social post). The default templates are embedded;
// either can be overridden with a template file from configuration.
package formatter

import (
	"bytes"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/yuin/goldmark"

	"github.com/zaka-ai/paperpush/arxiv"
	"github.com/zaka-ai/paperpush/config"
	"github.com/zaka-ai/paperpush/errs"
	"github.com/zaka-ai/paperpush/summarizer"
)

//go:embed templates/*.md
var defaultTemplates embed.FS

// Platform names.
const (
	PlatformWechat      = "wechat"
	PlatformXiaohongshu = "xiaohongshu"
)

// requiredFields lists which bundle fields each platform's template consumes.
var requiredFields = map[string][]string{
	PlatformWechat:      {"summary", "implications"},
	PlatformXiaohongshu: {"highlights", "implications", "technical_details"},
}

// Formatter renders and saves platform articles.
type Formatter struct {
	outputDir string
	log       *slog.Logger
	templates map[string]*template.Template
}

// New builds a Formatter from the output configuration. Configured template
// paths override the embedded defaults when the file exists.
func New(cfg config.OutputConfig, log *slog.Logger) (*Formatter, error) {
	if log == nil {
		log = slog.Default()
	}
	f := &Formatter{
		outputDir: cfg.Dir,
		log:       log,
		templates: make(map[string]*template.Template),
	}

	overrides := map[string]string{
		PlatformWechat:      cfg.WechatTemplate,
		PlatformXiaohongshu: cfg.XiaohongshuTemplate,
	}
	for platform, override := range overrides {
		tmpl, err := loadTemplate(platform, override)
		if err != nil {
			return nil, errs.E(errs.KindFormat, "formatter.load_template", err)
		}
		f.templates[platform] = tmpl
	}
	return f, nil
}

func loadTemplate(platform, override string) (*template.Template, error) {
	text := ""
	if override != "" {
		data, err := os.ReadFile(override)
		if err != nil {
			return nil, fmt.Errorf("%s template %s: %w", platform, override, err)
		}
		text = string(data)
	} else {
		data, err := defaultTemplates.ReadFile("templates/" + platform + ".md")
		if err != nil {
			return nil, fmt.Errorf("embedded %s template: %w", platform, err)
		}
		text = string(data)
	}
	return template.New(platform).Option("missingkey=error").Parse(text)
}

// Platforms returns the supported platform names in stable order.
func (f *Formatter) Platforms() []string {
	names := make([]string, 0, len(f.templates))
	for name := range f.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// renderData is the template context for every platform.
type renderData struct {
	Paper      *arxiv.Paper
	Summary    *summarizer.Bundle
	Authors    string
	Categories string
	Published  string
}

// Render produces the article text for one platform. It fails for an unknown
// platform, an invalid paper, or a bundle missing a field the platform needs.
func (f *Formatter) Render(platform string, p *arxiv.Paper, b *summarizer.Bundle) (string, error) {
	const op = "formatter.render"

	tmpl, ok := f.templates[platform]
	if !ok {
		return "", errs.Errorf(errs.KindFormat, op, "unknown platform %q", platform)
	}
	if err := validate(platform, p, b); err != nil {
		return "", errs.E(errs.KindFormat, op, err)
	}

	data := renderData{
		Paper:      p,
		Summary:    b,
		Authors:    p.AuthorList(),
		Categories: p.CategoryList(),
		Published:  p.Published.Format("2006-01-02"),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errs.E(errs.KindFormat, op, err)
	}
	return buf.String(), nil
}

func validate(platform string, p *arxiv.Paper, b *summarizer.Bundle) error {
	if p == nil || strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("paper has no title")
	}
	if b == nil {
		return fmt.Errorf("summary bundle is nil")
	}
	fields := map[string]string{
		"summary":           b.Summary,
		"highlights":        b.Highlights,
		"implications":      b.Implications,
		"technical_details": b.TechnicalDetails,
	}
	for _, name := range requiredFields[platform] {
		if strings.TrimSpace(fields[name]) == "" {
			return fmt.Errorf("summary bundle missing %s", name)
		}
	}
	return nil
}

// Filename returns the deterministic output file name for a platform article:
// {platform}_{title truncated to 20 characters}_{YYYYMMDD}.md.
func (f *Formatter) Filename(platform string, p *arxiv.Paper) string {
	return platform + "_" + p.FileStem() + ".md"
}

// Save writes content into the output directory, creating it if absent,
// and returns the written path.
func (f *Formatter) Save(content, filename string) (string, error) {
	const op = "formatter.save"

	if err := os.MkdirAll(f.outputDir, 0755); err != nil {
		return "", errs.E(errs.KindFormat, op, err)
	}
	path := filepath.Join(f.outputDir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", errs.E(errs.KindFormat, op, err)
	}
	return path, nil
}

// RenderAndSaveAll renders and saves the article for every known platform and
// returns a platform→path map. If any platform fails the whole operation
// fails; files already written for earlier platforms are not rolled back.
func (f *Formatter) RenderAndSaveAll(p *arxiv.Paper, b *summarizer.Bundle) (map[string]string, error) {
	paths := make(map[string]string, len(f.templates))
	for _, platform := range f.Platforms() {
		content, err := f.Render(platform, p, b)
		if err != nil {
			return nil, err
		}
		path, err := f.Save(content, f.Filename(platform, p))
		if err != nil {
			return nil, err
		}
		paths[platform] = path

		if platform == PlatformWechat {
			f.writeHTMLPreview(p, content, path)
		}
	}
	return paths, nil
}

// writeHTMLPreview converts the wechat markdown to HTML next to the .md file.
// The preview is a convenience artifact; failure is logged, not fatal.
func (f *Formatter) writeHTMLPreview(p *arxiv.Paper, markdown, mdPath string) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		f.log.Warn("html preview failed", "paper", p.ID, "error", err)
		return
	}
	htmlPath := strings.TrimSuffix(mdPath, ".md") + ".html"
	if err := os.WriteFile(htmlPath, buf.Bytes(), 0644); err != nil {
		f.log.Warn("html preview failed", "paper", p.ID, "error", err)
	}
}
