// Package summarizer turns a paper's metadata into the four text artifacts
// used by the content formatter: summary, highlights, implications and
// technical details.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/zaka-ai/paperpush/arxiv"
	"github.com/zaka-ai/paperpush/errs"
)

// Bundle aggregates the four independently generated artifacts for one paper.
// All four fields are always populated; a partial bundle is never returned.
type Bundle struct {
	Summary          string
	Highlights       string
	Implications     string
	TechnicalDetails string
}

// Generator issues the four generation operations against an LLMClient.
type Generator struct {
	llm LLMClient
	log *slog.Logger
}

// New returns a Generator. The logger may be nil.
func New(llm LLMClient, log *slog.Logger) (*Generator, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Generator{llm: llm, log: log}, nil
}

// Content builds the normalized prompt body for a paper:
// title, authors and abstract concatenated into one string.
func Content(p *arxiv.Paper) string {
	var sb strings.Builder
	sb.WriteString("标题：" + p.Title + "\n")
	sb.WriteString("作者：" + p.AuthorList() + "\n")
	sb.WriteString("摘要：" + p.Abstract + "\n")
	return sb.String()
}

// Summary generates the short summary artifact for the given paper content.
func (g *Generator) Summary(ctx context.Context, content string) (string, error) {
	return g.generate(ctx, "summarizer.summary", summaryPrompt(content))
}

// Highlights generates the research-highlights artifact.
func (g *Generator) Highlights(ctx context.Context, content string) (string, error) {
	return g.generate(ctx, "summarizer.highlights", highlightsPrompt(content))
}

// Implications generates the research-implications artifact.
func (g *Generator) Implications(ctx context.Context, content string) (string, error) {
	return g.generate(ctx, "summarizer.implications", implicationsPrompt(content))
}

// TechnicalDetails generates the technical-details artifact.
func (g *Generator) TechnicalDetails(ctx context.Context, content string) (string, error) {
	return g.generate(ctx, "summarizer.technical_details", technicalPrompt(content))
}

// Comprehensive runs all four generations against the same paper content and
// returns the complete bundle. The sub-calls run concurrently; if any one
// fails the whole bundle fails and no partial result is returned.
func (g *Generator) Comprehensive(ctx context.Context, p *arxiv.Paper) (*Bundle, error) {
	content := Content(p)

	var b Bundle
	eg, ctx := errgroup.WithContext(ctx)
	for _, part := range []struct {
		dst string
		out *string
		run func(context.Context, string) (string, error)
	}{
		{"summary", &b.Summary, g.Summary},
		{"highlights", &b.Highlights, g.Highlights},
		{"implications", &b.Implications, g.Implications},
		{"technical_details", &b.TechnicalDetails, g.TechnicalDetails},
	} {
		part := part
		eg.Go(func() error {
			text, err := part.run(ctx, content)
			if err != nil {
				return err
			}
			*part.out = text
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	g.log.Info("generated summary bundle", "paper", p.ID)
	return &b, nil
}

func (g *Generator) generate(ctx context.Context, op, prompt string) (string, error) {
	text, err := g.llm.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return "", errs.E(errs.KindGeneration, op, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errs.E(errs.KindGeneration, op, fmt.Errorf("model returned empty completion"))
	}
	return text, nil
}
