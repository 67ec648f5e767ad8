package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zaka-ai/paperpush/arxiv"
	"github.com/zaka-ai/paperpush/config"
	"github.com/zaka-ai/paperpush/errs"
	"github.com/zaka-ai/paperpush/formatter"
	"github.com/zaka-ai/paperpush/store"
	"github.com/zaka-ai/paperpush/summarizer"
)

type fakeSource struct {
	papers    []arxiv.Paper
	fetchErr  error
	calls     int
	downloads int
}

func (f *fakeSource) RecentInCategory(_ context.Context, _ string, _, _ int) ([]arxiv.Paper, error) {
	f.calls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.papers, nil
}

func (f *fakeSource) DownloadPDF(_ context.Context, p *arxiv.Paper, dir string) (string, error) {
	f.downloads++
	return filepath.Join(dir, p.FileStem()+".pdf"), nil
}

type fakeGenerator struct {
	failFor map[string]error // paper ID -> forced error
	calls   int
}

func (f *fakeGenerator) Comprehensive(_ context.Context, p *arxiv.Paper) (*summarizer.Bundle, error) {
	f.calls++
	if err := f.failFor[p.ID]; err != nil {
		return nil, err
	}
	return &summarizer.Bundle{
		Summary:          "摘要:" + p.ID,
		Highlights:       "亮点:" + p.ID,
		Implications:     "意义:" + p.ID,
		TechnicalDetails: "细节:" + p.ID,
	}, nil
}

type memLedger struct {
	done   map[string]bool
	failed map[string]string
}

func newMemLedger() *memLedger {
	return &memLedger{done: make(map[string]bool), failed: make(map[string]string)}
}

func (m *memLedger) IsProcessed(_ context.Context, id string) (bool, error) {
	return m.done[id], nil
}

func (m *memLedger) MarkProcessed(_ context.Context, rec store.Record) error {
	m.done[rec.PaperID] = true
	delete(m.failed, rec.PaperID)
	return nil
}

func (m *memLedger) MarkFailed(_ context.Context, id, _ string, cause error) error {
	m.failed[id] = cause.Error()
	return nil
}

func nPapers(n int) []arxiv.Paper {
	papers := make([]arxiv.Paper, n)
	for i := range papers {
		papers[i] = arxiv.Paper{
			ID:              fmt.Sprintf("2301.0000%d", i+1),
			Title:           fmt.Sprintf("Paper Number %d", i+1),
			Authors:         []string{"Ada Lovelace"},
			Abstract:        "An abstract.",
			PDFURL:          fmt.Sprintf("https://arxiv.org/pdf/2301.0000%d.pdf", i+1),
			PrimaryCategory: "cs.AI",
			Categories:      []string{"cs.AI"},
			Published:       time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		}
	}
	return papers
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		OpenAI:   config.OpenAIConfig{APIKey: "sk-test", Model: "gpt-3.5-turbo"},
		Crawler:  config.CrawlerConfig{MaxPapersPerDay: 5, DaysToCrawl: 7},
		Schedule: config.ScheduleConfig{Time: "10:00"},
		Output: config.OutputConfig{
			Dir:    dir,
			LogDir: filepath.Join(dir, "logs"),
			DBPath: filepath.Join(dir, "test.db"),
		},
	}
}

func newTestPipeline(t *testing.T, cfg *config.Config, src *fakeSource, gen *fakeGenerator, ledger Ledger) (*Pipeline, *bytes.Buffer) {
	t.Helper()
	fm, err := formatter.New(cfg.Output, nil)
	if err != nil {
		t.Fatal(err)
	}
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))
	return New(cfg, src, gen, fm, ledger, logger), &logBuf
}

func TestDailyTaskIsolatesFailures(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{papers: nPapers(4)}
	gen := &fakeGenerator{failFor: map[string]error{
		"2301.00002": errs.Errorf(errs.KindGeneration, "summarizer.summary", "rate limited"),
	}}
	ledger := newMemLedger()
	p, logBuf := newTestPipeline(t, cfg, src, gen, ledger)

	if err := p.DailyTask(context.Background()); err != nil {
		t.Fatalf("DailyTask should not propagate a single paper's failure: %v", err)
	}

	if gen.calls != 4 {
		t.Errorf("all 4 papers should be attempted, got %d", gen.calls)
	}
	if len(ledger.done) != 3 {
		t.Errorf("processed = %d, want 3", len(ledger.done))
	}
	if _, ok := ledger.failed["2301.00002"]; !ok {
		t.Error("failing paper should be recorded as failed")
	}

	logs := logBuf.String()
	if !strings.Contains(logs, "paper processing failed") {
		t.Error("failure should be logged")
	}
	if !strings.Contains(logs, "Paper Number 2") {
		t.Error("failure log should identify the paper by title")
	}
	if !strings.Contains(logs, "kind=generation") {
		t.Error("failure log should carry the error kind")
	}
}

func TestDailyTaskEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{papers: nPapers(2)}
	gen := &fakeGenerator{}
	p, logBuf := newTestPipeline(t, cfg, src, gen, newMemLedger())

	if err := p.DailyTask(context.Background()); err != nil {
		t.Fatal(err)
	}

	// 2 papers x 2 platforms = 4 rendered markdown files.
	files, err := filepath.Glob(filepath.Join(cfg.Output.Dir, "*.md"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 4 {
		t.Fatalf("got %d .md files, want 4: %v", len(files), files)
	}
	for _, f := range files {
		base := filepath.Base(f)
		if !strings.HasSuffix(base, "_20230102.md") {
			t.Errorf("file %q does not match the naming scheme", base)
		}
		if !strings.HasPrefix(base, "wechat_") && !strings.HasPrefix(base, "xiaohongshu_") {
			t.Errorf("file %q has an unknown platform prefix", base)
		}
	}

	if got := strings.Count(logBuf.String(), "successfully processed paper"); got != 2 {
		t.Errorf("success log entries = %d, want 2", got)
	}
}

func TestDailyTaskSkipsProcessedPapers(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{papers: nPapers(2)}
	gen := &fakeGenerator{}
	ledger := newMemLedger()
	ledger.done["2301.00001"] = true
	p, logBuf := newTestPipeline(t, cfg, src, gen, ledger)

	if err := p.DailyTask(context.Background()); err != nil {
		t.Fatal(err)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d, want 1 (first paper already processed)", gen.calls)
	}
	if !strings.Contains(logBuf.String(), "skipping already processed paper") {
		t.Error("skip should be logged")
	}
}

func TestDailyTaskFetchFailure(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{fetchErr: errs.Errorf(errs.KindFetch, "arxiv.search", "http 503")}
	gen := &fakeGenerator{}
	p, _ := newTestPipeline(t, cfg, src, gen, nil)

	err := p.DailyTask(context.Background())
	if err == nil {
		t.Fatal("DailyTask should fail when the fetch fails")
	}
	if !errs.IsKind(err, errs.KindFetch) {
		t.Errorf("error kind = %v, want fetch", errs.KindOf(err))
	}
	if gen.calls != 0 {
		t.Error("no paper should be processed after a fetch failure")
	}
}

func TestProcessPaperDownloadsPDFWhenEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Crawler.DownloadPDF = true
	src := &fakeSource{}
	gen := &fakeGenerator{}
	p, _ := newTestPipeline(t, cfg, src, gen, nil)

	paper := nPapers(1)[0]
	paths, err := p.ProcessPaper(context.Background(), &paper)
	if err != nil {
		t.Fatal(err)
	}
	if paths["pdf"] == "" {
		t.Error("artifact map should include the pdf path")
	}
	if src.downloads != 1 {
		t.Errorf("downloads = %d, want 1", src.downloads)
	}
	for _, platform := range []string{"wechat", "xiaohongshu"} {
		if paths[platform] == "" {
			t.Errorf("artifact map missing %s", platform)
		}
	}
}

func TestProcessPaperWrapsUnknownErrors(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{}
	gen := &fakeGenerator{failFor: map[string]error{
		"2301.00001": errors.New("unexpected"),
	}}
	p, _ := newTestPipeline(t, cfg, src, gen, nil)

	paper := nPapers(1)[0]
	_, err := p.ProcessPaper(context.Background(), &paper)
	if err == nil {
		t.Fatal("ProcessPaper should fail")
	}
	if errs.KindOf(err) != errs.KindPipeline {
		t.Errorf("unanticipated failures should surface as pipeline errors, got %v", errs.KindOf(err))
	}
}

func TestRunOnceFailsFastOnInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.OpenAI.APIKey = ""
	src := &fakeSource{papers: nPapers(1)}
	p, _ := newTestPipeline(t, cfg, src, &fakeGenerator{}, nil)

	err := p.RunOnce(context.Background())
	if err == nil {
		t.Fatal("RunOnce should fail without an API key")
	}
	if src.calls != 0 {
		t.Errorf("no network call may be attempted before validation, got %d", src.calls)
	}
}

func TestStartupCreatesDirectories(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Dir = filepath.Join(t.TempDir(), "fresh", "out")
	cfg.Output.LogDir = filepath.Join(cfg.Output.Dir, "logs")
	src := &fakeSource{}
	p, _ := newTestPipeline(t, cfg, src, &fakeGenerator{}, nil)

	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, dir := range []string{cfg.Output.Dir, filepath.Join(cfg.Output.Dir, "papers"), cfg.Output.LogDir} {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			t.Errorf("directory %s not created", dir)
		}
	}
}
