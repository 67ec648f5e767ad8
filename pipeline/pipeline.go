// Package pipeline orchestrates the daily batch: fetch recent papers,
// generate summaries, render platform articles, save them, and optionally
// download the source PDFs.
//
// One paper's pipeline runs to completion before the next begins. A single
// paper's failure is logged and skipped; it never aborts the batch.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/zaka-ai/paperpush/arxiv"
	"github.com/zaka-ai/paperpush/config"
	"github.com/zaka-ai/paperpush/errs"
	"github.com/zaka-ai/paperpush/store"
	"github.com/zaka-ai/paperpush/summarizer"
)

// pollInterval is how often the run loop checks the schedule.
const pollInterval = time.Minute

// PaperSource fetches paper records and documents.
type PaperSource interface {
	RecentInCategory(ctx context.Context, category string, days, maxResults int) ([]arxiv.Paper, error)
	DownloadPDF(ctx context.Context, p *arxiv.Paper, dir string) (string, error)
}

// SummaryGenerator produces the summary bundle for one paper.
type SummaryGenerator interface {
	Comprehensive(ctx context.Context, p *arxiv.Paper) (*summarizer.Bundle, error)
}

// ContentFormatter renders and persists platform articles.
type ContentFormatter interface {
	RenderAndSaveAll(p *arxiv.Paper, b *summarizer.Bundle) (map[string]string, error)
}

// Ledger records processing outcomes for cross-run dedup. Optional.
type Ledger interface {
	IsProcessed(ctx context.Context, paperID string) (bool, error)
	MarkProcessed(ctx context.Context, rec store.Record) error
	MarkFailed(ctx context.Context, paperID, title string, cause error) error
}

// Pipeline wires the components together.
type Pipeline struct {
	cfg    *config.Config
	source PaperSource
	gen    SummaryGenerator
	fmt    ContentFormatter
	ledger Ledger
	log    *slog.Logger
	now    func() time.Time
}

// New builds a Pipeline. ledger may be nil to disable dedup.
func New(cfg *config.Config, source PaperSource, gen SummaryGenerator, f ContentFormatter, ledger Ledger, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		cfg:    cfg,
		source: source,
		gen:    gen,
		fmt:    f,
		ledger: ledger,
		log:    log,
		now:    time.Now,
	}
}

// ProcessPaper runs the full per-paper pipeline and returns the produced
// artifact paths keyed by platform (plus "pdf" when download is enabled).
// Any stage failure aborts this paper's processing; sub-steps are not retried.
func (p *Pipeline) ProcessPaper(ctx context.Context, paper *arxiv.Paper) (map[string]string, error) {
	bundle, err := p.gen.Comprehensive(ctx, paper)
	if err != nil {
		return nil, p.wrap(err)
	}

	paths, err := p.fmt.RenderAndSaveAll(paper, bundle)
	if err != nil {
		return nil, p.wrap(err)
	}

	if p.cfg.Crawler.DownloadPDF {
		dir := filepath.Join(p.cfg.Output.Dir, "papers")
		pdfPath, err := p.source.DownloadPDF(ctx, paper, dir)
		if err != nil {
			return nil, p.wrap(err)
		}
		paths["pdf"] = pdfPath
	}

	return paths, nil
}

// DailyTask fetches the configured window of recent papers and processes each
// one independently. A paper's failure is logged and recorded but never
// stops the rest of the batch. It returns an error only when the initial
// fetch fails, leaving nothing to process.
func (p *Pipeline) DailyTask(ctx context.Context) error {
	cr := p.cfg.Crawler
	papers, err := p.source.RecentInCategory(ctx, cr.Query, cr.DaysToCrawl, cr.MaxPapersPerDay)
	if err != nil {
		err = p.wrap(err)
		p.log.Error("fetch recent papers failed", "kind", errs.KindOf(err).String(), "error", err)
		return err
	}

	p.log.Info("daily batch started", "papers", len(papers), "window_days", cr.DaysToCrawl)

	processed, failed, skipped := 0, 0, 0
	for i := range papers {
		if ctx.Err() != nil {
			return p.wrap(ctx.Err())
		}
		paper := &papers[i]

		if p.alreadyProcessed(ctx, paper.ID) {
			p.log.Info("skipping already processed paper", "paper", paper.ID, "title", paper.Title)
			skipped++
			continue
		}

		paths, err := p.ProcessPaper(ctx, paper)
		if err != nil {
			failed++
			p.log.Error("paper processing failed",
				"paper", paper.ID,
				"title", paper.Title,
				"kind", errs.KindOf(err).String(),
				"error", err)
			p.recordFailure(ctx, paper, err)
			continue
		}

		processed++
		p.log.Info("successfully processed paper", "paper", paper.ID, "title", paper.Title)
		p.recordSuccess(ctx, paper, paths)
	}

	p.log.Info("daily batch finished", "processed", processed, "failed", failed, "skipped", skipped)
	return nil
}

// Run validates configuration, prepares directories, executes one batch
// immediately, then fires DailyTask at the configured time once per day.
// It blocks until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	sched, err := p.startup()
	if err != nil {
		return err
	}

	// Run once at startup, matching the scheduled behavior.
	if err := p.DailyTask(ctx); err != nil && ctx.Err() != nil {
		return err
	}

	p.log.Info("scheduler started", "at", p.cfg.Schedule.Time, "next", sched.Next())

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			now := p.now()
			if !sched.Due(now) {
				continue
			}
			if err := p.DailyTask(ctx); err != nil && ctx.Err() != nil {
				return err
			}
			sched.Advance(now)
			p.log.Info("next run scheduled", "next", sched.Next())
		}
	}
}

// RunOnce validates configuration, prepares directories and executes a single
// batch. Used by the -once flag.
func (p *Pipeline) RunOnce(ctx context.Context) error {
	if _, err := p.startup(); err != nil {
		return err
	}
	return p.DailyTask(ctx)
}

// startup validates the configuration and creates the output and log
// directories. A validation failure is fatal before any scheduling begins.
func (p *Pipeline) startup() (*Schedule, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, errs.E(errs.KindPipeline, "pipeline.startup", err)
	}
	for _, dir := range []string{p.cfg.Output.Dir, filepath.Join(p.cfg.Output.Dir, "papers"), p.cfg.Output.LogDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errs.E(errs.KindPipeline, "pipeline.startup", err)
		}
	}
	return NewSchedule(p.cfg.Schedule.Time, p.now())
}

// wrap relabels anything that is not already a taxonomy error as a pipeline
// error, so callers always observe one of the four kinds.
func (p *Pipeline) wrap(err error) error {
	if err == nil {
		return nil
	}
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	return errs.E(errs.KindPipeline, "pipeline", err)
}

func (p *Pipeline) alreadyProcessed(ctx context.Context, paperID string) bool {
	if p.ledger == nil {
		return false
	}
	done, err := p.ledger.IsProcessed(ctx, paperID)
	if err != nil {
		p.log.Warn("ledger lookup failed", "paper", paperID, "error", err)
		return false
	}
	return done
}

func (p *Pipeline) recordSuccess(ctx context.Context, paper *arxiv.Paper, paths map[string]string) {
	if p.ledger == nil {
		return
	}
	rec := store.Record{
		PaperID:         paper.ID,
		Title:           paper.Title,
		Processed:       p.now(),
		WechatPath:      paths["wechat"],
		XiaohongshuPath: paths["xiaohongshu"],
		PDFPath:         paths["pdf"],
	}
	if err := p.ledger.MarkProcessed(ctx, rec); err != nil {
		p.log.Warn("ledger update failed", "paper", paper.ID, "error", err)
	}
}

func (p *Pipeline) recordFailure(ctx context.Context, paper *arxiv.Paper, cause error) {
	if p.ledger == nil {
		return
	}
	if err := p.ledger.MarkFailed(ctx, paper.ID, paper.Title, cause); err != nil {
		p.log.Warn("ledger update failed", "paper", paper.ID, "error", err)
	}
}
