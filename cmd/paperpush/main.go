// Command paperpush fetches recent arXiv papers once per day, summarizes them
// with a language model and writes platform-ready articles to disk.
//
// Configuration comes from the environment (optionally via a .env file):
//
//	OPENAI_API_KEY      required
//	OPENAI_MODEL        chat model (default gpt-3.5-turbo)
//	OPENAI_BASE_URL     optional OpenAI-compatible endpoint
//	TEMPERATURE         sampling temperature (default 0.7)
//	SUMMARY_LENGTH      max output tokens (default 1000)
//	MAX_PAPERS_PER_DAY  papers per batch (default 5)
//	DAYS_TO_CRAWL       submitted-date window in days (default 7)
//	ARXIV_QUERY         optional category filter (e.g. cs.AI)
//	SCHEDULE_TIME       daily run time HH:MM (default 10:00)
//	OUTPUT_DIR          article output directory (default output)
//	DOWNLOAD_PDF        also download source PDFs (default false)
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/zaka-ai/paperpush/arxiv"
	"github.com/zaka-ai/paperpush/config"
	"github.com/zaka-ai/paperpush/formatter"
	"github.com/zaka-ai/paperpush/logging"
	"github.com/zaka-ai/paperpush/pipeline"
	"github.com/zaka-ai/paperpush/store"
	"github.com/zaka-ai/paperpush/summarizer"
)

func main() {
	log.SetFlags(0)

	once := flag.Bool("once", false, "run a single batch and exit")
	envFile := flag.String("env", ".env", "path to env file")
	flag.Parse()

	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load(*envFile)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, closeLog, err := logging.New(cfg.Output.LogDir)
	if err != nil {
		log.Fatalf("setup logging: %v", err)
	}
	defer closeLog()

	st, err := store.Open(cfg.Output.DBPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	if stats, err := st.Stats(context.Background()); err == nil {
		logger.Info("ledger opened", "processed", stats.Total-stats.Failed, "failed", stats.Failed)
	}

	llm, err := summarizer.NewOpenAIClient(cfg.OpenAI)
	if err != nil {
		log.Fatalf("setup llm client: %v", err)
	}
	gen, err := summarizer.New(llm, logger)
	if err != nil {
		log.Fatalf("setup summarizer: %v", err)
	}
	fm, err := formatter.New(cfg.Output, logger)
	if err != nil {
		log.Fatalf("setup formatter: %v", err)
	}
	src := arxiv.NewClient(arxiv.WithTimeout(cfg.Crawler.HTTPTimeout))

	p := pipeline.New(cfg, src, gen, fm, st, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if *once {
		if err := p.RunOnce(ctx); err != nil {
			logger.Error("batch failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("pipeline stopped", "error", err)
		os.Exit(1)
	}
}
