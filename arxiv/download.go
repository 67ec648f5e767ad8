package arxiv

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/zaka-ai/paperpush/errs"
)

// DownloadPDF downloads the paper's PDF into dir, streaming to disk rather
// than buffering the document in memory. The target path is deterministic
// ({dir}/{title:20}_{date}.pdf); an already-present file is reused.
func (c *Client) DownloadPDF(ctx context.Context, paper *Paper, dir string) (string, error) {
	const op = "arxiv.download_pdf"

	if paper.PDFURL == "" {
		return "", errs.Errorf(errs.KindFetch, op, "paper %s has no pdf url", paper.ID)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errs.E(errs.KindFetch, op, err)
	}

	path := filepath.Join(dir, paper.FileStem()+".pdf")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", paper.PDFURL, nil)
	if err != nil {
		return "", errs.E(errs.KindFetch, op, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", errs.E(errs.KindFetch, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errs.Errorf(errs.KindFetch, op, "http %s", resp.Status)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", errs.E(errs.KindFetch, op, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(path)
		return "", errs.E(errs.KindFetch, op, fmt.Errorf("write %s: %w", path, err))
	}

	return path, nil
}
