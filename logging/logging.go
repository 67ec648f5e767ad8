// Package logging sets up the process logger: slog text output mirrored to
// stderr and a per-day log file under the configured directory.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// New returns a logger writing to stderr and to {dir}/{YYYY-MM-DD}.log.
// The file writer rolls to a new file at the day boundary. The returned
// close function flushes and closes the current file.
func New(dir string) (*slog.Logger, func() error, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	dw := &dailyWriter{dir: dir}
	h := slog.NewTextHandler(io.MultiWriter(os.Stderr, dw), nil)
	return slog.New(h), dw.Close, nil
}

// dailyWriter appends to one file per calendar day, reopening on rollover.
type dailyWriter struct {
	dir string

	mu  sync.Mutex
	day string
	f   *os.File
}

func (w *dailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	day := time.Now().Format("2006-01-02")
	if w.f == nil || day != w.day {
		if w.f != nil {
			w.f.Close()
		}
		f, err := os.OpenFile(filepath.Join(w.dir, day+".log"),
			os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return 0, err
		}
		w.f = f
		w.day = day
	}
	return w.f.Write(p)
}

func (w *dailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}
