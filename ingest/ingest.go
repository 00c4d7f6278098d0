// Package ingest reads captured rsync output line by line from a file or
// stdin. Cancellation stops the read early and returns the lines gathered
// so far, so an interrupted run can still be analyzed and reported.
package ingest

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"

	"rsyncsight/config"
	"rsyncsight/logger"
)

// Lines longer than this are almost certainly not rsync output, but a
// deep path under a generous --itemize-changes run can get close.
const maxLineSize = 1024 * 1024

// Source is one ingested input: its lines plus provenance for the report.
type Source struct {
	Name  string
	Lines []string
	Times FileTimes
}

// Read consumes cfg.InputFile ("-" means stdin) until EOF or ctx
// cancellation. A cancelled read is not an error; the partial Source is
// returned so the caller can analyze what arrived.
func Read(ctx context.Context, cfg *config.Config) (*Source, error) {
	if cfg.InputFile == "-" {
		return readFrom(ctx, os.Stdin, "-", -1, FileTimes{}, cfg.ShowProgress)
	}

	f, err := os.Open(cfg.InputFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	size := int64(-1)
	if fi, err := f.Stat(); err == nil {
		size = fi.Size()
	}
	ts, err := fileTimes(cfg.InputFile)
	if err != nil {
		logger.Debugf("Could not read source timestamps: %v", err)
	}
	return readFrom(ctx, f, cfg.InputFile, size, ts, cfg.ShowProgress)
}

func readFrom(ctx context.Context, r io.Reader, name string, size int64, ts FileTimes, showProgress bool) (*Source, error) {
	var bar *progressbar.ProgressBar
	if size >= 0 {
		bar = progressbar.NewOptions64(size,
			progressbar.OptionSetDescription("Reading rsync output"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionSetVisibility(showProgress && progressVisible()),
			progressbar.OptionFullWidth(),
		)
	} else {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Reading rsync output"),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetVisibility(showProgress && progressVisible()),
			progressbar.OptionFullWidth(),
		)
	}

	src := &Source{Name: name, Times: ts}
	scanner := bufio.NewScanner(io.TeeReader(r, bar))
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			logger.Infof("Ingest interrupted after %d lines", len(src.Lines))
			_ = bar.Finish()
			return src, nil
		default:
		}
		src.Lines = append(src.Lines, scanner.Text())
	}
	_ = bar.Finish()
	if err := scanner.Err(); err != nil {
		return src, err
	}
	return src, nil
}

func progressVisible() bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv("RSYNCSIGHT_DISABLE_PROGRESS")))
	return value != "1" && value != "true" && value != "yes" && value != "on"
}
