package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rsyncsight/analyzer"
	"rsyncsight/config"
	"rsyncsight/ingest"
	"rsyncsight/logger"
	"rsyncsight/output"
	"rsyncsight/systeminfo"
	"rsyncsight/tracing"
	"rsyncsight/update"
	"rsyncsight/utils"
	"rsyncsight/version"
)

func main() {
	if err := tracing.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start trace: %v\n", err)
	} else {
		defer tracing.Stop()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel)

	if latest, notes, newer, err := update.CheckForUpdate(version.Version); err == nil && newer {
		if strings.Contains(strings.ToLower(notes), "security") {
			logger.Warnf("Update available: %s -> %s (security fixes included)", version.Version, latest)
		} else {
			logger.Infof("Update available: %s -> %s", version.Version, latest)
		}
	}

	startTime := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	ctx, endIngest := tracing.StartTask(ctx, "ingest")
	src, err := ingest.Read(ctx, cfg)
	endIngest()
	if err != nil {
		logger.Fatalf("Failed to read input: %v", err)
	}

	var sysInfo *systeminfo.SystemInfo
	if cfg.CollectSystemInfo {
		sysInfo, err = systeminfo.Collect()
		if err != nil {
			logger.Errorf("Failed to gather system information: %v", err)
		}
	}

	_, endAnalyze := tracing.StartTask(ctx, "analyze")
	engine := analyzer.NewEngine()
	res := engine.AnalyzeCached(src.Lines)
	endAnalyze()

	if res == nil {
		logger.Info("No rsync statistics found in input; nothing to report.")
		return
	}

	run := output.RunInfo{
		Source:             src.Name,
		StartTime:          startTime.Format(time.RFC3339),
		EndTime:            time.Now().Format(time.RFC3339),
		LinesRead:          len(src.Lines),
		SourceModTime:      src.Times.ModTime,
		SourceAccessTime:   src.Times.AccessTime,
		SourceChangeTime:   src.Times.ChangeTime,
		SourceCreationTime: src.Times.CreationTime,
	}

	writer, err := output.New(cfg, sysInfo, &run)
	if err != nil {
		logger.Fatalf("Failed to initialize output: %v", err)
	}
	defer writer.Close()

	matcher := newMatcher(cfg)
	if err := writer.WriteResult(res, matcher); err != nil {
		logger.Fatalf("Failed to write report: %v", err)
	}

	fmt.Println(res.Summary())
	logger.Infof("Report written to %s", writer.Path())
}

func newMatcher(cfg *config.Config) *utils.PatternMatcher {
	if len(cfg.IncludePatterns) == 0 && len(cfg.ExcludePatterns) == 0 {
		return nil
	}
	return utils.NewPatternMatcher(cfg.IncludePatterns, cfg.ExcludePatterns)
}

func handleSignals(cancelFunc context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	handleSignalEvent(cancelFunc, sigChan)
}

func handleSignalEvent(cancelFunc context.CancelFunc, sigChan <-chan os.Signal) {
	<-sigChan
	logger.Info("Interrupt signal received. Finishing with the input read so far...")
	cancelFunc()
}
