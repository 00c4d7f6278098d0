package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rsyncsight/config"
)

func TestReadFile(t *testing.T) {
	t.Setenv("RSYNCSIGHT_DISABLE_PROGRESS", "1")
	tmp := filepath.Join(t.TempDir(), "run.log")
	content := strings.Join([]string{
		">f.st...... docs/readme.md",
		"*deleting old/stale.bin",
		"Total file size: 2,048 bytes",
	}, "\n")
	if err := os.WriteFile(tmp, []byte(content), 0600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	cfg := &config.Config{InputFile: tmp}
	src, err := Read(context.Background(), cfg)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if src.Name != tmp {
		t.Fatalf("source name: %s", src.Name)
	}
	if len(src.Lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(src.Lines))
	}
	if src.Lines[1] != "*deleting old/stale.bin" {
		t.Fatalf("line order: %q", src.Lines[1])
	}
	if src.Times.ModTime == "" {
		t.Fatal("expected mod time for file input")
	}
}

func TestReadCancelled(t *testing.T) {
	t.Setenv("RSYNCSIGHT_DISABLE_PROGRESS", "1")
	tmp := filepath.Join(t.TempDir(), "run.log")
	if err := os.WriteFile(tmp, []byte("line one\nline two\n"), 0600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &config.Config{InputFile: tmp}
	src, err := Read(ctx, cfg)
	if err != nil {
		t.Fatalf("cancelled read should not error: %v", err)
	}
	if len(src.Lines) != 0 {
		t.Fatalf("expected no lines after immediate cancel, got %d", len(src.Lines))
	}
}

func TestReadMissingFile(t *testing.T) {
	cfg := &config.Config{InputFile: filepath.Join(t.TempDir(), "absent.log")}
	if _, err := Read(context.Background(), cfg); err == nil {
		t.Fatal("expected error for missing input file")
	}
}

func TestFileTimes(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "stamp.log")
	if err := os.WriteFile(tmp, []byte("x"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	ts, err := fileTimes(tmp)
	if err != nil {
		t.Fatalf("fileTimes: %v", err)
	}
	if ts.ModTime == "" || ts.AccessTime == "" {
		t.Fatalf("expected mod and access times, got %+v", ts)
	}
}
