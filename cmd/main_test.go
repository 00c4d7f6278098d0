package main

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"rsyncsight/config"
	"rsyncsight/logger"
)

func TestHandleSignalEventCancelsContext(t *testing.T) {
	logger.Init("error")

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)

	done := make(chan struct{})
	go func() {
		handleSignalEvent(cancel, sigChan)
		close(done)
	}()

	sigChan <- syscall.SIGTERM

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expected context to be canceled")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("signal handler did not return")
	}
}

func TestNewMatcher(t *testing.T) {
	if m := newMatcher(&config.Config{}); m != nil {
		t.Fatal("expected nil matcher without patterns")
	}

	m := newMatcher(&config.Config{ExcludePatterns: []string{"*.tmp"}})
	if m == nil {
		t.Fatal("expected matcher with exclude patterns")
	}
	if m.ShouldInclude("cache/scratch.tmp") {
		t.Fatal("expected excluded path to be dropped")
	}
	if !m.ShouldInclude("docs/readme.md") {
		t.Fatal("expected unmatched path to pass")
	}
}
