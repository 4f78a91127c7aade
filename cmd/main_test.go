package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"
)

type dummyHandler struct{}

func (d dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func TestStartServerAndShutdown(t *testing.T) {
	srv := startServer(dummyHandler{}, "0") // random port
	if srv == nil {
		t.Fatalf("expected server")
	}

	// Give server a moment to start
	time.Sleep(50 * time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
		t.Fatalf("shutdown err: %v", err)
	}
}

func TestGracefulShutdown_SignalPath(t *testing.T) {
	srv := startServer(dummyHandler{}, "0")

	cleaned := make(chan struct{}, 1)
	go func() {
		ctx := context.Background()
		gracefulShutdown(ctx, srv, func() { close(cleaned) })
	}()

	// Give the goroutine time to set up signal notifications
	time.Sleep(50 * time.Millisecond)

	p, _ := os.FindProcess(os.Getpid())
	_ = p.Signal(syscall.SIGTERM)

	select {
	case <-cleaned:
		// success
	case <-time.After(2 * time.Second):
		t.Fatalf("cleanup not called after SIGTERM")
	}
}

func TestConfirmRange(t *testing.T) {
	cases := []struct {
		name        string
		days        int
		confirmDays int
		yes         bool
		input       string
		want        bool
	}{
		{name: "short range passes silently", days: 5, confirmDays: 100, want: true},
		{name: "boundary passes silently", days: 100, confirmDays: 100, want: true},
		{name: "yes flag skips prompt", days: 500, confirmDays: 100, yes: true, want: true},
		{name: "long range confirmed", days: 500, confirmDays: 100, input: "y\n", want: true},
		{name: "long range confirmed verbose", days: 500, confirmDays: 100, input: "YES\n", want: true},
		{name: "long range declined", days: 500, confirmDays: 100, input: "n\n", want: false},
		{name: "long range empty answer declines", days: 500, confirmDays: 100, input: "\n", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out strings.Builder
			got := confirmRange(tc.days, tc.confirmDays, tc.yes, strings.NewReader(tc.input), &out)
			if got != tc.want {
				t.Fatalf("want %v got %v", tc.want, got)
			}
			prompted := out.Len() > 0
			wantPrompt := !tc.yes && tc.days > tc.confirmDays
			if prompted != wantPrompt {
				t.Fatalf("prompt written=%v, want %v", prompted, wantPrompt)
			}
		})
	}
}

func TestRunIngest_BadDates(t *testing.T) {
	if err := runIngest(context.Background(), "2021-01-04", "today", true); err == nil {
		t.Fatalf("ISO date must be rejected")
	}
	if err := runIngest(context.Background(), "05-01-2021", "04-01-2021", true); err == nil {
		t.Fatalf("inverted range must be rejected")
	}
}
