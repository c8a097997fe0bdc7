package listener

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"freightdesk/internal/config"
)

func TestRunIntervalStopsOnCancel(t *testing.T) {
	cfg := config.Config{MailListenerInterval: 10 * time.Millisecond}
	svc := NewService(nil, cfg, nil)

	var cycles atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	svc.cycle = func(context.Context) error {
		if cycles.Add(1) == 3 {
			cancel()
		}
		return errors.New("cycle errors are logged, not fatal")
	}

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
	if cycles.Load() < 3 {
		t.Fatalf("cycles=%d", cycles.Load())
	}
}

func TestRunScheduledRejectsBadSpec(t *testing.T) {
	svc := NewService(nil, config.Config{MailListenerSchedule: "every tuesday"}, nil)
	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected schedule error")
	}
	svc = NewService(nil, config.Config{MailListenerSchedule: "*/5 * * * *", MailListenerTimezone: "Mars/Olympus"}, nil)
	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected timezone error")
	}
}

func TestRunScheduledStopsOnCancel(t *testing.T) {
	svc := NewService(nil, config.Config{MailListenerSchedule: "@every 1h"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestMakeConnectorUnknownProvider(t *testing.T) {
	if _, err := MakeConnector(context.Background(), "pop3", config.Config{}, nil); err == nil {
		t.Fatal("expected error")
	}
}
