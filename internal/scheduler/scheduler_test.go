package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/guarzo/crosslist/internal/marketplace"
)

func TestRunPullSkipsDisconnectedAdapter(t *testing.T) {
	s := New(time.Minute)
	m := marketplace.NewMockAdapter("ebay")

	s.runPull(m)
	if m.PullCalls != 0 {
		t.Errorf("PullCalls = %d, want 0 for disconnected adapter", m.PullCalls)
	}
}

func TestRunPullSkipsWhileSyncing(t *testing.T) {
	s := New(time.Minute)
	m := marketplace.NewMockAdapter("ebay")
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := m.BeginSync(); err != nil {
		t.Fatalf("BeginSync() error = %v", err)
	}

	s.runPull(m)
	if m.PullCalls != 0 {
		t.Errorf("PullCalls = %d, want 0 while a sync is in flight", m.PullCalls)
	}
}

func TestRunPullConnectedAdapter(t *testing.T) {
	s := New(time.Minute)
	m := marketplace.NewMockAdapter("etsy")
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	s.runPull(m)
	if m.PullCalls != 1 {
		t.Errorf("PullCalls = %d, want 1", m.PullCalls)
	}
}

func TestRunPullSwallowsErrors(t *testing.T) {
	s := New(time.Minute)
	m := marketplace.NewMockAdapter("ebay")
	m.PullErr = errors.New("network down")
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	// Must not panic, and the adapter must be ready for the next tick.
	s.runPull(m)
	if m.Syncing() {
		t.Error("adapter left in syncing state after failed pull")
	}
	s.runPull(m)
	if m.PullCalls != 2 {
		t.Errorf("PullCalls = %d, want 2 (retry on next tick)", m.PullCalls)
	}
}

func TestAddRegistersEntry(t *testing.T) {
	s := New(time.Minute)
	if err := s.Add(marketplace.NewMockAdapter("ebay")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	s.Start()
	defer s.Stop()
}
