package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryStoresJobs(t *testing.T) {
	registry := NewRegistry()
	first := &stubJob{name: "courier-refresh"}
	second := &stubJob{name: "outbox-retention"}
	registry.Register(first)
	registry.Register(second)
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != first || jobs[1] != second {
		t.Fatalf("jobs returned out of order")
	}
	jobs[0] = nil // mutating the returned slice must not reach the registry
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}
