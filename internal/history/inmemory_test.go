package history

import (
	"context"
	"fmt"
	"testing"
)

func TestInMemoryStoreRecentNewestFirst(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := s.SaveJob(ctx, JobRecord{Kind: "audiobook", Outcome: fmt.Sprintf("ok-%d", i)})
		if err != nil {
			t.Fatalf("SaveJob() error = %v", err)
		}
	}

	jobs, err := s.RecentJobs(ctx, 2)
	if err != nil {
		t.Fatalf("RecentJobs() error = %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("RecentJobs() = %d records, want 2", len(jobs))
	}
	if jobs[0].Outcome != "ok-2" || jobs[1].Outcome != "ok-1" {
		t.Fatalf("RecentJobs() order wrong: %+v", jobs)
	}
	if jobs[0].ID == "" || jobs[0].CreatedAt.IsZero() {
		t.Fatalf("SaveJob() should fill ID and CreatedAt")
	}
}

func TestInMemoryStoreBounded(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	for i := 0; i < inMemoryCap+10; i++ {
		if err := s.SaveJob(ctx, JobRecord{Kind: "storybook"}); err != nil {
			t.Fatalf("SaveJob() error = %v", err)
		}
	}
	jobs, err := s.RecentJobs(ctx, 0)
	if err != nil {
		t.Fatalf("RecentJobs() error = %v", err)
	}
	if len(jobs) != inMemoryCap {
		t.Fatalf("store holds %d records, want cap %d", len(jobs), inMemoryCap)
	}
}

func TestNewStoreDefaultsToInMemory(t *testing.T) {
	s, err := NewStore(context.Background(), "  ")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer s.Close()
	if _, ok := s.(*InMemoryStore); !ok {
		t.Fatalf("NewStore(empty url) = %T, want *InMemoryStore", s)
	}
}
