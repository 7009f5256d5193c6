package jobs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pgEdge/pgedge-salesync/internal/jobs"
)

func testRegistry() *jobs.Registry {
	return jobs.NewRegistry(
		jobs.New("etl", "Reconcile SAP data", func(context.Context) (string, error) {
			return "", errors.New("source unavailable")
		}),
		jobs.FromResult("index", "Rebuild the search index", func(context.Context) string {
			return "No documents found to upload"
		}),
		jobs.FromResult("insights", "Generate business insights", func(context.Context) string {
			return "ok"
		}),
	)
}

func TestGet(t *testing.T) {
	r := testRegistry()

	for _, name := range []string{"etl", "index", "insights"} {
		t.Run(name, func(t *testing.T) {
			job, err := r.Get(name)
			if err != nil {
				t.Fatalf("Failed to get job '%s': %v", name, err)
			}
			if job.Name() != name {
				t.Errorf("Job name mismatch: expected '%s', got '%s'", name, job.Name())
			}
			if job.Description() == "" {
				t.Error("Job description should not be empty")
			}
		})
	}
}

func TestGetUnknownJob(t *testing.T) {
	r := testRegistry()

	for _, name := range []string{"nonexistent", ""} {
		_, err := r.Get(name)
		if !errors.Is(err, jobs.ErrUnknownJob) {
			t.Errorf("Expected ErrUnknownJob for %q, got %v", name, err)
		}
	}
}

func TestList(t *testing.T) {
	got := testRegistry().List()
	want := []string{"etl", "index", "insights"}

	if len(got) != len(want) {
		t.Fatalf("Expected %d jobs, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d]: expected '%s', got '%s'", i, want[i], got[i])
		}
	}
}

func TestRun(t *testing.T) {
	r := testRegistry()
	ctx := context.Background()

	result, err := r.Run(ctx, "index")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result != "No documents found to upload" {
		t.Errorf("Unexpected result: %s", result)
	}

	if _, err := r.Run(ctx, "etl"); err == nil || err.Error() != "source unavailable" {
		t.Errorf("Expected etl error to propagate, got %v", err)
	}

	if _, err := r.Run(ctx, "missing"); !errors.Is(err, jobs.ErrUnknownJob) {
		t.Errorf("Expected ErrUnknownJob, got %v", err)
	}
}

func TestRegisterReplaces(t *testing.T) {
	r := testRegistry()
	r.Register(jobs.FromResult("insights", "replacement", func(context.Context) string { return "new" }))

	job, err := r.Get("insights")
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if job.Description() != "replacement" {
		t.Errorf("Expected replaced job, got '%s'", job.Description())
	}
	if len(r.List()) != 3 {
		t.Errorf("Expected 3 jobs after replace, got %d", len(r.List()))
	}
}
