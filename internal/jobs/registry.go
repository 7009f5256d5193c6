//-------------------------------------------------------------------------
//
// pgEdge Sales Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package jobs names the entry points that can be scheduled or triggered on
// demand.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownJob is returned for a name that was never registered.
var ErrUnknownJob = errors.New("unknown job")

// Job is one runnable entry point. Run returns a human-readable result
// message; an error is returned only by jobs that propagate failures.
type Job interface {
	Name() string
	Description() string
	Run(ctx context.Context) (string, error)
}

type funcJob struct {
	name        string
	description string
	run         func(ctx context.Context) (string, error)
}

func (j funcJob) Name() string                            { return j.name }
func (j funcJob) Description() string                     { return j.description }
func (j funcJob) Run(ctx context.Context) (string, error) { return j.run(ctx) }

// New wraps a function that may fail.
func New(name, description string, run func(ctx context.Context) (string, error)) Job {
	return funcJob{name: name, description: description, run: run}
}

// FromResult wraps a function that reports failures in its result message.
func FromResult(name, description string, run func(ctx context.Context) string) Job {
	return funcJob{
		name:        name,
		description: description,
		run: func(ctx context.Context) (string, error) {
			return run(ctx), nil
		},
	}
}

// Registry holds jobs by name.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

// NewRegistry creates a registry with the given jobs.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{jobs: make(map[string]Job)}
	for _, j := range jobs {
		r.Register(j)
	}
	return r
}

// Register adds a job, replacing any job with the same name.
func (r *Registry) Register(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.Name()] = job
}

// Get retrieves a job by name.
func (r *Registry) Get(name string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return job, nil
}

// List returns all registered job names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run looks up a job and runs it.
func (r *Registry) Run(ctx context.Context, name string) (string, error) {
	job, err := r.Get(name)
	if err != nil {
		return "", err
	}
	return job.Run(ctx)
}
