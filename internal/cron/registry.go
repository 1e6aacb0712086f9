package cron

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Job is one unit of scheduled work. Name is used as the lock key suffix
// and the metrics label.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

var errUnnamedJob = errors.New("cron job name required")

// Registry holds jobs in the order they run.
type Registry struct {
	jobs []Job
}

// NewRegistry registers jobs, dropping nils and any name already taken by an
// earlier job.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{}
	for _, job := range jobs {
		_ = r.Register(job)
	}
	return r
}

func (r *Registry) has(name string) bool {
	return slices.ContainsFunc(r.jobs, func(j Job) bool { return j.Name() == name })
}

// Register appends job. A nil job is ignored.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	switch name := job.Name(); {
	case name == "":
		return errUnnamedJob
	case r.has(name):
		return fmt.Errorf("cron job %q already registered", name)
	}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	return slices.Clone(r.jobs)
}
