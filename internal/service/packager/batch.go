package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/passkit/internal/logger"
)

// Job is one build of a batch.
type Job struct {
	// Source is the pass source directory.
	Source string `yaml:"source"`
	// Destination is the archive path; it must be unique within the batch.
	Destination string `yaml:"destination"`
	// Definition is an optional pass.json used instead of the one in Source.
	Definition string `yaml:"definition,omitempty"`
}

// Jobs is the content of a batch file.
type Jobs struct {
	Jobs []Job `yaml:"jobs"`
}

// BatchOptions contains inputs for the batch entry point.
type BatchOptions struct {
	Overrides

	// ConfigPath is an optional settings file.
	ConfigPath string
	// JobsPath is the YAML batch file.
	JobsPath string
	// Parallelism overrides archive.parallelism when positive.
	Parallelism int
}

// JobResult is the outcome of one job.
type JobResult struct {
	Job    Job
	Result *Result
	Err    error
}

var (
	errNoJobs               = errors.New("batch file lists no jobs")
	errDuplicateDestination = errors.New("destination used by more than one job")
	errIncompleteJob        = errors.New("job needs a source and a destination")
)

// RunBatch builds every job of the batch file with bounded parallelism. All
// jobs run even when some fail; the returned error joins every failure.
func RunBatch(ctx context.Context, opts *BatchOptions) ([]JobResult, error) {
	ctx = logger.WithName(ctx, "batch")

	jobs, err := LoadJobs(opts.JobsPath)
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(opts.ConfigPath, &opts.Overrides)
	if err != nil {
		return nil, err
	}

	sourceOptions, err := newSourceOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}

	parallelism := cfg.Archive.Parallelism
	if opts.Parallelism > 0 {
		parallelism = opts.Parallelism
	}

	logger.InfoKV(ctx, "Starting batch", "jobs", len(jobs), "parallelism", parallelism)

	results := make([]JobResult, len(jobs))

	var group errgroup.Group

	group.SetLimit(parallelism)

	for i, job := range jobs {
		group.Go(func() error {
			results[i] = runJob(ctx, job, sourceOptions)

			return nil
		})
	}

	// Jobs report through results; the group never fails.
	_ = group.Wait()

	var errs []error

	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}

	logger.InfoKV(ctx, "Batch finished", "jobs", len(jobs), "failed", len(errs))

	return results, errors.Join(errs...)
}

func runJob(ctx context.Context, job Job, sourceOptions []SourceOption) JobResult {
	source := NewSource(job.Source, sourceOptions...)

	if job.Definition != "" {
		p, err := readDefinition(job.Definition)
		if err != nil {
			return JobResult{Job: job, Err: fmt.Errorf("job %s: %w", job.Destination, err)}
		}

		source.AddPass(p)
	}

	result, err := source.Build(ctx, job.Destination)
	if err != nil {
		return JobResult{Job: job, Err: fmt.Errorf("job %s: %w", job.Destination, err)}
	}

	return JobResult{Job: job, Result: result}
}

// LoadJobs reads a batch file. Relative paths are resolved against its directory.
func LoadJobs(path string) ([]Job, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}

	var jobs Jobs
	if err = yaml.Unmarshal(contents, &jobs); err != nil {
		return nil, fmt.Errorf("unmarshal batch file: %w", err)
	}

	if len(jobs.Jobs) == 0 {
		return nil, errNoJobs
	}

	base := filepath.Dir(path)
	seen := make(map[string]struct{}, len(jobs.Jobs))

	for i := range jobs.Jobs {
		job := &jobs.Jobs[i]
		if job.Source == "" || job.Destination == "" {
			return nil, fmt.Errorf("job %d: %w", i+1, errIncompleteJob)
		}

		job.Source = resolve(base, job.Source)
		job.Destination = resolve(base, job.Destination)
		job.Definition = resolve(base, job.Definition)

		if _, ok := seen[job.Destination]; ok {
			return nil, fmt.Errorf("%w: %s", errDuplicateDestination, job.Destination)
		}

		seen[job.Destination] = struct{}{}
	}

	return jobs.Jobs, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(base, path)
}
