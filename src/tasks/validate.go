package tasks

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openecglab/ECGAnnotator/src/wfdb"
)

// Result is the outcome of checking one task's record.
type Result struct {
	Task     Task
	Leads    int
	Fs       float64
	Duration time.Duration
	Err      error
}

// Validate reads every task's record and reports per-task outcomes in task
// order. Records are read concurrently, at most parallel at a time (NumCPU
// when parallel <= 0). A broken record shows up as a Result with Err set;
// Validate itself only fails on context cancellation.
func Validate(ctx context.Context, list []Task, parallel int) ([]Result, error) {
	if parallel <= 0 {
		parallel = runtime.NumCPU()
	}
	results := make([]Result, len(list))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, task := range list {
		i, task := i, task
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := wfdb.ReadRecord(task.RecordPrefix())
			if err != nil {
				results[i] = Result{Task: task, Err: err}
				return nil
			}
			results[i] = Result{
				Task:     task,
				Leads:    len(rec.Signals),
				Fs:       rec.Fs,
				Duration: rec.Duration(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
