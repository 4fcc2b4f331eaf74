package pipeline

import (
	"context"

	"github.com/codequery/codequery/internal/db"
	"github.com/codequery/codequery/internal/logging"
)

// Stage checkpoints persisted while a run advances. Status queries observe
// each value as soon as the job row commits.
const (
	ProgressCloning     = 10
	ProgressDiscovering = 20
	ProgressChunking    = 40
	ProgressEmbedding   = 60
	ProgressStoring     = 85
	ProgressDone        = 100
)

// ProgressReporter is the single progress channel for a run: one call updates
// the in-memory job and persists it, so the run loop and status queries can
// never disagree.
type ProgressReporter interface {
	Step(ctx context.Context, stage string, pct int) error
}

type jobProgress struct {
	store Store
	job   *db.AnalysisJob
	log   logging.Logger
}

func newJobProgress(store Store, job *db.AnalysisJob, log logging.Logger) *jobProgress {
	return &jobProgress{store: store, job: job, log: log}
}

// Step records a checkpoint. Progress is monotonically non-decreasing within
// a run; a stale lower value is ignored.
func (p *jobProgress) Step(ctx context.Context, stage string, pct int) error {
	if pct < p.job.ProgressPercentage {
		return nil
	}
	p.job.ProgressPercentage = pct
	p.log.Info("pipeline progress", "stage", stage, "progress", pct)
	return p.store.UpdateJob(ctx, p.job)
}
