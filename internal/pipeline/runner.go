package pipeline

import (
	"context"
	"fmt"
	"time"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/codequery/codequery/internal/chunking"
	"github.com/codequery/codequery/internal/db"
	"github.com/codequery/codequery/internal/logging"
)

// Store is the slice of the data layer the pipeline needs.
type Store interface {
	GetRepository(ctx context.Context, id int64) (*db.Repository, error)
	UpdateRepository(ctx context.Context, repo *db.Repository) error
	SetRepositoryStatus(ctx context.Context, id int64, status string) error
	CreateJob(ctx context.Context, job *db.AnalysisJob) error
	UpdateJob(ctx context.Context, job *db.AnalysisJob) error
	FailLatestJob(ctx context.Context, repoID int64, message string) error
	DeleteChunksByRepository(ctx context.Context, repoID int64) error
	InsertChunks(ctx context.Context, chunks []*db.CodeChunk) error
}

// Cloner provides the working copy for a run.
type Cloner interface {
	Clone(ctx context.Context, url, branch string) (string, error)
	Cleanup(dir string)
}

// FileChunker splits one file into chunks.
type FileChunker interface {
	ChunkFile(path, root string) []chunking.Chunk
}

// Embedder turns chunk texts into vectors.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Runner drives one full analysis: clone, discover, chunk, embed, persist,
// and track the repository and job state machines.
type Runner struct {
	store    Store
	cloner   Cloner
	chunker  FileChunker
	embedder Embedder
	discover func(root string) ([]string, error)
	log      logging.Logger
}

func NewRunner(store Store, cloner Cloner, chunker FileChunker, embedder Embedder, discover func(string) ([]string, error), log logging.Logger) *Runner {
	return &Runner{
		store:    store,
		cloner:   cloner,
		chunker:  chunker,
		embedder: embedder,
		discover: discover,
		log:      log.WithName("pipeline"),
	}
}

// Run executes the pipeline for one repository. On failure the repository and
// its latest job are marked failed and the error is returned so the dispatch
// layer observes it. The clone directory is released on every exit path.
func (r *Runner) Run(ctx context.Context, repoID int64, taskID string) error {
	log := r.log.WithValues("repository_id", repoID)

	repo, err := r.store.GetRepository(ctx, repoID)
	if err != nil {
		return fmt.Errorf("load repository %d: %w", repoID, err)
	}
	if repo == nil {
		return fmt.Errorf("repository %d not found", repoID)
	}

	if err := r.store.SetRepositoryStatus(ctx, repoID, db.RepoStatusAnalyzing); err != nil {
		return fmt.Errorf("mark repository analyzing: %w", err)
	}

	now := time.Now()
	job := &db.AnalysisJob{
		RepositoryID: repoID,
		Status:       db.JobStatusProcessing,
		TaskID:       taskID,
		StartedAt:    &now,
	}
	if err := r.store.CreateJob(ctx, job); err != nil {
		return fmt.Errorf("create analysis job: %w", err)
	}

	if err := r.analyze(ctx, repo, job, log); err != nil {
		log.Error(err, "analysis failed")
		if dbErr := r.store.SetRepositoryStatus(ctx, repoID, db.RepoStatusFailed); dbErr != nil {
			log.Error(dbErr, "could not mark repository failed")
		}
		if dbErr := r.store.FailLatestJob(ctx, repoID, err.Error()); dbErr != nil {
			log.Error(dbErr, "could not mark job failed")
		}
		return err
	}

	log.Info("analysis complete")
	return nil
}

func (r *Runner) analyze(ctx context.Context, repo *db.Repository, job *db.AnalysisJob, log logging.Logger) error {
	progress := newJobProgress(r.store, job, log)

	if err := progress.Step(ctx, "cloning", ProgressCloning); err != nil {
		return err
	}
	cloneDir, err := r.cloner.Clone(ctx, repo.RepoURL, repo.Branch)
	if err != nil {
		return err
	}
	defer r.cloner.Cleanup(cloneDir)

	if err := progress.Step(ctx, "discovering", ProgressDiscovering); err != nil {
		return err
	}
	files, err := r.discover(cloneDir)
	if err != nil {
		return fmt.Errorf("discover files: %w", err)
	}
	log.Info("discovered code files", "count", len(files))

	if err := progress.Step(ctx, "chunking", ProgressChunking); err != nil {
		return err
	}
	var chunks []chunking.Chunk
	languages := map[string]int{}
	for _, path := range files {
		chunks = append(chunks, r.chunker.ChunkFile(path, cloneDir)...)
		languages[chunking.LanguageForPath(path)]++
	}
	log.Info("chunked repository", "chunks", len(chunks))

	if err := progress.Step(ctx, "embedding", ProgressEmbedding); err != nil {
		return err
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	if err := progress.Step(ctx, "storing", ProgressStoring); err != nil {
		return err
	}
	// Re-analysis replaces the previous chunk set wholesale.
	if err := r.store.DeleteChunksByRepository(ctx, repo.ID); err != nil {
		return fmt.Errorf("delete previous chunks: %w", err)
	}
	rows := make([]*db.CodeChunk, len(chunks))
	totalLines := 0
	for i, c := range chunks {
		vec := pgvector.NewVector(vectors[i])
		rows[i] = &db.CodeChunk{
			RepositoryID: repo.ID,
			FilePath:     c.FilePath,
			ChunkText:    c.Text,
			ChunkType:    c.Type,
			LineStart:    c.LineStart,
			LineEnd:      c.LineEnd,
			Language:     c.Language,
			Embedding:    &vec,
		}
		totalLines += c.LineEnd - c.LineStart + 1
	}
	if err := r.store.InsertChunks(ctx, rows); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}

	analyzedAt := time.Now()
	repo.Status = db.RepoStatusReady
	repo.TotalFiles = len(files)
	repo.TotalLines = totalLines
	repo.Languages = languages
	repo.AnalyzedAt = &analyzedAt
	if err := r.store.UpdateRepository(ctx, repo); err != nil {
		return fmt.Errorf("finalize repository: %w", err)
	}

	job.Status = db.JobStatusCompleted
	job.CompletedAt = &analyzedAt
	if err := progress.Step(ctx, "done", ProgressDone); err != nil {
		return err
	}
	return nil
}
