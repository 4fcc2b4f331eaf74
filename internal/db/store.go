package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	pgvector "github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
)

// Store is the data-access layer for repositories, chunks, jobs, and
// questions. Absent rows are reported as (nil, nil) so callers can map them
// to their own not-found handling.
type Store struct {
	db *bun.DB
}

func NewStore(database *Database) *Store {
	return &Store{db: database.Bun()}
}

// ── Repositories ──────────────────────────────────────────────────────────

func (s *Store) CreateRepository(ctx context.Context, repo *Repository) error {
	_, err := s.db.NewInsert().Model(repo).Exec(ctx)
	return err
}

func (s *Store) GetRepository(ctx context.Context, id int64) (*Repository, error) {
	repo := new(Repository)
	err := s.db.NewSelect().Model(repo).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return repo, nil
}

func (s *Store) GetRepositoryByURL(ctx context.Context, url string) (*Repository, error) {
	repo := new(Repository)
	err := s.db.NewSelect().Model(repo).Where("repo_url = ?", url).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return repo, nil
}

// RepositoryFilter narrows ListRepositories.
type RepositoryFilter struct {
	Status string
	Search string
	Limit  int
	Offset int
}

func (s *Store) ListRepositories(ctx context.Context, f RepositoryFilter) ([]Repository, int, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	q := s.db.NewSelect().Model((*Repository)(nil))
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("name ILIKE ?", pattern).WhereOr("repo_url ILIKE ?", pattern)
		})
	}

	total, err := q.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	var repos []Repository
	err = q.Order("created_at DESC").Offset(f.Offset).Limit(f.Limit).Scan(ctx, &repos)
	if err != nil {
		return nil, 0, err
	}
	return repos, total, nil
}

func (s *Store) UpdateRepository(ctx context.Context, repo *Repository) error {
	repo.UpdatedAt = time.Now()
	_, err := s.db.NewUpdate().Model(repo).WherePK().Exec(ctx)
	return err
}

func (s *Store) SetRepositoryStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.NewUpdate().
		Model((*Repository)(nil)).
		Set("status = ?", status).
		Set("updated_at = now()").
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// DeleteRepository removes the repository; chunks, jobs, and questions go
// with it through ON DELETE CASCADE.
func (s *Store) DeleteRepository(ctx context.Context, id int64) error {
	_, err := s.db.NewDelete().Model((*Repository)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

// ── Code chunks ───────────────────────────────────────────────────────────

func (s *Store) InsertChunks(ctx context.Context, chunks []*CodeChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	_, err := s.db.NewInsert().Model(&chunks).Exec(ctx)
	return err
}

func (s *Store) DeleteChunksByRepository(ctx context.Context, repoID int64) error {
	_, err := s.db.NewDelete().Model((*CodeChunk)(nil)).Where("repository_id = ?", repoID).Exec(ctx)
	return err
}

func (s *Store) CountChunksByType(ctx context.Context, repoID int64, chunkType string) (int, error) {
	return s.db.NewSelect().
		Model((*CodeChunk)(nil)).
		Where("repository_id = ? AND chunk_type = ?", repoID, chunkType).
		Count(ctx)
}

// ChunkMatch is one nearest-neighbor result. Distance is the cosine distance
// reported by pgvector; similarity is 1 - distance.
type ChunkMatch struct {
	CodeChunk `bun:",extend"`
	Distance  float64 `bun:"distance"`
}

func (m ChunkMatch) Similarity() float64 { return 1 - m.Distance }

// SearchChunks returns up to k chunks of the repository ordered by ascending
// cosine distance to the query vector. Only embedded chunks participate; ties
// break on the lower chunk id so results are deterministic.
func (s *Store) SearchChunks(ctx context.Context, repoID int64, query []float32, k int) ([]ChunkMatch, error) {
	if k <= 0 {
		k = 5
	}
	var results []ChunkMatch
	err := s.db.NewSelect().Model(&results).
		Column("id", "repository_id", "file_path", "chunk_text", "chunk_type", "line_start", "line_end", "language").
		ColumnExpr("embedding <=> ? AS distance", pgvector.NewVector(query)).
		Where("repository_id = ?", repoID).
		Where("embedding IS NOT NULL").
		OrderExpr("distance").
		OrderExpr("id").
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ── Analysis jobs ─────────────────────────────────────────────────────────

func (s *Store) CreateJob(ctx context.Context, job *AnalysisJob) error {
	_, err := s.db.NewInsert().Model(job).Exec(ctx)
	return err
}

func (s *Store) UpdateJob(ctx context.Context, job *AnalysisJob) error {
	_, err := s.db.NewUpdate().Model(job).WherePK().Exec(ctx)
	return err
}

// LatestJob returns the most recent job for a repository, or (nil, nil).
func (s *Store) LatestJob(ctx context.Context, repoID int64) (*AnalysisJob, error) {
	job := new(AnalysisJob)
	err := s.db.NewSelect().Model(job).
		Where("repository_id = ?", repoID).
		OrderExpr("created_at DESC, id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return job, nil
}

// FailLatestJob marks the most recent job of the repository failed with the
// given message. A repository without jobs is a no-op.
func (s *Store) FailLatestJob(ctx context.Context, repoID int64, message string) error {
	job, err := s.LatestJob(ctx, repoID)
	if err != nil || job == nil {
		return err
	}
	now := time.Now()
	job.Status = JobStatusFailed
	job.ErrorMessage = &message
	job.CompletedAt = &now
	return s.UpdateJob(ctx, job)
}

// ── Questions ─────────────────────────────────────────────────────────────

func (s *Store) CreateQuestion(ctx context.Context, q *Question) error {
	_, err := s.db.NewInsert().Model(q).Exec(ctx)
	return err
}

func (s *Store) GetQuestion(ctx context.Context, id int64) (*Question, error) {
	q := new(Question)
	err := s.db.NewSelect().Model(q).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return q, nil
}

func (s *Store) ListQuestions(ctx context.Context, repoID int64, limit, offset int) ([]Question, int, error) {
	if limit <= 0 {
		limit = 20
	}
	base := s.db.NewSelect().Model((*Question)(nil)).Where("repository_id = ?", repoID)

	total, err := base.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	var questions []Question
	err = base.Order("created_at DESC").Offset(offset).Limit(limit).Scan(ctx, &questions)
	if err != nil {
		return nil, 0, err
	}
	return questions, total, nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	_, err := s.db.NewDelete().Model((*Question)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

// QuestionStats aggregates usage for the statistics endpoint.
type QuestionStats struct {
	Total             int
	AvgProcessingTime sql.NullFloat64
}

func (s *Store) QuestionStatsByRepository(ctx context.Context, repoID int64) (QuestionStats, error) {
	var stats QuestionStats
	total, err := s.db.NewSelect().Model((*Question)(nil)).Where("repository_id = ?", repoID).Count(ctx)
	if err != nil {
		return stats, err
	}
	stats.Total = total

	err = s.db.NewSelect().Model((*Question)(nil)).
		ColumnExpr("avg(processing_time_ms)").
		Where("repository_id = ?", repoID).
		Scan(ctx, &stats.AvgProcessingTime)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return stats, err
	}
	return stats, nil
}
