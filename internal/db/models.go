package db

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
)

// Repository lifecycle states. Only the pipeline mutates status.
const (
	RepoStatusPending   = "pending"
	RepoStatusAnalyzing = "analyzing"
	RepoStatusReady     = "ready"
	RepoStatusFailed    = "failed"
)

// Analysis job lifecycle states.
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Repository is a git repository submitted for analysis. Deleting it cascades
// to chunks, jobs, and questions through the schema's foreign keys.
type Repository struct {
	bun.BaseModel `bun:"table:repositories"`

	ID          int64   `bun:"id,pk,autoincrement" json:"id"`
	Name        string  `bun:"name,notnull" json:"name"`
	RepoURL     string  `bun:"repo_url,notnull,unique" json:"repo_url"`
	Branch      string  `bun:"branch,notnull" json:"branch"`
	Description *string `bun:"description" json:"description,omitempty"`
	Status      string  `bun:"status,notnull" json:"status"`

	TotalFiles int            `bun:"total_files" json:"total_files"`
	TotalLines int            `bun:"total_lines" json:"total_lines"`
	Languages  map[string]int `bun:"languages,type:jsonb" json:"languages"`

	AnalyzedAt *time.Time `bun:"analyzed_at" json:"analyzed_at,omitempty"`
	CreatedAt  time.Time  `bun:"created_at,nullzero,default:now()" json:"created_at"`
	UpdatedAt  time.Time  `bun:"updated_at,nullzero,default:now()" json:"updated_at"`
}

// CodeChunk is an embedded fragment of a source file. Immutable once created;
// bulk-deleted when its repository is deleted or re-analyzed.
type CodeChunk struct {
	bun.BaseModel `bun:"table:code_chunks"`

	ID           int64  `bun:"id,pk,autoincrement" json:"id"`
	RepositoryID int64  `bun:"repository_id,notnull" json:"repository_id"`
	FilePath     string `bun:"file_path,notnull" json:"file_path"`
	ChunkText    string `bun:"chunk_text,notnull" json:"chunk_text"`
	ChunkType    string `bun:"chunk_type" json:"chunk_type"`
	LineStart    int    `bun:"line_start" json:"line_start"`
	LineEnd      int    `bun:"line_end" json:"line_end"`
	Language     string `bun:"language" json:"language"`

	Embedding *pgvector.Vector `bun:"embedding" json:"-"` // NULL until embedded

	CreatedAt time.Time `bun:"created_at,nullzero,default:now()" json:"created_at"`
}

// AnalysisJob tracks one pipeline run. Repositories accumulate a history of
// jobs across re-analyses; the most recent one is authoritative.
type AnalysisJob struct {
	bun.BaseModel `bun:"table:analysis_jobs"`

	ID                 int64   `bun:"id,pk,autoincrement" json:"id"`
	RepositoryID       int64   `bun:"repository_id,notnull" json:"repository_id"`
	Status             string  `bun:"status,notnull" json:"status"`
	TaskID             string  `bun:"task_id" json:"task_id"`
	ProgressPercentage int     `bun:"progress_percentage" json:"progress_percentage"`
	ErrorMessage       *string `bun:"error_message" json:"error_message,omitempty"`

	StartedAt   *time.Time `bun:"started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `bun:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,default:now()" json:"created_at"`
}

// SourceRef is a citation attached to an answer.
type SourceRef struct {
	File      string  `json:"file"`
	LineStart int     `json:"line_start"`
	LineEnd   int     `json:"line_end"`
	Relevance float64 `json:"relevance_score"`
	Snippet   string  `json:"snippet"`
}

// Question records one answer attempt, including failed and degraded ones.
type Question struct {
	bun.BaseModel `bun:"table:questions"`

	ID           int64  `bun:"id,pk,autoincrement" json:"id"`
	RepositoryID int64  `bun:"repository_id,notnull" json:"repository_id"`
	QuestionText string `bun:"question_text,notnull" json:"question"`
	AnswerText   string `bun:"answer_text" json:"answer"`

	ConfidenceScore  float64     `bun:"confidence_score" json:"confidence_score"`
	Sources          []SourceRef `bun:"sources,type:jsonb" json:"sources"`
	ModelUsed        string      `bun:"model_used" json:"model_used"`
	ProcessingTimeMs int64       `bun:"processing_time_ms" json:"processing_time_ms"`

	CreatedAt time.Time `bun:"created_at,nullzero,default:now()" json:"created_at"`
}
