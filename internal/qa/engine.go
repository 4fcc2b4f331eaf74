package qa

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/codequery/codequery/internal/db"
	"github.com/codequery/codequery/internal/logging"
)

const (
	// NoRelevantCodeAnswer is returned when retrieval finds nothing. This is
	// a normal outcome, not a failure.
	NoRelevantCodeAnswer = "I couldn't find relevant code in this repository to answer your question."

	// UnavailablePlaceholder is stored when generation produced no answer.
	UnavailablePlaceholder = "LLM generation failed."

	topK          = 5
	snippetLength = 200
)

// Embedder embeds the incoming question.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever finds the stored chunks nearest to a query vector.
type Retriever interface {
	SearchChunks(ctx context.Context, repoID int64, query []float32, k int) ([]db.ChunkMatch, error)
}

// QuestionStore persists one Question row per answer attempt.
type QuestionStore interface {
	CreateQuestion(ctx context.Context, q *db.Question) error
}

// Result is the outcome of one answer attempt. Question is the persisted
// record; Degraded reports that generation was unavailable, which is distinct
// from retrieval finding no chunks.
type Result struct {
	Question *db.Question
	Degraded bool
}

// Engine answers questions about a repository with retrieval-augmented
// generation: embed the question, fetch the nearest chunks, and ask the
// generation backend to answer from that context.
type Engine struct {
	embedder  Embedder
	retriever Retriever
	generator GenerationClient
	store     QuestionStore
	model     string
	log       logging.Logger
}

func NewEngine(embedder Embedder, retriever Retriever, generator GenerationClient, store QuestionStore, model string, log logging.Logger) *Engine {
	return &Engine{
		embedder:  embedder,
		retriever: retriever,
		generator: generator,
		store:     store,
		model:     model,
		log:       log.WithName("qa"),
	}
}

// Answer runs the full RAG pipeline and persists a Question row for every
// call, including degraded ones.
func (e *Engine) Answer(ctx context.Context, repoID int64, question string) (Result, error) {
	start := time.Now()

	queryVec, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return Result{}, fmt.Errorf("embed question: %w", err)
	}

	matches, err := e.retriever.SearchChunks(ctx, repoID, queryVec, topK)
	if err != nil {
		return Result{}, fmt.Errorf("retrieve chunks: %w", err)
	}

	if len(matches) == 0 {
		record := &db.Question{
			RepositoryID:     repoID,
			QuestionText:     question,
			AnswerText:       NoRelevantCodeAnswer,
			ConfidenceScore:  0,
			Sources:          []db.SourceRef{},
			ModelUsed:        "none",
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		}
		if err := e.store.CreateQuestion(ctx, record); err != nil {
			return Result{}, fmt.Errorf("persist question: %w", err)
		}
		return Result{Question: record}, nil
	}

	prompt := buildPrompt(question, buildContext(matches))

	answer, genErr := e.generator.Generate(ctx, prompt)
	degraded := genErr != nil
	if degraded {
		// Degraded, not fatal: the sources and confidence still describe
		// what retrieval found.
		e.log.Info("answering in degraded mode", "repository_id", repoID, "reason", genErr.Error())
		answer = UnavailablePlaceholder
	}

	record := &db.Question{
		RepositoryID:     repoID,
		QuestionText:     question,
		AnswerText:       answer,
		ConfidenceScore:  confidence(matches),
		Sources:          sources(matches),
		ModelUsed:        e.model,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	if err := e.store.CreateQuestion(ctx, record); err != nil {
		return Result{}, fmt.Errorf("persist question: %w", err)
	}
	return Result{Question: record, Degraded: degraded}, nil
}

// confidence reflects retrieval quality only: the best similarity among the
// retrieved chunks, regardless of whether generation succeeded.
func confidence(matches []db.ChunkMatch) float64 {
	best := matches[0].Similarity()
	for _, m := range matches[1:] {
		if sim := m.Similarity(); sim > best {
			best = sim
		}
	}
	return round3(best)
}

func sources(matches []db.ChunkMatch) []db.SourceRef {
	refs := make([]db.SourceRef, len(matches))
	for i, m := range matches {
		snippet := m.ChunkText
		if len(snippet) > snippetLength {
			snippet = snippet[:snippetLength]
		}
		refs[i] = db.SourceRef{
			File:      m.FilePath,
			LineStart: m.LineStart,
			LineEnd:   m.LineEnd,
			Relevance: round3(m.Similarity()),
			Snippet:   snippet,
		}
	}
	return refs
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
