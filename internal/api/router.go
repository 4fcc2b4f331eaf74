package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/codequery/codequery/internal/db"
	"github.com/codequery/codequery/internal/logging"
	"github.com/codequery/codequery/internal/qa"
)

// Store is the slice of the data layer the HTTP surface needs. *db.Store
// satisfies it; tests provide fakes.
type Store interface {
	CreateRepository(ctx context.Context, repo *db.Repository) error
	GetRepository(ctx context.Context, id int64) (*db.Repository, error)
	GetRepositoryByURL(ctx context.Context, url string) (*db.Repository, error)
	ListRepositories(ctx context.Context, f db.RepositoryFilter) ([]db.Repository, int, error)
	UpdateRepository(ctx context.Context, repo *db.Repository) error
	SetRepositoryStatus(ctx context.Context, id int64, status string) error
	DeleteRepository(ctx context.Context, id int64) error

	LatestJob(ctx context.Context, repoID int64) (*db.AnalysisJob, error)
	CountChunksByType(ctx context.Context, repoID int64, chunkType string) (int, error)
	QuestionStatsByRepository(ctx context.Context, repoID int64) (db.QuestionStats, error)

	GetQuestion(ctx context.Context, id int64) (*db.Question, error)
	ListQuestions(ctx context.Context, repoID int64, limit, offset int) ([]db.Question, int, error)
	DeleteQuestion(ctx context.Context, id int64) error
}

// Answerer runs the RAG pipeline for one question.
type Answerer interface {
	Answer(ctx context.Context, repoID int64, question string) (qa.Result, error)
}

// Dispatcher hands analysis work to the queue or a local fallback.
type Dispatcher interface {
	Dispatch(ctx context.Context, repoID int64) string
}

// Pinger reports backend liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober reports queue reachability for the health endpoint.
type Prober interface {
	Probe(ctx context.Context) bool
}

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	store      Store
	answerer   Answerer
	dispatcher Dispatcher
	dbPing     Pinger
	queue      Prober
	log        logging.Logger
}

func NewServer(store Store, answerer Answerer, dispatcher Dispatcher, dbPing Pinger, queue Prober, log logging.Logger) *Server {
	return &Server{
		store:      store,
		answerer:   answerer,
		dispatcher: dispatcher,
		dbPing:     dbPing,
		queue:      queue,
		log:        log.WithName("api"),
	}
}

// Router wires all routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.health)

	r.POST("/repositories", s.createRepository)
	r.GET("/repositories", s.listRepositories)
	r.GET("/repositories/:id", s.getRepository)
	r.PUT("/repositories/:id", s.updateRepository)
	r.DELETE("/repositories/:id", s.deleteRepository)

	r.GET("/repositories/:id/status", s.analysisStatus)
	r.GET("/repositories/:id/statistics", s.statistics)

	r.POST("/repositories/:id/questions", s.askQuestion)
	r.GET("/repositories/:id/questions", s.listQuestions)

	r.GET("/questions/:id", s.getQuestion)
	r.DELETE("/questions/:id", s.deleteQuestion)

	return r
}
