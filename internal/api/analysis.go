package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codequery/codequery/internal/db"
)

func (s *Server) analysisStatus(c *gin.Context) {
	repo, ok := s.loadRepository(c)
	if !ok {
		return
	}

	job, err := s.store.LatestJob(c.Request.Context(), repo.ID)
	if err != nil {
		s.serverError(c, err)
		return
	}
	if job == nil {
		// Accepted but not yet started: the run creates the job row, so a
		// pending repository without one reports a synthetic queued state.
		if repo.Status == db.RepoStatusPending {
			c.JSON(http.StatusOK, gin.H{
				"repository_id":       repo.ID,
				"status":              db.JobStatusQueued,
				"progress_percentage": 0,
			})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{
			"error":         "No analysis job found for repository",
			"repository_id": repo.ID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"repository_id":       repo.ID,
		"status":              job.Status,
		"job_id":              job.TaskID,
		"progress_percentage": job.ProgressPercentage,
		"error_message":       job.ErrorMessage,
		"started_at":          job.StartedAt,
		"completed_at":        job.CompletedAt,
	})
}

func (s *Server) statistics(c *gin.Context) {
	repo, ok := s.loadRepository(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	functions, err := s.store.CountChunksByType(ctx, repo.ID, "function")
	if err != nil {
		s.serverError(c, err)
		return
	}
	classes, err := s.store.CountChunksByType(ctx, repo.ID, "class")
	if err != nil {
		s.serverError(c, err)
		return
	}
	stats, err := s.store.QuestionStatsByRepository(ctx, repo.ID)
	if err != nil {
		s.serverError(c, err)
		return
	}

	var avgTime *float64
	if stats.AvgProcessingTime.Valid {
		avgTime = &stats.AvgProcessingTime.Float64
	}

	c.JSON(http.StatusOK, gin.H{
		"repository_id": repo.ID,
		"code_statistics": gin.H{
			"total_files":     repo.TotalFiles,
			"total_lines":     repo.TotalLines,
			"total_functions": functions,
			"total_classes":   classes,
			"languages":       repo.Languages,
		},
		"usage_statistics": gin.H{
			"total_questions_asked":    stats.Total,
			"average_response_time_ms": avgTime,
		},
	})
}

func (s *Server) health(c *gin.Context) {
	ctx := c.Request.Context()

	dbStatus := "connected"
	if err := s.dbPing.Ping(ctx); err != nil {
		dbStatus = "disconnected"
	}
	queueStatus := "connected"
	if s.queue == nil || !s.queue.Probe(ctx) {
		queueStatus = "disconnected"
	}

	status := "healthy"
	if dbStatus != "connected" {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"services": gin.H{
			"database": dbStatus,
			"queue":    queueStatus,
		},
	})
}
