package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codequery/codequery/internal/db"
)

type askQuestionRequest struct {
	Question string `json:"question" binding:"required"`
}

func (s *Server) askQuestion(c *gin.Context) {
	repo, ok := s.loadRepository(c)
	if !ok {
		return
	}
	if repo.Status != db.RepoStatusReady {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Repository not ready for questions",
			"status":  repo.Status,
			"message": "Please wait for analysis to complete",
		})
		return
	}

	var req askQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.answerer.Answer(c.Request.Context(), repo.ID, req.Question)
	if err != nil {
		s.serverError(c, err)
		return
	}

	// The Question row is persisted either way; a degraded answer still
	// reports what retrieval found.
	if result.Degraded {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":             "Generation backend is unavailable",
			"question_id":       result.Question.ID,
			"sources_retrieved": result.Question.Sources,
		})
		return
	}

	c.JSON(http.StatusOK, result.Question)
}

func (s *Server) listQuestions(c *gin.Context) {
	repo, ok := s.loadRepository(c)
	if !ok {
		return
	}
	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)

	questions, total, err := s.store.ListQuestions(c.Request.Context(), repo.ID, limit, offset)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":     total,
		"limit":     limit,
		"offset":    offset,
		"questions": questions,
	})
}

func (s *Server) getQuestion(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	question, err := s.store.GetQuestion(c.Request.Context(), id)
	if err != nil {
		s.serverError(c, err)
		return
	}
	if question == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Question not found", "question_id": id})
		return
	}
	c.JSON(http.StatusOK, question)
}

func (s *Server) deleteQuestion(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	question, err := s.store.GetQuestion(c.Request.Context(), id)
	if err != nil {
		s.serverError(c, err)
		return
	}
	if question == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Question not found", "question_id": id})
		return
	}
	if err := s.store.DeleteQuestion(c.Request.Context(), id); err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Question deleted successfully",
		"question_id": id,
	})
}
