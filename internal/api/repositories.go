package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	vcsurl "github.com/gitsight/go-vcsurl"

	"github.com/codequery/codequery/internal/db"
)

type createRepositoryRequest struct {
	RepoURL     string  `json:"repo_url" binding:"required"`
	Name        string  `json:"name"`
	Branch      string  `json:"branch"`
	Description *string `json:"description"`
}

type updateRepositoryRequest struct {
	Name   string `json:"name"`
	Branch string `json:"branch"`
	Action string `json:"action"` // "reanalyze" queues a fresh run
}

func (s *Server) createRepository(c *gin.Context) {
	var req createRepositoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := s.store.GetRepositoryByURL(c.Request.Context(), req.RepoURL)
	if err != nil {
		s.serverError(c, err)
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":         "Repository already exists",
			"repository_id": existing.ID,
		})
		return
	}

	branch := req.Branch
	if branch == "" {
		branch = "main"
	}
	repo := &db.Repository{
		Name:        repositoryName(req.Name, req.RepoURL),
		RepoURL:     req.RepoURL,
		Branch:      branch,
		Description: req.Description,
		Status:      db.RepoStatusPending,
		Languages:   map[string]int{},
	}
	if err := s.store.CreateRepository(c.Request.Context(), repo); err != nil {
		s.serverError(c, err)
		return
	}

	jobID := s.dispatcher.Dispatch(c.Request.Context(), repo.ID)

	c.JSON(http.StatusAccepted, gin.H{
		"repository": repo,
		"message":    "Repository analysis job queued",
		"job_id":     jobID,
	})
}

func (s *Server) listRepositories(c *gin.Context) {
	filter := db.RepositoryFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Limit:  queryInt(c, "limit", 20),
		Offset: queryInt(c, "offset", 0),
	}
	repos, total, err := s.store.ListRepositories(c.Request.Context(), filter)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":        total,
		"limit":        filter.Limit,
		"offset":       filter.Offset,
		"repositories": repos,
	})
}

func (s *Server) getRepository(c *gin.Context) {
	repo, ok := s.loadRepository(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, repo)
}

func (s *Server) updateRepository(c *gin.Context) {
	repo, ok := s.loadRepository(c)
	if !ok {
		return
	}

	var req updateRepositoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != "" {
		repo.Name = req.Name
	}
	if req.Branch != "" {
		repo.Branch = req.Branch
	}

	message := "Repository updated"
	var jobID *string
	if req.Action == "reanalyze" {
		repo.Status = db.RepoStatusPending
		message = "Re-analysis job queued"
	}

	if err := s.store.UpdateRepository(c.Request.Context(), repo); err != nil {
		s.serverError(c, err)
		return
	}

	if req.Action == "reanalyze" {
		id := s.dispatcher.Dispatch(c.Request.Context(), repo.ID)
		jobID = &id
	}

	c.JSON(http.StatusAccepted, gin.H{
		"repository": repo,
		"message":    message,
		"job_id":     jobID,
	})
}

func (s *Server) deleteRepository(c *gin.Context) {
	repo, ok := s.loadRepository(c)
	if !ok {
		return
	}
	if err := s.store.DeleteRepository(c.Request.Context(), repo.ID); err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "Repository and all associated data deleted successfully",
		"repository_id": repo.ID,
	})
}

// ── helpers ───────────────────────────────────────────────────────────────

// repositoryName derives a display name from the URL when none is supplied.
func repositoryName(name, rawURL string) string {
	if name != "" {
		return name
	}
	if info, err := vcsurl.Parse(rawURL); err == nil && info.Name != "" {
		return info.Name
	}
	trimmed := strings.TrimSuffix(strings.TrimRight(rawURL, "/"), ".git")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

func (s *Server) loadRepository(c *gin.Context) (*db.Repository, bool) {
	id, ok := pathID(c)
	if !ok {
		return nil, false
	}
	repo, err := s.store.GetRepository(c.Request.Context(), id)
	if err != nil {
		s.serverError(c, err)
		return nil, false
	}
	if repo == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Repository not found", "repository_id": id})
		return nil, false
	}
	return repo, true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func (s *Server) serverError(c *gin.Context, err error) {
	s.log.Error(err, "request failed", "path", c.FullPath())
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
