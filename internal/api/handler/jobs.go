package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jon4hz/gradebook/internal/scheduler"
)

// JobStatus exposes the state of the background jobs.
type JobStatus interface {
	GetJobs() []scheduler.JobInfo
	GetJob(id string) (scheduler.JobInfo, bool)
}

// JobHandler implements the job status endpoints.
type JobHandler struct {
	jobs JobStatus
}

// NewJobHandler creates a new job handler.
func NewJobHandler(jobs JobStatus) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// ListJobs returns all scheduled jobs.
func (h *JobHandler) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"jobs":    h.jobs.GetJobs(),
	})
}

// GetJob returns a single scheduled job.
func (h *JobHandler) GetJob(c *gin.Context) {
	job, ok := h.jobs.GetJob(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "job": job})
}
