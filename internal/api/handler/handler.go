package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/ccoveille/go-safecast"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/gradebook/internal/api/auth"
	"github.com/jon4hz/gradebook/internal/database"
	"github.com/jon4hz/gradebook/internal/grade"
	"gorm.io/gorm"
)

// SummaryCache caches computed course summaries.
type SummaryCache interface {
	Get(ctx context.Context, courseID uint) (grade.Summary, bool)
	Set(ctx context.Context, summary grade.Summary)
	Invalidate(ctx context.Context, courseID uint)
}

// Handler implements the course and assessment endpoints.
type Handler struct {
	db              database.DB
	cache           SummaryCache
	weightTolerance float64
}

// New creates a new handler.
func New(db database.DB, cache SummaryCache, weightTolerance float64) *Handler {
	return &Handler{
		db:              db,
		cache:           cache,
		weightTolerance: weightTolerance,
	}
}

// Health reports whether the database is reachable.
func (h *Handler) Health(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		log.Error("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok"})
}

func parseUintParam(param string) (uint, error) {
	id, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		return 0, err
	}
	return safecast.Convert[uint](id)
}

// ownedCourse loads the course of the :id param if it belongs to the current user.
// It writes the error response and returns nil otherwise.
func (h *Handler) ownedCourse(c *gin.Context) *database.Course {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid course ID"})
		return nil
	}

	course, err := h.db.GetCourseByID(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("Failed to get course", "id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to get course"})
			return nil
		}
		course = nil
	}

	// courses of other users are reported as missing
	if course == nil || course.UserID != auth.CurrentUser(c).ID {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Course not found"})
		return nil
	}
	return course
}

// ownedAssessment loads the assessment of the :id param if its course belongs to the current user.
func (h *Handler) ownedAssessment(c *gin.Context) *database.Assessment {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid assessment ID"})
		return nil
	}

	assessment, err := h.db.GetAssessmentByID(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("Failed to get assessment", "id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to get assessment"})
			return nil
		}
		assessment = nil
	}

	if assessment == nil || assessment.Course == nil || assessment.Course.UserID != auth.CurrentUser(c).ID {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Assessment not found"})
		return nil
	}
	return assessment
}
