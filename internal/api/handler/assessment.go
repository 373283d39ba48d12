package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/gradebook/internal/api/models"
	"github.com/jon4hz/gradebook/internal/database"
	"gorm.io/gorm"
)

// ListAssessments returns the assessments of a course.
func (h *Handler) ListAssessments(c *gin.Context) {
	course := h.ownedCourse(c)
	if course == nil {
		return
	}

	assessments, err := h.db.GetAssessmentsByCourseID(c.Request.Context(), course.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to get assessments"})
		return
	}
	if assessments == nil {
		assessments = []database.Assessment{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "assessments": models.ToAssessments(assessments)})
}

// CreateAssessment records an assessment for a course.
func (h *Handler) CreateAssessment(c *gin.Context) {
	course := h.ownedCourse(c)
	if course == nil {
		return
	}

	var req models.AssessmentRequest
	if !bindAssessment(c, &req) {
		return
	}

	assessment := &database.Assessment{
		Name:     req.Name,
		Weight:   *req.Weight,
		Mark:     *req.Mark,
		CourseID: course.ID,
	}

	ctx := c.Request.Context()
	if err := h.db.CreateAssessment(ctx, assessment); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Course not found"})
			return
		}
		log.Error("Failed to create assessment", "course_id", course.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create assessment"})
		return
	}
	h.cache.Invalidate(ctx, course.ID)

	c.JSON(http.StatusCreated, gin.H{"success": true, "assessment": models.ToAssessment(assessment)})
}

// UpdateAssessment replaces the editable fields of an assessment.
func (h *Handler) UpdateAssessment(c *gin.Context) {
	assessment := h.ownedAssessment(c)
	if assessment == nil {
		return
	}

	var req models.AssessmentRequest
	if !bindAssessment(c, &req) {
		return
	}

	assessment.Name = req.Name
	assessment.Weight = *req.Weight
	assessment.Mark = *req.Mark

	ctx := c.Request.Context()
	if err := h.db.UpdateAssessment(ctx, assessment); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Assessment not found"})
			return
		}
		log.Error("Failed to update assessment", "id", assessment.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update assessment"})
		return
	}
	h.cache.Invalidate(ctx, assessment.CourseID)

	c.JSON(http.StatusOK, gin.H{"success": true, "assessment": models.ToAssessment(assessment)})
}

// DeleteAssessment deletes an assessment.
func (h *Handler) DeleteAssessment(c *gin.Context) {
	assessment := h.ownedAssessment(c)
	if assessment == nil {
		return
	}

	ctx := c.Request.Context()
	if err := h.db.DeleteAssessment(ctx, assessment.ID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error("Failed to delete assessment", "id", assessment.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to delete assessment"})
		return
	}
	h.cache.Invalidate(ctx, assessment.CourseID)

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Assessment deleted"})
}

func bindAssessment(c *gin.Context, req *models.AssessmentRequest) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": models.ValidationMessage(err)})
		return false
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Name is required"})
		return false
	}
	return true
}
