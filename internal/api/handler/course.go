package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/gradebook/internal/api/auth"
	"github.com/jon4hz/gradebook/internal/api/models"
	"github.com/jon4hz/gradebook/internal/database"
	"github.com/jon4hz/gradebook/internal/grade"
	"gorm.io/gorm"
)

// ListCourses returns the courses of the current user, newest first.
func (h *Handler) ListCourses(c *gin.Context) {
	user := auth.CurrentUser(c)

	courses, err := h.db.GetCoursesByUserID(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to get courses"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "courses": models.ToCourses(courses)})
}

// CreateCourse creates a course for the current user.
func (h *Handler) CreateCourse(c *gin.Context) {
	user := auth.CurrentUser(c)

	var req models.CourseRequest
	if !bindCourse(c, &req) {
		return
	}

	course := &database.Course{
		Name:             req.Name,
		AssessmentNumber: *req.AssessmentNumber,
		ClassWeight:      *req.ClassWeight,
		ExamWeight:       *req.ExamWeight,
		UserID:           user.ID,
	}
	if err := h.db.CreateCourse(c.Request.Context(), course); err != nil {
		log.Error("Failed to create course", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create course"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"course":   models.ToCourse(course),
		"warnings": grade.CheckWeights(course, nil, h.weightTolerance),
	})
}

// GetCourse returns a course with its assessments.
func (h *Handler) GetCourse(c *gin.Context) {
	course := h.ownedCourse(c)
	if course == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "course": models.ToCourse(course)})
}

// UpdateCourse replaces the editable fields of a course.
func (h *Handler) UpdateCourse(c *gin.Context) {
	course := h.ownedCourse(c)
	if course == nil {
		return
	}

	var req models.CourseRequest
	if !bindCourse(c, &req) {
		return
	}

	course.Name = req.Name
	course.AssessmentNumber = *req.AssessmentNumber
	course.ClassWeight = *req.ClassWeight
	course.ExamWeight = *req.ExamWeight

	ctx := c.Request.Context()
	if err := h.db.UpdateCourse(ctx, course); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Course not found"})
			return
		}
		log.Error("Failed to update course", "id", course.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update course"})
		return
	}
	h.cache.Invalidate(ctx, course.ID)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"course":   models.ToCourse(course),
		"warnings": grade.CheckWeights(course, course.Assessments, h.weightTolerance),
	})
}

// DeleteCourse deletes a course and its assessments.
func (h *Handler) DeleteCourse(c *gin.Context) {
	course := h.ownedCourse(c)
	if course == nil {
		return
	}

	ctx := c.Request.Context()
	if err := h.db.DeleteCourse(ctx, course.ID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error("Failed to delete course", "id", course.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to delete course"})
		return
	}
	h.cache.Invalidate(ctx, course.ID)

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Course deleted"})
}

// CourseSummary returns the computed grade summary of a course.
// With a target query parameter the required exam mark is included.
func (h *Handler) CourseSummary(c *gin.Context) {
	var target *float64
	if raw := c.Query("target"); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil || t < 0 || t > grade.MaxMark {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "target must be a number between 0 and 100"})
			return
		}
		target = &t
	}

	course := h.ownedCourse(c)
	if course == nil {
		return
	}

	ctx := c.Request.Context()
	summary, ok := h.cache.Get(ctx, course.ID)
	if !ok {
		summary = grade.Evaluate(course, course.Assessments, h.weightTolerance)
		h.cache.Set(ctx, summary)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "summary": models.ToCourseSummary(summary, target)})
}

func bindCourse(c *gin.Context, req *models.CourseRequest) bool {
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
