package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// Assessment is a single graded item of a course.
type Assessment struct {
	ID        uint    `gorm:"primarykey"`
	Name      string  `gorm:"size:140;not null"`
	Weight    float64 // fraction of the class work
	Mark      float64 // percentage
	CourseID  uint    `gorm:"not null;index"`
	Course    *Course
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AssessmentDB defines the assessment related database operations.
type AssessmentDB interface {
	CreateAssessment(ctx context.Context, assessment *Assessment) error
	GetAssessmentByID(ctx context.Context, id uint) (*Assessment, error)
	GetAssessmentsByCourseID(ctx context.Context, courseID uint) ([]Assessment, error)
	UpdateAssessment(ctx context.Context, assessment *Assessment) error
	DeleteAssessment(ctx context.Context, id uint) error
}

func (a *Assessment) String() string {
	return fmt.Sprintf("<Assessment %s>", a.Name)
}

// CreateAssessment inserts an assessment, the course must exist.
func (c *Client) CreateAssessment(ctx context.Context, assessment *Assessment) error {
	var count int64
	if err := c.db.WithContext(ctx).Model(&Course{}).Where("id = ?", assessment.CourseID).Count(&count).Error; err != nil {
		log.Error("failed to check course", "error", err)
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}

	if err := c.db.WithContext(ctx).Omit("Course").Create(assessment).Error; err != nil {
		log.Error("failed to create assessment", "error", err)
		return err
	}
	return nil
}

// GetAssessmentByID returns the assessment with its course, so ownership can be checked.
func (c *Client) GetAssessmentByID(ctx context.Context, id uint) (*Assessment, error) {
	var assessment Assessment
	if err := c.db.WithContext(ctx).Preload("Course").First(&assessment, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get assessment by ID", "error", err)
		}
		return nil, err
	}
	return &assessment, nil
}

func (c *Client) GetAssessmentsByCourseID(ctx context.Context, courseID uint) ([]Assessment, error) {
	var assessments []Assessment
	if err := c.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("id ASC").
		Find(&assessments).Error; err != nil {
		log.Error("failed to get assessments by course ID", "error", err)
		return nil, err
	}
	return assessments, nil
}

func (c *Client) UpdateAssessment(ctx context.Context, assessment *Assessment) error {
	result := c.db.WithContext(ctx).
		Model(&Assessment{ID: assessment.ID}).
		Select("name", "weight", "mark").
		Updates(assessment)
	if result.Error != nil {
		log.Error("failed to update assessment", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (c *Client) DeleteAssessment(ctx context.Context, id uint) error {
	result := c.db.WithContext(ctx).Delete(&Assessment{}, id)
	if result.Error != nil {
		log.Error("failed to delete assessment", "assessment_id", id, "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
