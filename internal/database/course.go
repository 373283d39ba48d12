package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// Course belongs to exactly one user and owns its assessments.
// ClassWeight and ExamWeight are fractions of the final mark, nothing enforces that they add up to 1.
type Course struct {
	ID               uint      `gorm:"primarykey"`
	Name             string    `gorm:"size:140;not null"`
	Timestamp        time.Time `gorm:"index"`
	AssessmentNumber int
	ClassWeight      float64
	ExamWeight       float64
	UserID           uint         `gorm:"not null;index"`
	Student          *User        `gorm:"foreignKey:UserID"`
	Assessments      []Assessment `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE;"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CourseDB defines the course related database operations.
type CourseDB interface {
	CreateCourse(ctx context.Context, course *Course) error
	GetCourseByID(ctx context.Context, id uint) (*Course, error)
	GetCoursesByUserID(ctx context.Context, userID uint) ([]Course, error)
	GetAllCourses(ctx context.Context) ([]Course, error)
	UpdateCourse(ctx context.Context, course *Course) error
	DeleteCourse(ctx context.Context, id uint) error
}

func (c *Course) String() string {
	return fmt.Sprintf("<Course %s>", c.Name)
}

// BeforeCreate defaults the timestamp to the current UTC time.
func (c *Course) BeforeCreate(_ *gorm.DB) error {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	return nil
}

func (c *Client) CreateCourse(ctx context.Context, course *Course) error {
	if err := c.db.WithContext(ctx).Omit("Student", "Assessments").Create(course).Error; err != nil {
		log.Error("failed to create course", "error", err)
		return err
	}
	return nil
}

// GetCourseByID returns the course with its assessments.
func (c *Client) GetCourseByID(ctx context.Context, id uint) (*Course, error) {
	var course Course
	if err := c.db.WithContext(ctx).
		Preload("Assessments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&course, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get course by ID", "error", err)
		}
		return nil, err
	}
	return &course, nil
}

func (c *Client) GetCoursesByUserID(ctx context.Context, userID uint) ([]Course, error) {
	var courses []Course
	if err := c.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Find(&courses).Error; err != nil {
		log.Error("failed to get courses by user ID", "error", err)
		return nil, err
	}
	return courses, nil
}

// GetAllCourses returns every course with its assessments and owner.
func (c *Client) GetAllCourses(ctx context.Context) ([]Course, error) {
	var courses []Course
	if err := c.db.WithContext(ctx).
		Preload("Assessments").
		Preload("Student").
		Order("id ASC").
		Find(&courses).Error; err != nil {
		log.Error("failed to get all courses", "error", err)
		return nil, err
	}
	return courses, nil
}

func (c *Client) UpdateCourse(ctx context.Context, course *Course) error {
	result := c.db.WithContext(ctx).
		Model(&Course{ID: course.ID}).
		Select("name", "assessment_number", "class_weight", "exam_weight").
		Updates(course)
	if result.Error != nil {
		log.Error("failed to update course", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteCourse removes a course and its assessments.
func (c *Client) DeleteCourse(ctx context.Context, id uint) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", id).Delete(&Assessment{}).Error; err != nil {
			log.Error("failed to delete assessments of course", "course_id", id, "error", err)
			return err
		}
		result := tx.Delete(&Course{}, id)
		if result.Error != nil {
			log.Error("failed to delete course", "course_id", id, "error", result.Error)
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
