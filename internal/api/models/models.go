package models

import (
	"time"

	"github.com/jon4hz/gradebook/internal/grade"
)

// User is the public representation of an account.
type User struct {
	ID          uint      `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	GravatarURL string    `json:"gravatarUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Course is the public representation of a course.
type Course struct {
	ID               uint         `json:"id"`
	Name             string       `json:"name"`
	Timestamp        time.Time    `json:"timestamp"`
	AssessmentNumber int          `json:"assessmentNumber"`
	ClassWeight      float64      `json:"classWeight"`
	ExamWeight       float64      `json:"examWeight"`
	Assessments      []Assessment `json:"assessments,omitempty"`
}

// Assessment is the public representation of an assessment.
type Assessment struct {
	ID       uint    `json:"id"`
	CourseID uint    `json:"courseId"`
	Name     string  `json:"name"`
	Weight   float64 `json:"weight"`
	Mark     float64 `json:"mark"`
}

// CourseSummary is the response of the course summary endpoint.
// MaxFinalMark is the final mark reached with a perfect exam.
type CourseSummary struct {
	grade.Summary
	Complete     bool               `json:"complete"`
	MaxFinalMark float64            `json:"maxFinalMark"`
	Requirement  *grade.Requirement `json:"requirement,omitempty"`
}

// RegisterRequest is the payload to create an account.
type RegisterRequest struct {
	Username string `json:"username" form:"username" binding:"required,min=3,max=64,username"`
	Email    string `json:"email" form:"email" binding:"required,email,max=120"`
	Password string `json:"password" form:"password" binding:"required"`
}

// LoginRequest is the payload to start a session.
// Username may also be the email address of the account.
type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// ChangePasswordRequest is the payload to change the current user's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" form:"current_password" binding:"required"`
	NewPassword     string `json:"newPassword" form:"new_password" binding:"required"`
}

// CourseRequest is the payload to create or replace a course.
type CourseRequest struct {
	Name             string   `json:"name" binding:"required,min=1,max=140"`
	AssessmentNumber *int     `json:"assessmentNumber" binding:"required,gte=0"`
	ClassWeight      *float64 `json:"classWeight" binding:"required,gte=0,lte=1"`
	ExamWeight       *float64 `json:"examWeight" binding:"required,gte=0,lte=1"`
}

// AssessmentRequest is the payload to create or replace an assessment.
type AssessmentRequest struct {
	Name   string   `json:"name" binding:"required,min=1,max=140"`
	Weight *float64 `json:"weight" binding:"required,gte=0,lte=1"`
	Mark   *float64 `json:"mark" binding:"required,gte=0,lte=100"`
}
