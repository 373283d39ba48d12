package models

import (
	"github.com/jon4hz/gradebook/internal/config"
	"github.com/jon4hz/gradebook/internal/database"
	"github.com/jon4hz/gradebook/internal/grade"
	"github.com/jon4hz/gradebook/internal/gravatar"
	"github.com/samber/lo"
)

// ToUser converts a database.User to its public form. The password hash never leaves the database layer.
func ToUser(u *database.User, gravatarCfg *config.GravatarConfig) User {
	return User{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		GravatarURL: gravatar.AvatarURL(u.Email, gravatarCfg),
		CreatedAt:   u.CreatedAt,
	}
}

// ToCourse converts a database.Course including its loaded assessments.
func ToCourse(c *database.Course) Course {
	return Course{
		ID:               c.ID,
		Name:             c.Name,
		Timestamp:        c.Timestamp,
		AssessmentNumber: c.AssessmentNumber,
		ClassWeight:      c.ClassWeight,
		ExamWeight:       c.ExamWeight,
		Assessments:      ToAssessments(c.Assessments),
	}
}

// ToCourses converts a slice of database.Course.
func ToCourses(courses []database.Course) []Course {
	return lo.Map(courses, func(c database.Course, _ int) Course {
		return ToCourse(&c)
	})
}

// ToAssessment converts a database.Assessment.
func ToAssessment(a *database.Assessment) Assessment {
	return Assessment{
		ID:       a.ID,
		CourseID: a.CourseID,
		Name:     a.Name,
		Weight:   a.Weight,
		Mark:     a.Mark,
	}
}

// ToAssessments converts a slice of database.Assessment. Nil stays nil.
func ToAssessments(assessments []database.Assessment) []Assessment {
	if assessments == nil {
		return nil
	}
	return lo.Map(assessments, func(a database.Assessment, _ int) Assessment {
		return ToAssessment(&a)
	})
}

// ToCourseSummary converts a grade.Summary. A non nil target adds the required exam mark.
func ToCourseSummary(s grade.Summary, target *float64) CourseSummary {
	resp := CourseSummary{
		Summary:      s,
		Complete:     s.Complete(),
		MaxFinalMark: s.FinalMark(grade.MaxMark),
	}
	if target != nil {
		req := s.RequiredExamMark(*target)
		resp.Requirement = &req
	}
	return resp
}
