package grade

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/gradebook/internal/database"
)

// CourseWarnings groups the weight warnings of a single course.
type CourseWarnings struct {
	CourseID   uint
	CourseName string
	Student    string
	Warnings   []Warning
}

// Audit checks the weights of every stored course and returns the courses
// with at least one warning.
func Audit(ctx context.Context, db database.CourseDB, tolerance float64) ([]CourseWarnings, error) {
	courses, err := db.GetAllCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load courses: %w", err)
	}

	var flagged []CourseWarnings
	for i := range courses {
		if err := ctx.Err(); err != nil {
			return flagged, err
		}
		course := &courses[i]
		warnings := CheckWeights(course, course.Assessments, tolerance)
		if len(warnings) == 0 {
			continue
		}
		cw := CourseWarnings{
			CourseID:   course.ID,
			CourseName: course.Name,
			Warnings:   warnings,
		}
		if course.Student != nil {
			cw.Student = course.Student.Username
		}
		flagged = append(flagged, cw)
	}
	return flagged, nil
}

// AuditJob returns a job that runs Audit and logs every warning.
func AuditJob(db database.CourseDB, tolerance float64) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		flagged, err := Audit(ctx, db, tolerance)
		if err != nil {
			return err
		}
		for _, cw := range flagged {
			for _, w := range cw.Warnings {
				log.Warn("Inconsistent course weights",
					"course_id", cw.CourseID,
					"course", cw.CourseName,
					"student", cw.Student,
					"code", w.Code,
					"message", w.Message,
				)
			}
		}
		log.Info("Weight audit finished", "flagged_courses", len(flagged))
		return nil
	}
}
