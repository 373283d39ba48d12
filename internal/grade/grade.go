// Package grade derives marks from a course's weighting and its recorded assessments.
package grade

import (
	"fmt"
	"math"

	"github.com/jon4hz/gradebook/internal/database"
	"github.com/samber/lo"
)

// MaxMark is the highest mark an assessment or exam can get.
const MaxMark = 100.0

// Summary is the computed state of a single course.
type Summary struct {
	CourseID            uint    `json:"courseId"`
	ClassWeight         float64 `json:"classWeight"`
	ExamWeight          float64 `json:"examWeight"`
	AssessmentsRecorded int     `json:"assessmentsRecorded"`
	AssessmentsExpected int     `json:"assessmentsExpected"`
	RecordedWeight      float64 `json:"recordedWeight"`
	// ClassAverage is the weighted average of all recorded assessment marks.
	ClassAverage float64 `json:"classAverage"`
	// ClassContribution is the part of the final mark already earned through class work.
	ClassContribution float64 `json:"classContribution"`
	// Warnings is only filled by Evaluate.
	Warnings []Warning `json:"warnings,omitempty"`
}

// Requirement describes the exam mark needed to reach a target final mark.
type Requirement struct {
	Target float64 `json:"target"`
	// ExamMark is nil when the course has no exam weight.
	ExamMark    *float64 `json:"examMark"`
	Secured     bool     `json:"secured"`
	Unreachable bool     `json:"unreachable"`
}

// Summarize computes the summary of a course from its assessments.
func Summarize(course *database.Course, assessments []database.Assessment) Summary {
	totalWeight := lo.SumBy(assessments, func(a database.Assessment) float64 { return a.Weight })
	weighted := lo.SumBy(assessments, func(a database.Assessment) float64 { return a.Weight * a.Mark })

	var average float64
	if totalWeight > 0 {
		average = weighted / totalWeight
	}

	return Summary{
		CourseID:            course.ID,
		ClassWeight:         course.ClassWeight,
		ExamWeight:          course.ExamWeight,
		AssessmentsRecorded: len(assessments),
		AssessmentsExpected: course.AssessmentNumber,
		RecordedWeight:      totalWeight,
		ClassAverage:        average,
		ClassContribution:   course.ClassWeight * average,
	}
}

// Evaluate summarizes a course and checks its weights.
func Evaluate(course *database.Course, assessments []database.Assessment, tolerance float64) Summary {
	s := Summarize(course, assessments)
	s.Warnings = CheckWeights(course, assessments, tolerance)
	return s
}

// Complete reports whether all expected assessments have been recorded.
func (s Summary) Complete() bool {
	return s.AssessmentsRecorded >= s.AssessmentsExpected
}

// FinalMark returns the final mark for a given exam mark.
func (s Summary) FinalMark(examMark float64) float64 {
	return s.ClassContribution + s.ExamWeight*examMark
}

// RequiredExamMark returns the exam mark needed to reach target.
func (s Summary) RequiredExamMark(target float64) Requirement {
	req := Requirement{Target: target}
	if s.ExamWeight <= 0 {
		req.Secured = s.ClassContribution >= target
		req.Unreachable = !req.Secured
		return req
	}

	// flags are decided on the reported two decimal value
	mark := math.Round((target-s.ClassContribution)/s.ExamWeight*100) / 100
	switch {
	case mark <= 0:
		req.Secured = true
		mark = 0
	case mark > MaxMark:
		req.Unreachable = true
	}
	req.ExamMark = &mark
	return req
}

// Warning describes an inconsistency in a course's weighting.
// Weights are never enforced, warnings are informational only.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	WarningCourseWeights     = "course_weights"
	WarningAssessmentWeights = "assessment_weights"
	WarningTooManyRecorded   = "too_many_assessments"
)

// CheckWeights returns the weighting inconsistencies of a course.
func CheckWeights(course *database.Course, assessments []database.Assessment, tolerance float64) []Warning {
	var warnings []Warning

	if sum := course.ClassWeight + course.ExamWeight; math.Abs(sum-1) > tolerance {
		warnings = append(warnings, Warning{
			Code:    WarningCourseWeights,
			Message: fmt.Sprintf("class weight and exam weight add up to %.3f instead of 1", sum),
		})
	}

	if sum := lo.SumBy(assessments, func(a database.Assessment) float64 { return a.Weight }); sum > 1+tolerance {
		warnings = append(warnings, Warning{
			Code:    WarningAssessmentWeights,
			Message: fmt.Sprintf("assessment weights add up to %.3f which is more than 1", sum),
		})
	}

	if len(assessments) > course.AssessmentNumber {
		warnings = append(warnings, Warning{
			Code:    WarningTooManyRecorded,
			Message: fmt.Sprintf("%d assessments recorded but only %d expected", len(assessments), course.AssessmentNumber),
		})
	}

	return warnings
}
