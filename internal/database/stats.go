package database

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// Stats provides overall database statistics.
type Stats struct {
	TotalUsers                  int64
	TotalCourses                int64
	TotalAssessments            int64
	AverageAssessmentsPerCourse float64
	LatestCourseAt              *time.Time
}

func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats

	if err := c.db.WithContext(ctx).Model(&User{}).Count(&stats.TotalUsers).Error; err != nil {
		log.Error("failed to count users", "error", err)
		return nil, err
	}
	if err := c.db.WithContext(ctx).Model(&Course{}).Count(&stats.TotalCourses).Error; err != nil {
		log.Error("failed to count courses", "error", err)
		return nil, err
	}
	if err := c.db.WithContext(ctx).Model(&Assessment{}).Count(&stats.TotalAssessments).Error; err != nil {
		log.Error("failed to count assessments", "error", err)
		return nil, err
	}

	if stats.TotalCourses > 0 {
		stats.AverageAssessmentsPerCourse = float64(stats.TotalAssessments) / float64(stats.TotalCourses)

		var latest Course
		if err := c.db.WithContext(ctx).Order("timestamp DESC").First(&latest).Error; err != nil {
			log.Error("failed to get latest course", "error", err)
			return nil, err
		}
		stats.LatestCourseAt = &latest.Timestamp
	}

	return &stats, nil
}
