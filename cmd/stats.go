package cmd

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jon4hz/gradebook/internal/database"
	"github.com/mergestat/timediff"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	Aliases: []string{"db-stats"},
	Short:   "Show database statistics",
	Long:    `Display statistics about users, courses and recorded assessments.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer db.Close() //nolint: errcheck

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get database stats: %w", err)
		}

		printStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func printStats(w io.Writer, stats *database.Stats) {
	fmt.Fprintln(w, "Database Statistics:")
	fmt.Fprintf(w, "Users: %s\n", humanize.Comma(stats.TotalUsers))
	fmt.Fprintf(w, "Courses: %s\n", humanize.Comma(stats.TotalCourses))
	fmt.Fprintf(w, "Assessments: %s\n", humanize.Comma(stats.TotalAssessments))
	fmt.Fprintf(w, "Assessments per Course: %s\n", humanize.FormatFloat("#,###.##", stats.AverageAssessmentsPerCourse))

	if stats.LatestCourseAt != nil {
		fmt.Fprintf(w, "Latest Course: %s\n", timediff.TimeDiff(*stats.LatestCourseAt))
	} else {
		fmt.Fprintln(w, "Latest Course: never")
	}
}
