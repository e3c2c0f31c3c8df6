package progress

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ProgressInfo contains detailed progress information for a build run
type ProgressInfo struct {
	TotalTasks        int
	CompletedTasks    int
	FailedTasks       int
	CancelledTasks    int
	RunningTasks      int
	ElapsedTime       time.Duration
	EstimatedTimeLeft time.Duration
	TaskBreakdown     map[string]TaskStats
	CurrentOperation  string
}

// TaskStats provides statistics for each task type
type TaskStats struct {
	Total        int
	Completed    int
	Failed       int
	Running      int
	Pending      int
	RunningTasks []string // Names of currently running tasks
}

// Reporter handles progress reporting
type Reporter struct {
	startTime      time.Time
	lastReportTime time.Time
	reportInterval time.Duration
}

// NewReporter creates a new progress reporter
func NewReporter() *Reporter {
	return &Reporter{
		startTime:      time.Now(),
		lastReportTime: time.Now(),
		reportInterval: 5 * time.Second,
	}
}

// ShouldReport returns true if it's time to report progress
func (r *Reporter) ShouldReport() bool {
	return time.Since(r.lastReportTime) >= r.reportInterval
}

// Report generates a formatted progress report
func (r *Reporter) Report(info ProgressInfo) string {
	r.lastReportTime = time.Now()

	var sb strings.Builder

	percentage := 0.0
	if info.TotalTasks > 0 {
		percentage = float64(info.CompletedTasks) / float64(info.TotalTasks) * 100
	}

	sb.WriteString(fmt.Sprintf("Progress: %d/%d tasks completed (%.1f%%)",
		info.CompletedTasks, info.TotalTasks, percentage))
	sb.WriteString(fmt.Sprintf(" | Elapsed: %v", info.ElapsedTime.Round(time.Second)))
	if info.EstimatedTimeLeft > 0 {
		sb.WriteString(fmt.Sprintf(" | ETA: %s", FormatDuration(info.EstimatedTimeLeft)))
	}

	if info.CurrentOperation != "" {
		sb.WriteString(fmt.Sprintf("\n   Current: %s", info.CurrentOperation))
	}

	if len(info.TaskBreakdown) > 0 {
		types := make([]string, 0, len(info.TaskBreakdown))
		for taskType := range info.TaskBreakdown {
			types = append(types, taskType)
		}
		sort.Strings(types)

		sb.WriteString("\n   Task Status:")
		for _, taskType := range types {
			stats := info.TaskBreakdown[taskType]
			if stats.Total == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf("\n      %s: %d/%d completed",
				taskType, stats.Completed, stats.Total))
			if stats.Failed > 0 {
				sb.WriteString(fmt.Sprintf(", %d failed", stats.Failed))
			}
			if stats.Running > 0 {
				sb.WriteString(fmt.Sprintf(", %d running", stats.Running))
				if len(stats.RunningTasks) > 0 {
					sb.WriteString(fmt.Sprintf(" (%s)", strings.Join(stats.RunningTasks, ", ")))
				}
			}
			if stats.Pending > 0 {
				sb.WriteString(fmt.Sprintf(", %d pending", stats.Pending))
			}
		}
	}

	return sb.String()
}

// ReportTaskComplete reports task completion
func (r *Reporter) ReportTaskComplete(taskType, description string, duration time.Duration, success bool) string {
	status := "COMPLETED"
	if !success {
		status = "FAILED"
	}
	return fmt.Sprintf("  %s %s: %s (took %v)",
		status, taskType, description, duration.Round(time.Millisecond))
}

// CalculateETA estimates time remaining based on current progress
func CalculateETA(completed, total int, elapsed time.Duration) time.Duration {
	if completed <= 0 || total <= 0 || completed >= total {
		return 0
	}

	averageTimePerTask := elapsed / time.Duration(completed)
	remainingTasks := total - completed
	return averageTimePerTask * time.Duration(remainingTasks)
}

// FormatDuration formats a duration in a user-friendly way
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
