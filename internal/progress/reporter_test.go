package progress

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReport_SortsTaskTypes(t *testing.T) {
	r := NewReporter()
	out := r.Report(ProgressInfo{
		TotalTasks:     4,
		CompletedTasks: 2,
		ElapsedTime:    3 * time.Second,
		TaskBreakdown: map[string]TaskStats{
			"transform": {Total: 3, Completed: 1, Running: 1, Pending: 1, RunningTasks: []string{"less"}},
			"copy":      {Total: 1, Completed: 1},
		},
	})

	assert.Contains(t, out, "Progress: 2/4 tasks completed (50.0%)")
	assert.Contains(t, out, "transform: 1/3 completed, 1 running (less), 1 pending")
	assert.Less(t, strings.Index(out, "copy:"), strings.Index(out, "transform:"))
}

func TestCalculateETA(t *testing.T) {
	assert.Equal(t, time.Duration(0), CalculateETA(0, 10, time.Second))
	assert.Equal(t, time.Duration(0), CalculateETA(10, 10, time.Second))
	assert.Equal(t, 3*time.Second, CalculateETA(1, 4, time.Second))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "42s", FormatDuration(42*time.Second))
	assert.Equal(t, "2m 5s", FormatDuration(125*time.Second))
	assert.Equal(t, "1h 1m", FormatDuration(61*time.Minute))
}

func TestReportTaskComplete(t *testing.T) {
	r := NewReporter()
	assert.Equal(t, "  FAILED copy: data (took 15ms)",
		r.ReportTaskComplete("copy", "data", 15*time.Millisecond, false))
}
