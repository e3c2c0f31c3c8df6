package utils

import (
	"strings"
	"time"

	"github.com/maxkimambo/sitepipe/internal/dag"
	buildErrors "github.com/maxkimambo/sitepipe/internal/errors"
)

// TaskTable lists declared tasks with their action, dependencies and
// description.
func TaskTable(tasks []dag.Task) string {
	table := NewTableFormatter("TASK", "ACTION", "DEPENDS ON", "DESCRIPTION")
	for _, t := range tasks {
		deps := strings.Join(t.GetDependencies(), ", ")
		if deps == "" {
			deps = "-"
		}
		table.AddRow(t.GetID(), t.GetType(), deps, t.GetDescription())
	}
	return table.String()
}

// ResultTable lists every task of a run in execution order with its
// outcome and duration.
func ResultTable(result *dag.ExecutionResult) string {
	table := NewTableFormatter("TASK", "STATUS", "DURATION")
	for _, id := range result.Order {
		r := result.NodeResults[id]
		if r == nil {
			continue
		}
		status, duration := "ok", r.Duration.Round(time.Millisecond).String()
		switch {
		case r.Cancelled:
			status, duration = "cancelled", "-"
		case r.Error != nil:
			status = "failed"
		case !r.Success:
			status, duration = "not run", "-"
		}
		table.AddRow(id, status, duration)
	}
	return table.String()
}

// FailureReport explains which tasks failed and which were skipped as a
// consequence.
func FailureReport(result *dag.ExecutionResult) string {
	rb := NewReportBuilder()
	if failed := result.Failed(); len(failed) > 0 {
		rb.Section("Failed:")
		for _, id := range failed {
			rb.AddBullet(id + ": " + buildErrors.DisplayErrorSummary(result.NodeResults[id].Error))
		}
	}
	if cancelled := result.Cancelled(); len(cancelled) > 0 {
		rb.Section("Skipped because a dependency failed:")
		for _, id := range cancelled {
			rb.AddBullet(id)
		}
	}
	return strings.TrimPrefix(rb.Build(), "\n")
}
