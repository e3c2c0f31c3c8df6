// Package watch turns filesystem changes under the source tree into task
// runs and reload signals.
package watch

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/maxkimambo/sitepipe/internal/config"
	"github.com/maxkimambo/sitepipe/internal/pipeline"
)

// Subscription binds a watch category to the task it re-runs.
type Subscription struct {
	// Category names the subscription in logs and metrics.
	Category string
	// Pattern is a doublestar pattern relative to the source directory.
	Pattern string
	// Task is the pipeline task to run on a match.
	Task string
	// Reload sends a reload signal after the task succeeds.
	Reload bool
	// ReloadPath is the path announced to browsers. Empty announces the
	// changed source path.
	ReloadPath string
	// Enabled switches the subscription on.
	Enabled bool
}

// Matches reports whether a slash-separated source path belongs to s.
func (s Subscription) Matches(path string) bool {
	ok, _ := doublestar.Match(s.Pattern, path)
	return ok
}

// DefaultSubscriptions returns the stock watch table for cfg. The js and
// image tasks send their own reload, so the dispatcher does not.
func DefaultSubscriptions(cfg *config.Config) []Subscription {
	return []Subscription{
		{Category: "html", Pattern: "html/**/*.html", Task: pipeline.TaskHTML, Reload: true, Enabled: true},
		{Category: "js", Pattern: "js/**/*.js", Task: pipeline.TaskJSWatch, Enabled: true},
		{Category: "less", Pattern: "styles/**/*.less", Task: pipeline.TaskLess, Reload: true, ReloadPath: cfg.Less.Output, Enabled: true},
		{Category: "fonts", Pattern: "fonts/**/*", Task: pipeline.TaskFonts, Reload: true, Enabled: true},
		{Category: "data", Pattern: "data/*.js", Task: pipeline.TaskData, Reload: true, Enabled: true},
		{Category: "image", Pattern: "img/**/*", Task: pipeline.TaskImageWatch, Enabled: cfg.Watch.Images},
	}
}
