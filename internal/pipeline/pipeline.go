// Package pipeline declares the site's task table and runs named targets
// through the task graph executor.
package pipeline

import (
	"context"

	"github.com/maxkimambo/sitepipe/internal/cache"
	"github.com/maxkimambo/sitepipe/internal/config"
	"github.com/maxkimambo/sitepipe/internal/metrics"
	"github.com/maxkimambo/sitepipe/internal/transform"
)

// Task names.
const (
	TaskServer     = "server"
	TaskHTML       = "html"
	TaskLess       = "less"
	TaskImage      = "image"
	TaskIconFont   = "iconfont"
	TaskFonts      = "fonts"
	TaskData       = "data"
	TaskJS         = "js"
	TaskJSWatch    = "js-watch"
	TaskImageWatch = "image-watch"
	TaskBuild      = "build"
	TaskWatch      = "watch"
	TaskClip       = "clip"
	TaskClear      = "clear"
	TaskDefault    = "default"
)

// Task actions, reported as the task type.
const (
	ActionCopy       = "copy"
	ActionInclude    = "include"
	ActionCompile    = "compile"
	ActionConcat     = "concatenate"
	ActionCompress   = "compress"
	ActionFont       = "synthesize-font"
	ActionNotify     = "notify"
	ActionClearCache = "clear-cache"
	ActionServe      = "serve"
	ActionWatch      = "watch"
	ActionAggregate  = "aggregate"
)

// Notifier receives reload signals after outputs change. The dev server
// implements it.
type Notifier interface {
	Reload(path string)
}

// StartFunc runs a long-lived component until ctx is cancelled.
type StartFunc func(ctx context.Context) error

// Deps are the collaborators injected into the task table. Nil fields get
// in-process defaults.
type Deps struct {
	Cache    cache.Cache
	Compiler transform.Compiler
	Notifier Notifier
	Recorder metrics.Recorder
	Serve    StartFunc
	Watch    StartFunc
}

type nopNotifier struct{}

func (nopNotifier) Reload(string) {}

func (d Deps) withDefaults(cfg *config.Config) Deps {
	if d.Cache == nil {
		d.Cache = cache.NewMemoryCache()
	}
	if d.Compiler == nil {
		d.Compiler = transform.ExecCompiler{Command: cfg.Less.Command}
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Recorder == nil {
		d.Recorder = metrics.NoopRecorder{}
	}
	return d
}
