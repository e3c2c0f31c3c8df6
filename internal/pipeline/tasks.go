package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maxkimambo/sitepipe/internal/config"
	"github.com/maxkimambo/sitepipe/internal/dag"
	"github.com/maxkimambo/sitepipe/internal/logger"
	"github.com/maxkimambo/sitepipe/internal/metrics"
	"github.com/maxkimambo/sitepipe/internal/transform"
)

// iconDir holds the icon-font sources inside the image directory.
const iconDir = "_icons"

// actionTask is a declared pipeline task. Execute times the action and
// records the outcome.
type actionTask struct {
	*dag.BaseTask
	run func(ctx context.Context) error
	rec metrics.Recorder
}

func newTask(rec metrics.Recorder, id, action, description string, run func(ctx context.Context) error, deps ...string) *actionTask {
	return &actionTask{
		BaseTask: dag.NewBaseTask(id, action, description, deps...),
		run:      run,
		rec:      rec,
	}
}

// Execute implements dag.Task.
func (t *actionTask) Execute(ctx context.Context) error {
	start := time.Now()
	err := t.run(ctx)
	t.rec.ObserveTaskDuration(t.GetID(), time.Since(start))
	if err != nil {
		t.rec.IncTaskResult(t.GetID(), metrics.ResultFailed)
		return err
	}
	t.rec.IncTaskResult(t.GetID(), metrics.ResultSuccess)
	return nil
}

// Tasks returns the full task table for cfg. The table is static: tasks
// are declared once and never mutated.
func Tasks(cfg *config.Config, deps Deps) []dag.Task {
	deps = deps.withDefaults(cfg)
	rec := deps.Recorder
	images := transform.NewImageOptimizer(deps.Cache, cfg.Images.JPEGQuality, rec)

	return []dag.Task{
		newTask(rec, TaskHTML, ActionInclude, "Expand includes in html pages",
			func(ctx context.Context) error {
				n, err := transform.BuildHTML(cfg.Src("html"), cfg.Out())
				if err != nil {
					return err
				}
				logger.User.Buildf("html: %d pages", n)
				return nil
			}),
		newTask(rec, TaskLess, ActionCompile, "Compile and minify the stylesheet",
			func(ctx context.Context) error {
				dst := cfg.Out(cfg.Less.Output)
				if err := transform.CompileStylesheet(ctx, deps.Compiler, cfg.Src(cfg.Less.Entry), dst); err != nil {
					return err
				}
				logger.User.Buildf("less: %s", cfg.Less.Output)
				return nil
			}),
		newTask(rec, TaskJS, ActionConcat, "Concatenate and minify scripts",
			func(ctx context.Context) error {
				n, err := transform.BundleScripts(cfg.Src("js"), "**/*.js", cfg.Out("js", "main.js"))
				if err != nil {
					return err
				}
				logger.User.Buildf("js: %d files bundled", n)
				return nil
			}),
		newTask(rec, TaskImage, ActionCompress, "Compress images through the cache",
			func(ctx context.Context) error {
				stats, err := images.Optimize(ctx, cfg.Src("img"), cfg.Out("img"), iconDir+"/**")
				if err != nil {
					return err
				}
				logger.User.Buildf("image: %d compressed, %d copied", stats.Processed, stats.Copied)
				if stats.Cached > 0 {
					logger.User.Cachef("image: %d served from cache", stats.Cached)
				}
				return nil
			}),
		newTask(rec, TaskIconFont, ActionFont, "Build the icon font from svg icons",
			func(ctx context.Context) error {
				font, err := transform.BuildIconFont(cfg.Src("img", iconDir), cfg.Out("fonts", cfg.IconFont.Name),
					transform.IconFontOptions{
						Name:           cfg.IconFont.Name,
						StartCodepoint: cfg.IconFont.StartCodepoint,
						EmSize:         cfg.IconFont.EmSize,
					})
				if err != nil {
					return err
				}
				logger.User.Buildf("iconfont: %d glyphs", len(font.Glyphs))
				return nil
			}),
		newCopyTask(rec, TaskFonts, "Copy web fonts", cfg.Src("fonts"), "**/*", cfg.Out("fonts")),
		newCopyTask(rec, TaskData, "Copy content data verbatim", cfg.Src("data"), "*.js", cfg.Out("data")),
		newCopyTask(rec, TaskClip, "Copy video clips", cfg.Src("clip"), "**/*", cfg.Out("clip")),
		newTask(rec, TaskClear, ActionClearCache, "Empty the image cache",
			func(ctx context.Context) error {
				n, err := deps.Cache.Len(ctx)
				if err != nil {
					return fmt.Errorf("failed to inspect image cache: %w", err)
				}
				if err := deps.Cache.Clear(ctx); err != nil {
					return fmt.Errorf("failed to clear image cache: %w", err)
				}
				logger.User.Cleanupf("Image cache cleared (%d entries)", n)
				return nil
			}),
		newTask(rec, TaskJSWatch, ActionNotify, "Rebuild scripts and reload browsers",
			func(ctx context.Context) error {
				deps.Notifier.Reload("js/main.js")
				return nil
			}, TaskJS),
		newTask(rec, TaskImageWatch, ActionNotify, "Recompress images and reload browsers",
			func(ctx context.Context) error {
				deps.Notifier.Reload("img/")
				return nil
			}, TaskImage),
		newTask(rec, TaskBuild, ActionAggregate, "Build every output",
			func(ctx context.Context) error {
				logger.User.Success("Build complete")
				return nil
			}, TaskHTML, TaskJS, TaskLess, TaskImage, TaskFonts, TaskIconFont, TaskData),
		newTask(rec, TaskServer, ActionServe, "Serve the build directory",
			func(ctx context.Context) error {
				return start(ctx, TaskServer, deps.Serve)
			}),
		newTask(rec, TaskWatch, ActionWatch, "Rebuild on source changes",
			func(ctx context.Context) error {
				return start(ctx, TaskWatch, deps.Watch)
			}),
		newTask(rec, TaskDefault, ActionAggregate, "Build, then serve and watch",
			func(ctx context.Context) error {
				g, gctx := errgroup.WithContext(ctx)
				g.Go(func() error { return start(gctx, TaskServer, deps.Serve) })
				g.Go(func() error { return start(gctx, TaskWatch, deps.Watch) })
				return g.Wait()
			}, TaskBuild),
	}
}

func newCopyTask(rec metrics.Recorder, id, description, srcDir, pattern, dstDir string) *actionTask {
	return newTask(rec, id, ActionCopy, description, func(ctx context.Context) error {
		n, err := transform.Copy(id, srcDir, pattern, dstDir)
		if err != nil {
			return err
		}
		logger.User.Buildf("%s: %d files copied", id, n)
		return nil
	})
}

func start(ctx context.Context, name string, fn StartFunc) error {
	if fn == nil {
		return fmt.Errorf("%s is not available in this invocation", name)
	}
	return fn(ctx)
}
