package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxkimambo/sitepipe/internal/cache"
	"github.com/maxkimambo/sitepipe/internal/config"
	"github.com/maxkimambo/sitepipe/internal/dag"
	buildErrors "github.com/maxkimambo/sitepipe/internal/errors"
	"github.com/maxkimambo/sitepipe/internal/metrics"
)

type stubCompiler struct {
	css []byte
	err error
}

func (c stubCompiler) Compile(_ context.Context, _ string) ([]byte, error) {
	return c.css, c.err
}

type recordingNotifier struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNotifier) Reload(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *recordingNotifier) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

type countingRecorder struct {
	metrics.NoopRecorder
	hits   atomic.Int64
	misses atomic.Int64
	mu     sync.Mutex
	runs   map[string]map[metrics.ResultLabel]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{runs: make(map[string]map[metrics.ResultLabel]int)}
}

func (r *countingRecorder) IncCacheLookup(hit bool) {
	if hit {
		r.hits.Add(1)
	} else {
		r.misses.Add(1)
	}
}

func (r *countingRecorder) IncTaskResult(task string, result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs[task] == nil {
		r.runs[task] = make(map[metrics.ResultLabel]int)
	}
	r.runs[task][result]++
}

func (r *countingRecorder) count(task string, result metrics.ResultLabel) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[task][result]
}

func (r *countingRecorder) reset() {
	r.hits.Store(0)
	r.misses.Store(0)
}

const contentData = `var content = {
  "title": "American Made",
  "cast": [{"name": "Lead", "role": "Pilot"}],
  "release": {"year": 2017}
};
`

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// newProject lays out a small site under a temp root.
func newProject(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default(root)
	cfg.Cache.Path = ":memory:"

	writeFile(t, cfg.Src("html", "index.html"),
		[]byte(`<html><body>@@include('_header.html', {"title": "American Made"})<p>main</p></body></html>`))
	writeFile(t, cfg.Src("html", "_header.html"), []byte(`<h1>@@title</h1>`))
	writeFile(t, cfg.Src("js", "a.js"), []byte("var a = 1;"))
	writeFile(t, cfg.Src("js", "lib", "b.js"), []byte("var b = 2;"))
	writeFile(t, cfg.Src("styles", "main.less"), []byte("@c: red; body { color: @c; }"))
	writeFile(t, cfg.Src("img", "red.png"), pngBytes(t, color.RGBA{R: 255, A: 255}))
	writeFile(t, cfg.Src("img", "nested", "blue.png"), pngBytes(t, color.RGBA{B: 255, A: 255}))
	writeFile(t, cfg.Src("img", "_icons", "play.svg"),
		[]byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"><path d="M0 0L10 10"/></svg>`))
	writeFile(t, cfg.Src("fonts", "site.woff"), []byte("wOFF-font-bytes"))
	writeFile(t, cfg.Src("data", "content.js"), []byte(contentData))
	writeFile(t, cfg.Src("clip", "trailer.mp4"), []byte("not really a video"))
	return cfg
}

func newTestRunner(t *testing.T, cfg *config.Config, deps Deps) *Runner {
	t.Helper()
	if deps.Compiler == nil {
		deps.Compiler = stubCompiler{css: []byte("body { color: #ff0000; }\n")}
	}
	r, err := NewRunner(cfg, deps)
	require.NoError(t, err)
	r.executor.ProgressInterval = 0
	return r
}

func TestTasks_TableShape(t *testing.T) {
	cfg := config.Default(t.TempDir())
	tasks := Tasks(cfg, Deps{})

	expectedDeps := map[string][]string{
		TaskServer:     nil,
		TaskHTML:       nil,
		TaskLess:       nil,
		TaskImage:      nil,
		TaskIconFont:   nil,
		TaskFonts:      nil,
		TaskData:       nil,
		TaskJS:         nil,
		TaskJSWatch:    {TaskJS},
		TaskImageWatch: {TaskImage},
		TaskBuild:      {TaskHTML, TaskJS, TaskLess, TaskImage, TaskFonts, TaskIconFont, TaskData},
		TaskWatch:      nil,
		TaskClip:       nil,
		TaskClear:      nil,
		TaskDefault:    {TaskBuild},
	}

	require.Len(t, tasks, len(expectedDeps))
	for _, task := range tasks {
		want, ok := expectedDeps[task.GetID()]
		require.True(t, ok, "unexpected task %s", task.GetID())
		assert.ElementsMatch(t, want, task.GetDependencies(), task.GetID())
		assert.NotEmpty(t, task.GetDescription())
		assert.NotEmpty(t, task.GetType())
	}

	_, err := dag.Build(tasks)
	assert.NoError(t, err)
}

func TestRunner_Build(t *testing.T) {
	cfg := newProject(t)
	rec := newCountingRecorder()
	r := newTestRunner(t, cfg, Deps{Recorder: rec})

	result, err := r.Run(context.Background(), TaskBuild)
	require.NoError(t, err)
	require.True(t, result.Success)

	for _, id := range []string{TaskHTML, TaskJS, TaskLess, TaskImage, TaskFonts, TaskIconFont, TaskData, TaskBuild} {
		assert.Equal(t, 1, rec.count(id, metrics.ResultSuccess), id)
	}
	assert.NotContains(t, result.NodeResults, TaskClip)
	assert.NotContains(t, result.NodeResults, TaskServer)
	assert.Equal(t, TaskBuild, result.Order[len(result.Order)-1])

	html, err := os.ReadFile(cfg.Out("index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "<h1>American Made</h1><p>main</p>")
	assert.NoFileExists(t, cfg.Out("_header.html"))

	data, err := os.ReadFile(cfg.Out("data", "content.js"))
	require.NoError(t, err)
	assert.Equal(t, []byte(contentData), data)

	assert.FileExists(t, cfg.Out("main.css"))
	assert.FileExists(t, cfg.Out("js", "main.js"))
	assert.FileExists(t, cfg.Out("img", "red.png"))
	assert.FileExists(t, cfg.Out("img", "nested", "blue.png"))
	assert.NoFileExists(t, cfg.Out("img", "_icons", "play.svg"))
	assert.FileExists(t, cfg.Out("fonts", "site.woff"))
	assert.FileExists(t, cfg.Out("fonts", cfg.IconFont.Name, cfg.IconFont.Name+".svg"))
	assert.FileExists(t, cfg.Out("fonts", cfg.IconFont.Name, "glyphs.json"))
}

func TestRunner_SharedDependencyRunsOnce(t *testing.T) {
	cfg := newProject(t)
	rec := newCountingRecorder()
	notifier := &recordingNotifier{}
	r := newTestRunner(t, cfg, Deps{Recorder: rec, Notifier: notifier})

	_, err := r.Run(context.Background(), TaskBuild, TaskJSWatch, TaskImageWatch)
	require.NoError(t, err)

	assert.Equal(t, 1, rec.count(TaskJS, metrics.ResultSuccess))
	assert.Equal(t, 1, rec.count(TaskImage, metrics.ResultSuccess))
	assert.ElementsMatch(t, []string{"js/main.js", "img/"}, notifier.Paths())
}

func TestRunner_ImageCache(t *testing.T) {
	cfg := newProject(t)
	rec := newCountingRecorder()
	c := cache.NewMemoryCache()
	r := newTestRunner(t, cfg, Deps{Recorder: rec, Cache: c})
	ctx := context.Background()

	_, err := r.Run(ctx, TaskImage)
	require.NoError(t, err)
	assert.EqualValues(t, 2, rec.misses.Load())
	assert.EqualValues(t, 0, rec.hits.Load())

	t.Run("warm cache reprocesses nothing", func(t *testing.T) {
		rec.reset()
		_, err := r.Run(ctx, TaskImage)
		require.NoError(t, err)
		assert.EqualValues(t, 0, rec.misses.Load())
		assert.EqualValues(t, 2, rec.hits.Load())
	})

	t.Run("clear forces reprocessing", func(t *testing.T) {
		_, err := r.Run(ctx, TaskClear)
		require.NoError(t, err)
		n, err := c.Len(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		rec.reset()
		_, err = r.Run(ctx, TaskImage)
		require.NoError(t, err)
		assert.EqualValues(t, 2, rec.misses.Load())
		assert.EqualValues(t, 0, rec.hits.Load())
	})

	t.Run("clear then image in one run", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			_, err := r.Run(ctx, TaskImage)
			require.NoError(t, err)

			rec.reset()
			result, err := r.Run(ctx, TaskClear, TaskImage)
			require.NoError(t, err)
			assert.Equal(t, []string{TaskClear, TaskImage}, result.Order)
			assert.EqualValues(t, 2, rec.misses.Load())
			assert.EqualValues(t, 0, rec.hits.Load())
		}
	})
}

func TestRunner_TargetsRunInOrder(t *testing.T) {
	cfg := newProject(t)
	rec := newCountingRecorder()
	r := newTestRunner(t, cfg, Deps{Recorder: rec})

	result, err := r.Run(context.Background(), TaskJS, TaskJSWatch, TaskBuild)
	require.NoError(t, err)

	assert.Equal(t, []string{TaskJS, TaskJSWatch}, result.Order[:2])
	assert.Equal(t, TaskBuild, result.Order[len(result.Order)-1])
	assert.NotContains(t, result.Order[2:], TaskJS)
	assert.Equal(t, 1, rec.count(TaskJS, metrics.ResultSuccess))
	assert.Equal(t, 1, rec.count(TaskBuild, metrics.ResultSuccess))
}

func TestRunner_FailedTargetStopsLaterTargets(t *testing.T) {
	cfg := newProject(t)
	r := newTestRunner(t, cfg, Deps{
		Compiler: stubCompiler{err: errors.New("ParseError: unrecognised input")},
	})

	result, err := r.Run(context.Background(), TaskLess, TaskHTML)
	require.Error(t, err)
	assert.Equal(t, []string{TaskLess}, result.Failed())
	assert.NotContains(t, result.NodeResults, TaskHTML)
	assert.NoFileExists(t, cfg.Out("index.html"))
}

func TestRunner_FailureHaltsOnlyBranch(t *testing.T) {
	cfg := newProject(t)
	rec := newCountingRecorder()
	r := newTestRunner(t, cfg, Deps{
		Recorder: rec,
		Compiler: stubCompiler{err: errors.New("ParseError: unrecognised input in main.less on line 1")},
	})

	result, err := r.Run(context.Background(), TaskBuild)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "less")
	assert.False(t, result.Success)
	assert.Equal(t, []string{TaskLess}, result.Failed())
	assert.Equal(t, []string{TaskBuild}, result.Cancelled())
	assert.Equal(t, 1, rec.count(TaskBuild, metrics.ResultCancelled))

	for _, id := range []string{TaskHTML, TaskJS, TaskImage, TaskFonts, TaskIconFont, TaskData} {
		assert.True(t, result.NodeResults[id].Success, id)
	}
	assert.FileExists(t, cfg.Out("index.html"))
	assert.NoFileExists(t, cfg.Out("main.css"))
}

func TestRunner_UnknownTarget(t *testing.T) {
	r := newTestRunner(t, config.Default(t.TempDir()), Deps{})

	_, err := r.Run(context.Background(), "deploy")
	require.Error(t, err)
	assert.Equal(t, "GRAPH-002", buildErrors.GetErrorCode(err))
}

func TestRunner_InvalidTable(t *testing.T) {
	tasks := []dag.Task{
		newTask(metrics.NoopRecorder{}, "a", ActionAggregate, "a", func(context.Context) error { return nil }, "b"),
		newTask(metrics.NoopRecorder{}, "b", ActionAggregate, "b", func(context.Context) error { return nil }, "a"),
	}
	_, err := NewRunnerWithTasks(nil, tasks, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, dag.ErrCycleFound)
	assert.Equal(t, "GRAPH-001", buildErrors.GetErrorCode(err))
}

func TestRunner_Default(t *testing.T) {
	cfg := newProject(t)

	t.Run("runs server and watch after build", func(t *testing.T) {
		var served, watched atomic.Bool
		r := newTestRunner(t, cfg, Deps{
			Serve: func(ctx context.Context) error {
				served.Store(true)
				return nil
			},
			Watch: func(ctx context.Context) error {
				watched.Store(true)
				return nil
			},
		})
		result, err := r.Run(context.Background())
		require.NoError(t, err)
		assert.True(t, result.NodeResults[TaskBuild].Success)
		assert.True(t, served.Load())
		assert.True(t, watched.Load())
	})

	t.Run("server failure stops watch", func(t *testing.T) {
		serveErr := errors.New("address already in use")
		r := newTestRunner(t, cfg, Deps{
			Serve: func(ctx context.Context) error { return serveErr },
			Watch: func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			},
		})

		done := make(chan error, 1)
		go func() {
			_, err := r.Run(context.Background(), TaskDefault)
			done <- err
		}()

		select {
		case err := <-done:
			require.Error(t, err)
			assert.ErrorIs(t, err, serveErr)
		case <-time.After(10 * time.Second):
			t.Fatal("default did not stop after server failure")
		}
	})
}

func TestRunner_LongRunningTargetsWithOneWorker(t *testing.T) {
	cfg := newProject(t)
	cfg.Parallel = 1

	var started sync.WaitGroup
	started.Add(2)
	ready := make(chan struct{})
	go func() {
		started.Wait()
		close(ready)
	}()
	wait := func(ctx context.Context) error {
		started.Done()
		select {
		case <-ready:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r := newTestRunner(t, cfg, Deps{Serve: wait, Watch: wait})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := r.Run(ctx, TaskServer, TaskWatch)
	require.NoError(t, err)
	assert.True(t, result.NodeResults[TaskServer].Success)
	assert.True(t, result.NodeResults[TaskWatch].Success)
}

func TestRunner_ServerUnavailable(t *testing.T) {
	r := newTestRunner(t, config.Default(t.TempDir()), Deps{})

	_, err := r.Run(context.Background(), TaskServer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server is not available")
}
