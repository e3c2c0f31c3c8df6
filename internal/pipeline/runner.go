package pipeline

import (
	"context"
	"time"

	"github.com/maxkimambo/sitepipe/internal/config"
	"github.com/maxkimambo/sitepipe/internal/dag"
	buildErrors "github.com/maxkimambo/sitepipe/internal/errors"
	"github.com/maxkimambo/sitepipe/internal/logger"
	"github.com/maxkimambo/sitepipe/internal/metrics"
)

// blocking tasks never finish on their own. They run outside the worker
// slots and progress reports are suppressed for runs that include them.
var blocking = map[string]bool{
	TaskServer:  true,
	TaskWatch:   true,
	TaskDefault: true,
}

// Runner executes targets from a validated task graph. It is safe for
// concurrent use: every Run executes a fresh subgraph.
type Runner struct {
	graph    *dag.DAG
	tasks    []dag.Task
	executor dag.ExecutorConfig
	recorder metrics.Recorder
}

// NewRunner declares the task table for cfg and validates it once.
func NewRunner(cfg *config.Config, deps Deps) (*Runner, error) {
	return NewRunnerWithTasks(cfg, Tasks(cfg, deps), deps.Recorder)
}

// NewRunnerWithTasks builds a Runner over an explicit task list.
func NewRunnerWithTasks(cfg *config.Config, tasks []dag.Task, rec metrics.Recorder) (*Runner, error) {
	graph, err := dag.Build(tasks)
	if err != nil {
		return nil, buildErrors.NewInvalidGraphError(err)
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}

	execCfg := *dag.DefaultExecutorConfig()
	if cfg != nil && cfg.Parallel > 0 {
		execCfg.MaxParallelTasks = cfg.Parallel
	}

	return &Runner{
		graph:    graph,
		tasks:    tasks,
		executor: execCfg,
		recorder: rec,
	}, nil
}

// Graph returns the full validated task graph.
func (r *Runner) Graph() *dag.DAG {
	return r.graph
}

// Tasks returns the declared tasks in declaration order.
func (r *Runner) Tasks() []dag.Task {
	return r.tasks
}

// Subgraph returns the closure of targets with fresh node state.
func (r *Runner) Subgraph(targets ...string) (*dag.DAG, error) {
	for _, target := range targets {
		if _, err := r.graph.GetNode(target); err != nil {
			return nil, buildErrors.NewUnknownTaskError(target, r.graph.GetAllNodes())
		}
	}
	sub, err := r.graph.Subgraph(targets...)
	if err != nil {
		return nil, buildErrors.NewInvalidGraphError(err)
	}
	return sub, nil
}

// Run executes targets and their transitive dependencies, each task at
// most once per call. With no targets the default task runs.
//
// Targets run one after another in the order given, so "clear image"
// empties the cache before image reads it. Tasks an earlier target
// already ran are not repeated. Long-running targets (server, watch,
// default) start together once the others are done. The first target
// that fails stops the run; within a target a failure halts only the
// failed branch.
func (r *Runner) Run(ctx context.Context, targets ...string) (*dag.ExecutionResult, error) {
	if len(targets) == 0 {
		targets = []string{TaskDefault}
	}
	if _, err := r.Subgraph(targets...); err != nil {
		return nil, err
	}

	logger.Op.WithFields(map[string]interface{}{
		"targets": targets,
	}).Debug("Running targets")

	started := time.Now()
	result := &dag.ExecutionResult{
		Success:     true,
		NodeResults: make(map[string]*dag.NodeResult),
	}
	done := make(map[string]bool)

	for _, stage := range stages(targets) {
		sub, err := r.graph.SubgraphWithout(done, stage...)
		if err != nil {
			return nil, buildErrors.NewInvalidGraphError(err)
		}
		if sub.Size() == 0 {
			continue
		}

		stageResult, err := dag.NewExecutor(sub, r.executorConfig(sub)).Execute(ctx)
		if err != nil {
			return stageResult, buildErrors.NewInvalidGraphError(err)
		}
		for _, id := range stageResult.Cancelled() {
			r.recorder.IncTaskResult(id, metrics.ResultCancelled)
		}

		result.Order = append(result.Order, stageResult.Order...)
		for id, res := range stageResult.NodeResults {
			result.NodeResults[id] = res
			if res.Success {
				done[id] = true
			}
		}
		if !stageResult.Success {
			result.Success = false
			result.Error = stageResult.Error
			break
		}
	}
	result.ExecutionTime = time.Since(started)

	if !result.Success {
		return result, result.Error
	}
	logger.Op.WithFields(map[string]interface{}{
		"targets": targets,
		"elapsed": result.ExecutionTime.Round(time.Millisecond).String(),
	}).Debug("Targets finished")
	return result, nil
}

// stages splits targets into sequential groups: each ordinary target on
// its own, then all long-running targets together.
func stages(targets []string) [][]string {
	var out [][]string
	var long []string
	for _, target := range targets {
		if blocking[target] {
			long = append(long, target)
			continue
		}
		out = append(out, []string{target})
	}
	if len(long) > 0 {
		out = append(out, long)
	}
	return out
}

func (r *Runner) executorConfig(sub *dag.DAG) *dag.ExecutorConfig {
	execCfg := r.executor
	execCfg.LongRunning = blocking
	for _, id := range sub.GetAllNodes() {
		if blocking[id] {
			execCfg.ProgressInterval = 0
			break
		}
	}
	return &execCfg
}
