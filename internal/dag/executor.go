package dag

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/maxkimambo/sitepipe/internal/logger"
	"github.com/maxkimambo/sitepipe/internal/progress"
)

// ExecutorConfig contains configuration for the DAG executor
type ExecutorConfig struct {
	// MaxParallelTasks is the maximum number of tasks to run in parallel
	MaxParallelTasks int

	// TaskTimeout bounds each task. Zero means no timeout, which
	// long-running tasks such as the dev server rely on.
	TaskTimeout time.Duration

	// ProgressInterval is how often progress is logged. Zero disables it.
	ProgressInterval time.Duration

	// LongRunning names tasks that block until cancelled. They run
	// outside the worker slots so they cannot starve each other.
	LongRunning map[string]bool
}

// DefaultExecutorConfig returns a default configuration
func DefaultExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{
		MaxParallelTasks: runtime.NumCPU(),
		TaskTimeout:      0,
		ProgressInterval: 5 * time.Second,
	}
}

// ExecutionResult contains the results of DAG execution
type ExecutionResult struct {
	// Success indicates if the entire DAG executed successfully
	Success bool

	// NodeResults maps node IDs to their execution results
	NodeResults map[string]*NodeResult

	// Order lists node IDs in topological order
	Order []string

	// ExecutionTime is the total time taken for execution
	ExecutionTime time.Duration

	// Error is the first error in topological order
	Error error
}

// Failed returns the IDs of nodes that ran and failed, in topological order
func (r *ExecutionResult) Failed() []string {
	var failed []string
	for _, id := range r.Order {
		if res := r.NodeResults[id]; res != nil && res.Error != nil && !res.Cancelled {
			failed = append(failed, id)
		}
	}
	return failed
}

// Cancelled returns the IDs of nodes skipped because a dependency failed
func (r *ExecutionResult) Cancelled() []string {
	var cancelled []string
	for _, id := range r.Order {
		if res := r.NodeResults[id]; res != nil && res.Cancelled {
			cancelled = append(cancelled, id)
		}
	}
	return cancelled
}

// NodeResult contains the result of a single node execution
type NodeResult struct {
	// NodeID is the ID of the node
	NodeID string

	// Success indicates if the node executed successfully
	Success bool

	// Cancelled indicates the node never ran because a dependency failed
	Cancelled bool

	// Error is any error that occurred during execution
	Error error

	// StartTime is when the node started executing
	StartTime *time.Time

	// EndTime is when the node finished executing
	EndTime *time.Time

	// Duration is how long the node took to execute
	Duration time.Duration
}

// Executor handles the execution of a DAG. Nodes are scheduled as soon as
// their last dependency succeeds; a failure cancels only the failed node's
// transitive dependents.
type Executor struct {
	dag       *DAG
	config    *ExecutorConfig
	workers   chan struct{}
	results   map[string]*NodeResult
	mutex     sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startTime time.Time
	finished  chan struct{}
}

// NewExecutor creates a new DAG executor
func NewExecutor(dag *DAG, config *ExecutorConfig) *Executor {
	if config == nil {
		config = DefaultExecutorConfig()
	}
	parallel := config.MaxParallelTasks
	if parallel < 1 {
		parallel = 1
	}

	return &Executor{
		dag:      dag,
		config:   config,
		workers:  make(chan struct{}, parallel),
		results:  make(map[string]*NodeResult),
		finished: make(chan struct{}),
	}
}

// Execute runs the DAG to completion
func (e *Executor) Execute(ctx context.Context) (*ExecutionResult, error) {
	e.startTime = time.Now()

	e.mutex.Lock()
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.mutex.Unlock()

	defer e.cancel()

	if err := e.dag.Validate(); err != nil {
		e.initializeResults()
		return e.buildResult(nil), fmt.Errorf("invalid DAG: %w", err)
	}

	order, err := e.dag.TopologicalOrder()
	if err != nil {
		return e.buildResult(nil), fmt.Errorf("invalid DAG: %w", err)
	}

	e.initializeResults()

	rootNodes, err := e.dag.GetRootNodes()
	if err != nil {
		return e.buildResult(order), fmt.Errorf("failed to get root nodes: %w", err)
	}

	if len(rootNodes) == 0 {
		return e.buildResult(order), fmt.Errorf("no root nodes found in DAG")
	}

	if logger.Op != nil {
		logger.Op.WithFields(map[string]interface{}{
			"tasks":    len(order),
			"parallel": cap(e.workers),
		}).Debug("Starting task graph execution")
	}

	if e.config.ProgressInterval > 0 {
		go e.logProgress()
	}

	for _, nodeID := range rootNodes {
		e.scheduleNode(nodeID)
	}

	e.wg.Wait()
	close(e.finished)

	result := e.buildResult(order)
	e.logFinalProgress(result)

	return result, nil
}

func (e *Executor) initializeResults() {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	for _, nodeID := range e.dag.GetAllNodes() {
		e.results[nodeID] = &NodeResult{
			NodeID: nodeID,
		}
	}
}

// scheduleNode starts a node at most once
func (e *Executor) scheduleNode(nodeID string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	result := e.results[nodeID]
	if result.StartTime != nil {
		return
	}

	now := time.Now()
	result.StartTime = &now

	e.wg.Add(1)
	go e.executeNode(nodeID)
}

func (e *Executor) executeNode(nodeID string) {
	defer e.wg.Done()

	if !e.config.LongRunning[nodeID] {
		select {
		case e.workers <- struct{}{}:
			defer func() { <-e.workers }()
		case <-e.ctx.Done():
			e.setNodeError(nodeID, e.ctx.Err(), false)
			e.cancelDependents(nodeID)
			return
		}
	}

	node, err := e.dag.GetNode(nodeID)
	if err != nil {
		e.setNodeError(nodeID, err, false)
		e.cancelDependents(nodeID)
		return
	}

	if err := e.ctx.Err(); err != nil {
		node.SetStatus(StatusCancelled)
		e.setNodeError(nodeID, err, true)
		e.cancelDependents(nodeID)
		return
	}

	nodeCtx, cancel := e.nodeContext()
	defer cancel()

	if logger.Op != nil {
		logger.Op.WithFields(map[string]interface{}{
			"task": nodeID,
			"type": GetTaskType(node.GetTask()),
		}).Debug("Task started")
	}

	started := time.Now()
	err = node.Execute(nodeCtx)

	if logger.Op != nil {
		fields := map[string]interface{}{"task": nodeID}
		if err != nil {
			fields["error"] = err.Error()
		}
		logger.Op.WithFields(fields).Debug(progress.NewReporter().ReportTaskComplete(
			GetTaskType(node.GetTask()), nodeID, time.Since(started), err == nil))
	}

	e.setNodeCompleted(nodeID, err)

	if err == nil {
		e.scheduleDependents(nodeID)
	} else {
		e.cancelDependents(nodeID)
	}
}

func (e *Executor) nodeContext() (context.Context, context.CancelFunc) {
	if e.config.TaskTimeout > 0 {
		return context.WithTimeout(e.ctx, e.config.TaskTimeout)
	}
	return context.WithCancel(e.ctx)
}

// areDependenciesCompleted requires e.mutex to be held
func (e *Executor) areDependenciesCompleted(deps []string) bool {
	for _, depID := range deps {
		result, exists := e.results[depID]
		if !exists || !result.Success || result.Error != nil {
			return false
		}
	}
	return true
}

func (e *Executor) scheduleDependents(nodeID string) {
	dependents, err := e.dag.GetDependents(nodeID)
	if err != nil {
		return
	}

	for _, depID := range dependents {
		if e.isNodeReady(depID) {
			e.scheduleNode(depID)
		}
	}
}

func (e *Executor) isNodeReady(nodeID string) bool {
	deps, err := e.dag.GetDependencies(nodeID)
	if err != nil {
		return false
	}

	e.mutex.RLock()
	defer e.mutex.RUnlock()

	if e.results[nodeID].StartTime != nil {
		return false
	}
	return e.areDependenciesCompleted(deps)
}

// cancelDependents marks every transitive dependent as cancelled
func (e *Executor) cancelDependents(nodeID string) {
	dependents, err := e.dag.GetDependents(nodeID)
	if err != nil {
		return
	}

	for _, depID := range dependents {
		if !e.markCancelled(depID, nodeID) {
			continue
		}
		if node, err := e.dag.GetNode(depID); err == nil {
			node.SetStatus(StatusCancelled)
		}
		if logger.User != nil {
			logger.User.Warnf("Skipping %s: dependency %s did not succeed", depID, nodeID)
		}
		e.cancelDependents(depID)
	}
}

// markCancelled records a cancellation unless the node already started
func (e *Executor) markCancelled(nodeID, cause string) bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	result, exists := e.results[nodeID]
	if !exists || result.StartTime != nil {
		return false
	}
	now := time.Now()
	result.StartTime = &now
	result.EndTime = &now
	result.Cancelled = true
	result.Error = fmt.Errorf("cancelled due to dependency %s failure", cause)
	return true
}

func (e *Executor) setNodeCompleted(nodeID string, err error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if result, exists := e.results[nodeID]; exists {
		now := time.Now()
		result.EndTime = &now
		result.Error = err
		result.Success = (err == nil)

		if result.StartTime != nil {
			result.Duration = now.Sub(*result.StartTime)
		}
	}
}

func (e *Executor) setNodeError(nodeID string, err error, cancelled bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if result, exists := e.results[nodeID]; exists {
		now := time.Now()
		if result.StartTime == nil {
			result.StartTime = &now
		}
		result.EndTime = &now
		result.Error = err
		result.Success = false
		result.Cancelled = cancelled
		result.Duration = now.Sub(*result.StartTime)
	}
}

func (e *Executor) buildResult(order []string) *ExecutionResult {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	if order == nil {
		order = e.dag.GetAllNodes()
	}

	result := &ExecutionResult{
		NodeResults:   make(map[string]*NodeResult, len(e.results)),
		Order:         order,
		ExecutionTime: time.Since(e.startTime),
		Success:       len(e.results) > 0,
	}

	for _, nodeID := range order {
		nodeResult, ok := e.results[nodeID]
		if !ok {
			continue
		}
		resultCopy := *nodeResult
		result.NodeResults[nodeID] = &resultCopy

		if nodeResult.Error != nil || !nodeResult.Success {
			result.Success = false
		}
		if nodeResult.Error != nil && !nodeResult.Cancelled && result.Error == nil {
			result.Error = fmt.Errorf("task %s failed: %w", nodeID, nodeResult.Error)
		}
	}
	if !result.Success && result.Error == nil {
		for _, nodeID := range order {
			if r := result.NodeResults[nodeID]; r != nil && r.Error != nil {
				result.Error = fmt.Errorf("task %s failed: %w", nodeID, r.Error)
				break
			}
		}
	}

	return result
}

func (e *Executor) logProgress() {
	ticker := time.NewTicker(e.config.ProgressInterval)
	defer ticker.Stop()

	reporter := progress.NewReporter()
	for {
		select {
		case <-e.finished:
			return
		case <-ticker.C:
			if logger.User != nil {
				logger.User.Info(reporter.Report(e.buildProgressInfo()))
			}
		}
	}
}

// buildProgressInfo groups node state by task type
func (e *Executor) buildProgressInfo() progress.ProgressInfo {
	nodeIDs := e.dag.GetAllNodes()

	e.mutex.RLock()
	defer e.mutex.RUnlock()

	info := progress.ProgressInfo{
		TotalTasks:    len(nodeIDs),
		ElapsedTime:   time.Since(e.startTime),
		TaskBreakdown: make(map[string]progress.TaskStats),
	}

	for _, nodeID := range nodeIDs {
		node, err := e.dag.GetNode(nodeID)
		if err != nil {
			continue
		}
		taskType := GetTaskType(node.GetTask())
		stats := info.TaskBreakdown[taskType]
		stats.Total++

		result := e.results[nodeID]
		switch {
		case result == nil || result.StartTime == nil:
			stats.Pending++
		case result.Success:
			stats.Completed++
			info.CompletedTasks++
		case result.Cancelled:
			stats.Failed++
			info.CancelledTasks++
		case result.Error != nil:
			stats.Failed++
			info.FailedTasks++
		default:
			stats.Running++
			stats.RunningTasks = append(stats.RunningTasks, nodeID)
			info.RunningTasks++
		}
		info.TaskBreakdown[taskType] = stats
	}

	info.EstimatedTimeLeft = progress.CalculateETA(info.CompletedTasks, info.TotalTasks, info.ElapsedTime)
	return info
}

func (e *Executor) logFinalProgress(result *ExecutionResult) {
	if logger.Op == nil {
		return
	}
	succeeded := 0
	for _, r := range result.NodeResults {
		if r.Success {
			succeeded++
		}
	}
	logger.Op.WithFields(map[string]interface{}{
		"succeeded": succeeded,
		"failed":    len(result.Failed()),
		"cancelled": len(result.Cancelled()),
		"elapsed":   result.ExecutionTime.Round(time.Millisecond).String(),
	}).Debug("Task graph execution finished")
}
