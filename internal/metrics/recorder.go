// Package metrics exposes pipeline observability hooks. Components accept
// a Recorder so metrics stay optional; the Prometheus implementation backs
// the dev server's /metrics endpoint.
package metrics

import "time"

// ResultLabel enumerates task outcomes for counters.
type ResultLabel string

const (
	ResultSuccess   ResultLabel = "success"
	ResultFailed    ResultLabel = "failed"
	ResultCancelled ResultLabel = "cancelled"
)

// Recorder defines observability hooks for tasks, the image cache, the
// watcher and live reload.
type Recorder interface {
	ObserveTaskDuration(task string, d time.Duration)
	IncTaskResult(task string, result ResultLabel)
	IncCacheLookup(hit bool)
	IncWatchEvent(category string)
	IncReloadBroadcast()
	SetLiveReloadClients(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveTaskDuration(string, time.Duration) {}
func (NoopRecorder) IncTaskResult(string, ResultLabel)         {}
func (NoopRecorder) IncCacheLookup(bool)                       {}
func (NoopRecorder) IncWatchEvent(string)                      {}
func (NoopRecorder) IncReloadBroadcast()                       {}
func (NoopRecorder) SetLiveReloadClients(int)                  {}
