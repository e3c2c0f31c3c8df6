package dag

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseNode(t *testing.T) {
	task := newMockTask("n", "test", "node under test")
	node := NewBaseNode(task)

	assert.Equal(t, "n", node.ID())
	assert.Equal(t, StatusPending, node.GetStatus())
	assert.Same(t, task, node.GetTask())
	assert.Nil(t, node.GetStartTime())
	assert.Nil(t, node.GetEndTime())
	assert.Nil(t, node.GetError())
}

func TestBaseNode_Execute_Success(t *testing.T) {
	node := NewBaseNode(newMockTask("ok", "test", ""))
	require.NoError(t, node.Execute(context.Background()))

	assert.Equal(t, StatusCompleted, node.GetStatus())
	require.NotNil(t, node.GetStartTime())
	require.NotNil(t, node.GetEndTime())
	assert.False(t, node.GetEndTime().Before(*node.GetStartTime()))
}

func TestBaseNode_Execute_Failure(t *testing.T) {
	task := newMockTask("bad", "test", "")
	task.executeFunc = func(context.Context) error { return errors.New("compile failed") }
	node := NewBaseNode(task)

	err := node.Execute(context.Background())
	assert.EqualError(t, err, "compile failed")
	assert.Equal(t, StatusFailed, node.GetStatus())
	assert.EqualError(t, node.GetError(), "compile failed")
}

func TestBaseNode_StatusDuringExecution(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	task := newMockTask("slow", "test", "")
	task.executeFunc = func(context.Context) error {
		close(started)
		<-release
		return nil
	}
	node := NewBaseNode(task)

	done := make(chan error)
	go func() { done <- node.Execute(context.Background()) }()

	<-started
	assert.Equal(t, StatusRunning, node.GetStatus())
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StatusCompleted, node.GetStatus())
}

func TestBaseNode_ErrorHandling(t *testing.T) {
	node := newMockNode("n")
	node.SetError(nil)
	assert.Equal(t, StatusPending, node.GetStatus())

	node.SetError(errors.New("x"))
	assert.Equal(t, StatusFailed, node.GetStatus())
}

func TestBaseNode_ConcurrentAccess(t *testing.T) {
	node := newMockNode("n")
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			node.SetStatus(StatusRunning)
		}()
		go func() {
			defer wg.Done()
			_ = node.GetStatus()
			_ = node.GetStartTime()
		}()
	}
	wg.Wait()
	assert.Equal(t, StatusRunning, node.GetStatus())
}

func TestBaseNode_ContextCancellation(t *testing.T) {
	task := newMockTask("wait", "test", "")
	task.executeFunc = func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	}
	node := NewBaseNode(task)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := node.Execute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusFailed, node.GetStatus())
}

func TestNode_InterfaceCompliance(t *testing.T) {
	var _ Node = (*BaseNode)(nil)
}
