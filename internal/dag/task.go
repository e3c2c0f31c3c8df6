package dag

import "context"

// Task represents a named, dependency-ordered unit of build work
type Task interface {
	// Execute performs the task's work
	Execute(ctx context.Context) error

	// GetID returns the unique identifier for this task
	GetID() string

	// GetType returns the task type (the kind of action it performs)
	GetType() string

	// GetDescription returns a human-readable description
	GetDescription() string

	// GetDependencies returns the IDs of tasks that must complete first
	GetDependencies() []string

	// Validate checks if the task can be executed
	Validate() error
}

// BaseTask provides common functionality for tasks
type BaseTask struct {
	id           string
	taskType     string
	description  string
	dependencies []string
}

// NewBaseTask creates a new base task
func NewBaseTask(id, taskType, description string, dependencies ...string) *BaseTask {
	return &BaseTask{
		id:           id,
		taskType:     taskType,
		description:  description,
		dependencies: dependencies,
	}
}

// GetID returns the unique identifier for this task
func (t *BaseTask) GetID() string {
	return t.id
}

// GetType returns the task type
func (t *BaseTask) GetType() string {
	return t.taskType
}

// GetDescription returns a human-readable description
func (t *BaseTask) GetDescription() string {
	return t.description
}

// GetDependencies returns a copy of the declared dependency IDs
func (t *BaseTask) GetDependencies() []string {
	deps := make([]string, len(t.dependencies))
	copy(deps, t.dependencies)
	return deps
}

// Validate checks if the task can be executed (default implementation)
func (t *BaseTask) Validate() error {
	return nil
}

// GetTaskType returns the type of a possibly nil task
func GetTaskType(task Task) string {
	if task == nil {
		return "unknown"
	}
	return task.GetType()
}

// GetTaskDescription returns the description of a possibly nil task
func GetTaskDescription(task Task) string {
	if task == nil {
		return ""
	}
	return task.GetDescription()
}
