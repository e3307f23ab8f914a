package framework

import (
	"context"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunnableFunc is the func form of Runnable.
type RunnableFunc func(context.Context) error

// Run implements Runnable.
func (f RunnableFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Task is a poll-and-return unit of work run by the Scheduler.
type Task interface {
	Poll(context.Context) error
}

// TaskFunc is the func form of Task.
type TaskFunc func(context.Context) error

// Poll implements Task.
func (f TaskFunc) Poll(ctx context.Context) error {
	return f(ctx)
}
