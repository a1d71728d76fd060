package tasks

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API to hand work to the background
// worker pool.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
