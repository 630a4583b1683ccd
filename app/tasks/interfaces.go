package tasks

// TaskSchedulerInterface is the scheduler surface the rest of the
// application uses: lifecycle control plus manual task submission (the
// API handlers enqueue forced collection and digest runs through it).
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
