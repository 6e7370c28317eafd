package errors

var ErrOptimisticLock = &Exception{
	Kind:    KindConflict,
	Message: "Task was modified concurrently, retry the request",
}
