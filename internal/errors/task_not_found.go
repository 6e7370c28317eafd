package errors

var ErrTaskNotFound = &Exception{
	Kind:    KindNotFound,
	Message: "Task not found",
}
