package errors

var ErrDuplicate = &Exception{
	Kind:    KindConflict,
	Message: "Resource already exists",
}
