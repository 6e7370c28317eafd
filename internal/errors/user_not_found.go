package errors

var ErrUserNotFound = &Exception{
	Kind:    KindNotFound,
	Message: "User not found",
}
