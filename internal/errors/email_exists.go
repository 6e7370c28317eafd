package errors

var ErrEmailExists = &Exception{
	Kind:    KindValidation,
	Message: "Email already exists.",
}
