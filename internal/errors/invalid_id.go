package errors

var ErrInvalidID = &Exception{
	Kind:    KindMalformedInput,
	Message: "Invalid ID format",
}
