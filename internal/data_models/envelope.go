package dto

// Envelope is the body of every API response.
type Envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func NewEnvelope(message string, data any) Envelope {
	if data == nil {
		data = struct{}{}
	}
	return Envelope{Message: message, Data: data}
}
