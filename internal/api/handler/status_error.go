package handler

// StatusError lets a handler pick the response status and field map for an
// error that has no fixed mapping in the central error handler.
type StatusError struct {
	Code   int
	Fields map[string]string
}

func NewStatusError(code int, field, msg string) *StatusError {
	return &StatusError{Code: code, Fields: map[string]string{field: msg}}
}

func (e *StatusError) Error() string {
	for k, v := range e.Fields {
		return k + ": " + v
	}
	return "request failed"
}
