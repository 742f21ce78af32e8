package responses

// SuccessBody wraps every 2xx payload.
type SuccessBody struct {
	Data any `json:"data"`
}

// ErrorBody wraps every error payload.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the public shape of a failed request. Retryable tells the
// till that resubmitting the same request may succeed, e.g. after invoice
// numbering was exhausted.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	Details   any    `json:"details,omitempty"`
}
