// Package apierror provides the error envelopes returned by the HTTP API.
// Internal details (driver errors, stack traces) never reach clients.
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
// Kind and Balance are set for ledger rejections so clients can explain why
// a command failed.
type APIError struct {
	Detail  string      `json:"detail"`
	Kind    string      `json:"kind,omitempty"`
	Balance interface{} `json:"balance,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

func NewKind(kind, msg string, balance interface{}) *APIError {
	return &APIError{Detail: msg, Kind: kind, Balance: balance}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Fields: fields}
}
