package types

const (
	ResponseStatusSuccess = "success"
	ResponseStatusError   = "error"
)

// Envelope is the wire shape of every API response.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// APIError carries the machine-readable error payload inside an
// error envelope's Data field.
type APIError struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}
