package types

// Envelope is the JSON body of every API response. Code and Details are only
// set on errors.
type Envelope struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Payload any    `json:"payload,omitempty"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
