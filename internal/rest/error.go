package rest

// ErrorResponse is the JSON body returned for every failed API request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
