package server

// ScanRequest is the payload for both synchronous scans and async scan jobs.
type ScanRequest struct {
	TenantID         string `json:"tenant_id" example:"acme"`
	URL              string `json:"url" example:"https://shop.example.com"`
	DeclaredCategory string `json:"declared_category,omitempty" example:"retail"`
	SkipIfFresh      bool   `json:"skip_if_fresh,omitempty" example:"true"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"not found"`
}
