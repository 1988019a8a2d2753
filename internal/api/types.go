package api

// IssuePassRequest is the body of POST /v1/passes.
//
// It mirrors pass.CardProfile and exists for the API documentation.
type IssuePassRequest struct {
	TenantID    string `json:"tenantId" example:"acme"`
	CardSerial  string `json:"cardSerial" example:"abc123"`
	Name        string `json:"name" example:"Jane Doe"`
	Nickname    string `json:"nickname,omitempty" example:"Jane"`
	Company     string `json:"company,omitempty" example:"Acme"`
	Title       string `json:"title,omitempty" example:"Engineer"`
	Phone       string `json:"phone,omitempty" example:"(555) 123-4567"`
	Email       string `json:"email,omitempty" example:"jane@acme.example"`
	ImageURL    string `json:"imageUrl,omitempty" example:"https://cdn.acme.example/jane.jpg"`
	PublicURL   string `json:"publicURL" example:"https://cards.example.com/acme/abc123"`
	ColorScheme string `json:"colorScheme,omitempty" example:"dark"`
}

// ReadinessResponse is returned by the readiness check.
type ReadinessResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks,omitempty"`
}

// VersionResponse is returned by the version endpoint.
type VersionResponse struct {
	Version   string `json:"version" example:"1.0.0"`
	BuildDate string `json:"build_date" example:"2024-01-28T10:00:00Z"`
	GitCommit string `json:"git_commit" example:"0123456789ab"`
	Service   string `json:"service" example:"pass-server"`
}
