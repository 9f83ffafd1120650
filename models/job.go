package models

// JobResponse is returned when an async research job is created.
type JobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"` // "processing"
}

// JobStatusResponse is returned for GET /api/v1/research/jobs/:id.
type JobStatusResponse struct {
	ID     string            `json:"id"`
	Status string            `json:"status"` // "processing", "completed", "failed"
	Result *ResearchResponse `json:"result,omitempty"`
}

// Job holds one in-flight or completed async research run.
type Job struct {
	ID        string
	Status    string
	Result    *ResearchResponse
	CreatedAt int64
}
