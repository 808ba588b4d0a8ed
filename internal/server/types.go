package server

// RegisterBirdRequest registers an embedding for a bird. With a zero
// BirdID a new bird record is minted first.
type RegisterBirdRequest struct {
	BirdID    int64             `json:"bird_id"`
	Name      string            `json:"name"`
	Embedding []float32         `json:"embedding" binding:"required"`
	Metadata  map[string]string `json:"metadata"`
}

// RenameBirdRequest sets a bird's display name.
type RenameBirdRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateEmbeddingRequest replaces a bird's embedding.
type UpdateEmbeddingRequest struct {
	Embedding []float32         `json:"embedding" binding:"required"`
	Metadata  map[string]string `json:"metadata"`
}

// SearchIndexRequest queries the similarity index directly.
type SearchIndexRequest struct {
	Embedding []float32 `json:"embedding" binding:"required"`
	K         int       `json:"k"`
	Threshold float64   `json:"threshold"`
}

// AcknowledgeAlertRequest marks an alert handled.
type AcknowledgeAlertRequest struct {
	By string `json:"by"`
}

// GenerateSummaryRequest asks for a daily summary; Date defaults to
// today (UTC).
type GenerateSummaryRequest struct {
	Date string `json:"date"` // YYYY-MM-DD
}
