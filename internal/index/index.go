package index

import "time"

// SpaceType represents the distance metric type
type SpaceType string

const (
	L2Space  SpaceType = "l2"
	IPSpace  SpaceType = "ip"
	CosSpace SpaceType = "cos"
)

// Config represents index configuration
type Config struct {
	Dir       string    // directory holding the persisted artifacts
	Dimension int       // embedding dimension, fixed at creation time
	SpaceType SpaceType // distance metric type
}

// Entry is the unit stored in the index. The slot an entry occupies
// inside the flat structure is internal and rebuildable; only BirdID
// is stable across removals and rebuilds.
type Entry struct {
	BirdID    int64
	BirdName  string
	Embedding []float32
	Metadata  map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Match is one search result, ordered by descending similarity.
type Match struct {
	BirdID     int64             `json:"bird_id"`
	BirdName   string            `json:"bird_name,omitempty"`
	Similarity float64           `json:"similarity"`
	Distance   float64           `json:"distance"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Stats is a read-only snapshot of the index state.
type Stats struct {
	Count         int       `json:"count"`
	Dimension     int       `json:"dimension"`
	MetadataCount int       `json:"metadata_count"`
	SpaceType     SpaceType `json:"space_type"`
	IndexType     string    `json:"index_type"`
}

func cloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (e *Entry) clone() *Entry {
	c := *e
	c.Embedding = append([]float32(nil), e.Embedding...)
	c.Metadata = cloneMetadata(e.Metadata)
	return &c
}
