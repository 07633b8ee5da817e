package document

// Row is a raw hit from a similarity store. A nil Score means the store
// returned no similarity for the row.
type Row struct {
	Content  string
	Metadata map[string]any
	Score    *float64
}

// ScoreOrZero returns the row similarity, 0 when absent.
func (r Row) ScoreOrZero() float64 {
	if r.Score == nil {
		return 0
	}
	return *r.Score
}
