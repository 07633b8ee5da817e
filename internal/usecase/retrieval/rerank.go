package retrieval

import (
	"sort"

	"github.com/kailas-cloud/solace/internal/domain/document"
	"github.com/kailas-cloud/solace/internal/domain/topic"
)

// DefaultTopicBoost is added to the score of documents matching the query topic.
const DefaultTopicBoost = 0.15

// MaxTopicBoost is the largest accepted boost.
const MaxTopicBoost = 0.5

// Reranker boosts documents tagged with the query topic.
type Reranker struct {
	boost float64
}

// NewReranker creates a Reranker. Non-positive boost falls back to
// DefaultTopicBoost; larger than MaxTopicBoost is capped.
func NewReranker(boost float64) Reranker {
	if boost <= 0 {
		boost = DefaultTopicBoost
	}
	return Reranker{boost: min(boost, MaxTopicBoost)}
}

// Rerank returns docs with matching-topic scores raised by the boost (capped at 1)
// and stably sorted by score descending. The input slice is not modified.
func (r Reranker) Rerank(docs []document.Document, t topic.Label) []document.Document {
	if t.IsNone() || len(docs) == 0 {
		return docs
	}

	out := make([]document.Document, len(docs))
	for i := range docs {
		d := docs[i]
		if d.Topic() == string(t) {
			d = d.WithScore(min(1.0, d.Score()+r.boost))
		}
		out[i] = d
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score() > out[j].Score()
	})
	return out
}
