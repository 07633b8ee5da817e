package retrieval

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/kailas-cloud/solace/internal/domain"
	"github.com/kailas-cloud/solace/internal/domain/document"
)

func newService(emb *mockEmbedder, src *mockSource, cache *QueryCache) *Service {
	return New(emb, src, cache, DefaultConfig(), nil)
}

func TestRetrieve_RequestsCandidatesAndTruncates(t *testing.T) {
	emb := &mockEmbedder{}
	src := &mockSource{searchFn: rowsOf(
		row("a", 0.9, ""), row("b", 0.8, ""), row("c", 0.7, ""), row("d", 0.6, ""),
	)}

	docs, err := newService(emb, src, nil).Retrieve(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if len(src.calls) != 1 {
		t.Fatalf("expected 1 search, got %d", len(src.calls))
	}
	if src.calls[0].topK != 9 {
		t.Errorf("candidates = %d, want 9", src.calls[0].topK)
	}
	if src.calls[0].threshold != 0.4 {
		t.Errorf("threshold = %f, want 0.4", src.calls[0].threshold)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(contents(docs), want) {
		t.Errorf("docs = %v, want %v", contents(docs), want)
	}
}

func TestRetrieve_BoostsInferredTopic(t *testing.T) {
	src := &mockSource{searchFn: rowsOf(
		row("generic", 0.80, "general"),
		row("calm", 0.70, "anxiety"),
		row("other", 0.75, "stress"),
		row("tail", 0.50, ""),
	)}

	docs, err := newService(&mockEmbedder{}, src, nil).Retrieve(context.Background(), "I keep having panic attacks")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if want := []string{"calm", "generic", "other"}; !reflect.DeepEqual(contents(docs), want) {
		t.Errorf("docs = %v, want %v", contents(docs), want)
	}
}

func TestRetrieve_NoTopicKeepsSourceOrder(t *testing.T) {
	src := &mockSource{searchFn: rowsOf(row("x", 0.5, "anxiety"), row("y", 0.9, "stress"))}

	docs, err := newService(&mockEmbedder{}, src, nil).Retrieve(context.Background(), "tell me something")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if want := []string{"x", "y"}; !reflect.DeepEqual(contents(docs), want) {
		t.Errorf("docs = %v, want %v", contents(docs), want)
	}
}

func TestRetrieve_MissingScoreIsZero(t *testing.T) {
	src := &mockSource{searchFn: rowsOf(document.Row{Content: "no score"})}

	docs, err := newService(&mockEmbedder{}, src, nil).Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(docs) != 1 || docs[0].Score() != 0 {
		t.Errorf("docs = %v", docs)
	}
}

func TestRetrieve_EmbedsOriginalQuery(t *testing.T) {
	emb := &mockEmbedder{}
	_, err := newService(emb, &mockSource{}, nil).Retrieve(context.Background(), "  Feeling Down  ")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if emb.texts[0] != "  Feeling Down  " {
		t.Errorf("embedded %q", emb.texts[0])
	}
}

func TestRetrieve_CacheHitSkipsCollaborators(t *testing.T) {
	emb := &mockEmbedder{}
	src := &mockSource{searchFn: rowsOf(row("a", 0.9, ""))}
	svc := newService(emb, src, NewQueryCache(CacheOptions{}))

	if _, err := svc.Retrieve(context.Background(), "Breathing help"); err != nil {
		t.Fatalf("first Retrieve: %v", err)
	}
	docs, err := svc.Retrieve(context.Background(), "  breathing HELP ")
	if err != nil {
		t.Fatalf("second Retrieve: %v", err)
	}

	if emb.calls != 1 || len(src.calls) != 1 {
		t.Errorf("collaborators called again: embed=%d search=%d", emb.calls, len(src.calls))
	}
	if len(docs) != 1 || docs[0].Content() != "a" {
		t.Errorf("cached docs = %v", contents(docs))
	}
}

func TestRetrieve_EmptyResultCached(t *testing.T) {
	src := &mockSource{}
	svc := newService(&mockEmbedder{}, src, NewQueryCache(CacheOptions{}))

	for i := 0; i < 2; i++ {
		docs, err := svc.Retrieve(context.Background(), "nothing here")
		if err != nil {
			t.Fatalf("Retrieve: %v", err)
		}
		if len(docs) != 0 {
			t.Fatalf("expected no docs, got %d", len(docs))
		}
	}
	if len(src.calls) != 1 {
		t.Errorf("expected empty result to be cached, searched %d times", len(src.calls))
	}
}

func TestRetrieve_FailuresNotCached(t *testing.T) {
	fail := true
	src := &mockSource{searchFn: func(context.Context, []float32, int, float64) ([]document.Row, error) {
		if fail {
			return nil, errors.New("connection refused")
		}
		return []document.Row{row("ok", 0.9, "")}, nil
	}}
	cache := NewQueryCache(CacheOptions{})
	svc := newService(&mockEmbedder{}, src, cache)

	_, err := svc.Retrieve(context.Background(), "q")
	if !errors.Is(err, domain.ErrRetrievalFailed) {
		t.Fatalf("expected ErrRetrievalFailed, got %v", err)
	}
	if cache.Len() != 0 {
		t.Fatal("failure was cached")
	}

	fail = false
	docs, err := svc.Retrieve(context.Background(), "q")
	if err != nil || len(docs) != 1 {
		t.Fatalf("retry after failure: %v %v", docs, err)
	}
}

func TestRetrieve_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		embedErr error
		srcErr   error
		want     error
	}{
		{"embed provider error", fmt.Errorf("x: %w", domain.ErrEmbeddingProviderError), nil, domain.ErrRetrievalFailed},
		{"embed misconfigured", fmt.Errorf("x: %w", domain.ErrConfiguration), nil, domain.ErrConfiguration},
		{"store error", nil, fmt.Errorf("search chunks: %w: boom", domain.ErrRetrievalFailed), domain.ErrRetrievalFailed},
		{"dimension mismatch", nil, domain.ErrVectorDimMismatch, domain.ErrConfiguration},
		{"plain store error", nil, errors.New("boom"), domain.ErrRetrievalFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb := &mockEmbedder{}
			if tt.embedErr != nil {
				emb.embedFn = func(context.Context, string) (domain.EmbeddingResult, error) {
					return domain.EmbeddingResult{}, tt.embedErr
				}
			}
			src := &mockSource{}
			if tt.srcErr != nil {
				src.searchFn = func(context.Context, []float32, int, float64) ([]document.Row, error) {
					return nil, tt.srcErr
				}
			}

			_, err := newService(emb, src, nil).Retrieve(context.Background(), "q")
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRetrieve_ContextPassedThrough(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	src := &mockSource{searchFn: func(ctx context.Context, _ []float32, _ int, _ float64) ([]document.Row, error) {
		if ctx.Value(key{}) != "v" {
			t.Error("context not passed to similarity source")
		}
		return nil, nil
	}}
	if _, err := newService(&mockEmbedder{}, src, nil).Retrieve(ctx, "q"); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero top k", func(c *Config) { c.TopK = 0 }},
		{"negative multiplier", func(c *Config) { c.CandidateMultiplier = -1 }},
		{"threshold below zero", func(c *Config) { c.Threshold = -0.1 }},
		{"threshold above one", func(c *Config) { c.Threshold = 1.1 }},
		{"zero boost", func(c *Config) { c.TopicBoost = 0 }},
		{"boost above max", func(c *Config) { c.TopicBoost = 0.9 }},
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("Validate() = %v, want ErrConfiguration", err)
			}
		})
	}
}
