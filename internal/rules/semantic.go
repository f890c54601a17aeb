package rules

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"

	"github.com/markhenning/buildcomply/internal/models"
)

// CosineSimilarity returns the cosine of the angle between two vectors.
// Mismatched lengths and zero vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func (spec *SemanticSpec) evaluate(embedding []float32) (string, error) {
	if len(spec.Reference) == 0 {
		return "", fmt.Errorf("%w: reference vector not loaded", ErrEvaluation)
	}
	if len(embedding) == 0 {
		return "", fmt.Errorf("%w: subject has no embedding", ErrEvaluation)
	}
	sim := CosineSimilarity(embedding, spec.Reference)
	switch {
	case sim < spec.Floor:
		return models.ResultFail, nil
	case sim < spec.Target:
		return models.ResultWarning, nil
	default:
		return models.ResultPass, nil
	}
}

type embedder interface {
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

// ReferenceCache is the minimal cache surface LoadReferences needs.
type ReferenceCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	SetReference(ctx context.Context, key string, vec []float32) error
}

// LoadReferences embeds each semantic rule's topic text once, consulting the
// cache first so a worker restart does not re-spend embedding calls. The key
// includes a topic digest so edited topics invalidate naturally.
func LoadReferences(ctx context.Context, c *Catalog, emb embedder, cache ReferenceCache) error {
	for _, r := range c.SemanticRules() {
		key := referenceKey(r.ID, r.Semantic.Topic)

		if cache != nil {
			var cached []float32
			if err := cache.Get(ctx, key, &cached); err == nil && len(cached) > 0 {
				r.Semantic.Reference = cached
				continue
			}
		}

		vec, err := emb.EmbedSingle(ctx, r.Semantic.Topic)
		if err != nil {
			return fmt.Errorf("embed reference for %s: %w", r.ID, err)
		}
		r.Semantic.Reference = vec

		if cache != nil {
			if err := cache.SetReference(ctx, key, vec); err != nil {
				slog.Warn("cache reference vector", "rule_id", r.ID, "error", err)
			}
		}
	}
	return nil
}

func referenceKey(ruleID, topic string) string {
	sum := sha256.Sum256([]byte(topic))
	return "compliance:ruleref:" + ruleID + ":" + hex.EncodeToString(sum[:8])
}
