package matching

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// CosineSimilarity returns the cosine of two vectors mapped from [-1,1] onto
// [0,1]. Zero-norm, empty or mismatched vectors have no direction and score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	raw := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return clamp01((raw + 1) / 2)
}

// Similarity embeds both texts and compares them with CosineSimilarity.
func Similarity(ctx context.Context, embedder Embedder, a, b string) (float64, error) {
	va, err := embed(ctx, embedder, a)
	if err != nil {
		return 0, fmt.Errorf("embedding first text: %w", err)
	}
	vb, err := embed(ctx, embedder, b)
	if err != nil {
		return 0, fmt.Errorf("embedding second text: %w", err)
	}
	return CosineSimilarity(va, vb), nil
}

// similarityTo compares text against an already embedded reference vector.
func similarityTo(ctx context.Context, embedder Embedder, text string, reference []float32) (float64, error) {
	v, err := embed(ctx, embedder, text)
	if err != nil {
		return 0, err
	}
	return CosineSimilarity(v, reference), nil
}

// embed returns a nil vector for blank text without asking the embedder.
// A nil vector has no direction, so every similarity against it is 0.
func embed(ctx context.Context, embedder Embedder, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return embedder.Embed(ctx, text)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
