package gemini

import (
	"context"
	"crypto/sha256"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/skill-ranker/internal/logger"
)

type embedClient interface {
	EmbedContent(ctx context.Context, text string) ([]float32, error)
}

// Embedder implements matching.Embedder on top of the Gemini embedding model.
// Vectors are cached by text hash for the lifetime of the Embedder, so a job
// text embedded once per ranking call is not sent again.
type Embedder struct {
	client embedClient
	logger *zap.Logger

	cacheMu sync.RWMutex
	cache   map[[sha256.Size]byte][]float32
}

func NewEmbedder(client embedClient, log *zap.Logger) *Embedder {
	return &Embedder{
		client: client,
		logger: logger.WithFields(log),
		cache:  make(map[[sha256.Size]byte][]float32),
	}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e == nil || e.client == nil {
		return nil, errors.New("gemini embedder is not initialized")
	}
	// The API rejects an empty part; blank text embeds to nothing.
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	key := sha256.Sum256([]byte(text))

	e.cacheMu.RLock()
	cached, ok := e.cache[key]
	e.cacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	vector, err := e.client.EmbedContent(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, ErrNoEmbedding
	}

	e.cacheMu.Lock()
	e.cache[key] = vector
	size := len(e.cache)
	e.cacheMu.Unlock()

	e.logger.Debug("embedding cached", zap.Int("dimensions", len(vector)), zap.Int("cache_size", size))

	return vector, nil
}
