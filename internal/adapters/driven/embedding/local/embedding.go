// Package local provides an in-process embedding model.
//
// The model is a feature-hashing encoder: lower-cased word unigrams and
// bigrams are hashed (FNV-1a) into a fixed number of signed buckets and the
// result is L2-normalised. It needs no network or model files and is a pure
// function of the input text.
package local

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultModel is the default local model.
const DefaultModel = "hash-384"

// models maps the known local model names to their dimensions.
var models = map[string]int{
	"hash-384": 384,
	"hash-768": 768,
}

const bigramWeight = 0.5

// EmbeddingService generates embeddings in-process.
type EmbeddingService struct {
	model      string
	dimensions int
}

// NewEmbeddingService loads the named local model.
// Unknown names fail with domain.ErrModelLoad.
func NewEmbeddingService(model string) (*EmbeddingService, error) {
	if model == "" {
		model = DefaultModel
	}
	dims, ok := models[model]
	if !ok {
		return nil, fmt.Errorf("%w: unknown local embedding model %q", domain.ErrModelLoad, model)
	}
	return &EmbeddingService{model: model, dimensions: dims}, nil
}

// Models returns the known local model names.
func Models() []string {
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	return names
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.encode(text), nil
}

// EmbedBatch generates embeddings for multiple texts in input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = s.encode(text)
	}
	return out, nil
}

func (s *EmbeddingService) encode(text string) []float32 {
	acc := make([]float64, s.dimensions)
	tokens := tokenize(text)
	for i, tok := range tokens {
		s.add(acc, tok, 1)
		if i > 0 {
			s.add(acc, tokens[i-1]+" "+tok, bigramWeight)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	vec := make([]float32, s.dimensions)
	if norm == 0 {
		return vec
	}
	inv := 1 / math.Sqrt(norm)
	for i, v := range acc {
		vec[i] = float32(v * inv)
	}
	return vec
}

func (s *EmbeddingService) add(acc []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(s.dimensions))
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping always succeeds; the model is in-process.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
