package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"
)

// MockDimensions is the vector width produced by MockClient.
const MockDimensions = 64

// MockClient is a deterministic embedder for tests and offline runs. Each lowercase word
// is hashed into one of MockDimensions buckets, so texts with the same words embed to
// the same unit vector regardless of order or punctuation.
type MockClient struct {
	mu sync.Mutex

	EmbedError error
	// Vectors overrides the hashed embedding for specific texts.
	Vectors map[string][]float32

	EmbedCalls []string
}

func NewMockClient() *MockClient {
	return &MockClient{Vectors: map[string][]float32{}}
}

func (c *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	c.EmbedCalls = append(c.EmbedCalls, text)
	err := c.EmbedError
	v, ok := c.Vectors[text]
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if ok {
		return v, nil
	}
	return hashEmbed(text), nil
}

// CallCount returns how many times Embed was called.
func (c *MockClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.EmbedCalls)
}

func hashEmbed(text string) []float32 {
	vec := make([]float32, MockDimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%MockDimensions]++
	}

	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
