// Package datagen produces random test data for step arguments.
package datagen

import (
	"fmt"
	"math"
	"math/bits"
	"sync"

	"github.com/brianvoe/gofakeit/v7"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generator creates random strings, emails, phone numbers, integers and names
type Generator struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
}

// New creates a generator. A zero seed picks a random one.
func New(seed uint64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// String returns length random letters and digits
func (g *Generator) String(length int) (string, error) {
	if length < 0 {
		return "", fmt.Errorf("negative length %d", length)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	result := make([]byte, length)
	for i := range result {
		result[i] = alphanumeric[g.faker.IntN(len(alphanumeric))]
	}
	return string(result), nil
}

// Email returns a random email address
func (g *Generator) Email() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.faker.Email()
}

// Phone returns a random phone number
func (g *Generator) Phone() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.faker.Phone()
}

// Int returns a random integer in [start, end]
func (g *Generator) Int(start, end int) (int, error) {
	if start > end {
		return 0, fmt.Errorf("range start %d is greater than end %d", start, end)
	}
	if start == end {
		return start, nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	span := uint64(end) - uint64(start)
	if span < math.MaxInt {
		return start + g.faker.IntN(int(span)+1), nil
	}

	// the range is wider than an int, draw masked values until one fits
	mask := uint64(1)<<bits.Len64(span) - 1
	for {
		if x := g.faker.Uint64() & mask; x <= span {
			return int(uint64(start) + x), nil
		}
	}
}

// Name returns a random full name
func (g *Generator) Name() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.faker.Name()
}
