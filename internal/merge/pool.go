package merge

import (
	"strconv"
	"sync"

	"climate-platform/internal/models"
)

// ValuePool interns parsed token values so that identical tokens from
// millions of rows share one immutable instance. This is purely a
// memory-footprint optimization; the merger works the same with a
// fresh pool per station, which is what tests use.
type ValuePool struct {
	mu     sync.Mutex
	floats map[string]*float64
	ints   map[string]*int
}

// NewValuePool creates an empty pool.
func NewValuePool() *ValuePool {
	return &ValuePool{
		floats: make(map[string]*float64),
		ints:   make(map[string]*int),
	}
}

// Float parses a decimal token, returning a pooled pointer.
func (p *ValuePool) Float(token string) (*float64, error) {
	p.mu.Lock()
	if v, ok := p.floats[token]; ok {
		p.mu.Unlock()
		return v, nil
	}
	p.mu.Unlock()

	parsed, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.floats[token]; ok {
		return v, nil
	}
	p.floats[token] = &parsed
	return &parsed, nil
}

// Int parses an integer token, returning a pooled pointer.
func (p *ValuePool) Int(token string) (*int, error) {
	p.mu.Lock()
	if v, ok := p.ints[token]; ok {
		p.mu.Unlock()
		return v, nil
	}
	p.mu.Unlock()

	parsed, err := strconv.Atoi(token)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.ints[token]; ok {
		return v, nil
	}
	p.ints[token] = &parsed
	return &parsed, nil
}

// PrecipitationType parses and validates a WRTR form code.
func (p *ValuePool) PrecipitationType(token string) (*models.PrecipitationType, error) {
	code, err := strconv.Atoi(token)
	if err != nil {
		return nil, err
	}
	t, err := models.ParsePrecipitationType(code)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
