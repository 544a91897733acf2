// Package sink holds the append-only destinations for discovered product URLs
package sink

import (
	"context"
	"errors"

	"github.com/Sriram-PR/product-scraper/pkg/models"
)

// Sink accepts product records. Append must be safe for concurrent use.
type Sink interface {
	Append(ctx context.Context, rec models.ProductRecord) error
	Close() error
}

// Resetter is implemented by sinks that can be cleared at the start of a run
type Resetter interface {
	Reset() error
}

// Multi fans every record out to all sinks
type Multi struct {
	sinks []Sink
}

// NewMulti combines sinks. Nil entries are ignored.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Append writes rec to every sink, even when an earlier one fails
func (m *Multi) Append(ctx context.Context, rec models.ProductRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Append(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reset clears every sink that supports it
func (m *Multi) Reset() error {
	var errs []error
	for _, s := range m.sinks {
		if r, ok := s.(Resetter); ok {
			if err := r.Reset(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of wrapped sinks
func (m *Multi) Len() int { return len(m.sinks) }
