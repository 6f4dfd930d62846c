// Package service holds the business rules behind the HTTP handlers. Each
// service depends on a narrow store interface so it can be tested with mocks.
package service

import (
	"errors"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"counseling-api/internal/apperr"
	"counseling-api/internal/store"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

// Page is a zero-based page request.
type Page struct {
	Page int
	Size int
}

// Normalize clamps size to [1, MaxPageSize] and page to >= 0.
func (p Page) Normalize() Page {
	if p.Page < 0 {
		p.Page = 0
	}
	switch {
	case p.Size <= 0:
		p.Size = DefaultPageSize
	case p.Size > MaxPageSize:
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int { return p.Page * p.Size }

// base is embedded by every service.
type base struct {
	log *zap.Logger
	now func() time.Time
}

func newBase(log *zap.Logger) base {
	if log == nil {
		log = zap.NewNop()
	}
	return base{log: log, now: time.Now}
}

// SetClock replaces the time source; tests use it to pin "now".
func (b *base) SetClock(now func() time.Time) { b.now = now }

// internal logs err and hides it behind an opaque 500.
func (b *base) internal(op string, err error) error {
	b.log.Error(op, zap.Error(err))
	return apperr.Internal(err)
}

// notFoundOr maps store.ErrNotFound to nf and anything else to Internal.
func (b *base) notFoundOr(op string, err error, nf error) error {
	if errors.Is(err, store.ErrNotFound) {
		return nf
	}
	return b.internal(op, err)
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
