package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"gestor/internal/cache"

	"golang.org/x/sync/singleflight"
)

// Codec maps a record type to the cells of one table.
type Codec[T any] struct {
	Table   string
	Columns []string
	Encode  func(T) []string
	// Decode returns false for rows that hold no record.
	Decode func([]string) (T, bool)
}

// Store is a typed table read through a cache.
//
// Writes are whole-table and unlocked across processes: two sessions that
// load, mutate and save concurrently resolve as last-writer-wins.
type Store[T any] struct {
	gw    *Gateway
	codec Codec[T]
	cache cache.Cache[[]T]
	group singleflight.Group
}

// New creates a store. c may be shared with nothing else; its only key is the
// table name.
func New[T any](gw *Gateway, codec Codec[T], c cache.Cache[[]T]) *Store[T] {
	return &Store[T]{gw: gw, codec: codec, cache: c}
}

// Table returns the table name.
func (s *Store[T]) Table() string {
	return s.codec.Table
}

// sharedReadTimeout bounds a backend read shared by concurrent loaders. The
// shared read does not follow any single caller's cancellation.
const sharedReadTimeout = 30 * time.Second

// Load returns a copy of every record. Concurrent cache misses share one read.
// An unreadable table loads as empty and is not cached, so the next Load
// tries the backend again.
func (s *Store[T]) Load(ctx context.Context) ([]T, error) {
	records, err := s.load(ctx)
	if errors.Is(err, ErrUnreadable) {
		return []T{}, nil
	}
	return records, err
}

func (s *Store[T]) load(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rows, ok := s.cache.Get(s.codec.Table); ok {
		return slices.Clone(rows), nil
	}
	ch := s.group.DoChan(s.codec.Table, func() (any, error) {
		if rows, ok := s.cache.Get(s.codec.Table); ok {
			return rows, nil
		}
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedReadTimeout)
		defer cancel()
		cells, err := s.gw.Read(readCtx, s.codec.Table, s.codec.Columns)
		if err != nil {
			return nil, err
		}
		rows := s.decode(cells)
		s.cache.Set(s.codec.Table, rows)
		return rows, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]T)), nil
	}
}

func (s *Store[T]) decode(rows [][]string) []T {
	out := make([]T, 0, len(rows))
	for _, cells := range rows {
		if rec, ok := s.codec.Decode(cells); ok {
			out = append(out, rec)
		}
	}
	return out
}

// Save writes records as the whole table. The cache is dropped after a
// successful write so the next Load sees what the backend holds.
func (s *Store[T]) Save(ctx context.Context, records []T) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, s.codec.Encode(r))
	}
	if err := s.gw.Write(ctx, s.codec.Table, s.codec.Columns, rows); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// Mutate loads the table, applies fn and saves the result. Nothing is written
// when fn fails or when the table could not be read, since saving would
// replace rows that were never seen.
func (s *Store[T]) Mutate(ctx context.Context, fn func([]T) ([]T, error)) error {
	records, err := s.load(ctx)
	if errors.Is(err, ErrUnreadable) {
		return fmt.Errorf("%w %s: refusing to overwrite: %w", ErrPersist, s.codec.Table, err)
	}
	if err != nil {
		return err
	}
	records, err = fn(records)
	if err != nil {
		return err
	}
	return s.Save(ctx, records)
}

// Invalidate drops the cached copy without writing.
func (s *Store[T]) Invalidate() {
	s.cache.Delete(s.codec.Table)
}
