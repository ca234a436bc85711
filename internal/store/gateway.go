// Package store persists ledger tables as whole snapshots and keeps typed,
// cached copies of them in memory.
package store

import (
	"context"
	"errors"
	"fmt"

	"gestor/internal/log"
	"gestor/internal/sheets"
)

var (
	// ErrPersist wraps every failed snapshot write.
	ErrPersist = errors.New("persist snapshot")
	// ErrUnreadable wraps a snapshot read that failed for any reason other
	// than a missing table.
	ErrUnreadable = errors.New("read snapshot")
)

// CommitNotifier is told about every snapshot that was written successfully.
type CommitNotifier interface {
	PublishSnapshotCommitted(ctx context.Context, table string, rows int) error
}

// Pinger is implemented by backends that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Gateway reads and writes whole tables on a backend.
type Gateway struct {
	backend  sheets.TableStore
	notifier CommitNotifier
	logger   *log.Logger
}

// NewGateway creates a gateway over backend. notifier may be nil.
func NewGateway(backend sheets.TableStore, notifier CommitNotifier, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Gateway{backend: backend, notifier: notifier, logger: logger.WithComponent(log.ComponentStore)}
}

// Read returns the rows of table laid out in columns order. A missing table
// reads as empty. Any other failure is returned wrapped in ErrUnreadable so
// callers can serve an empty table without mistaking it for the real one.
func (g *Gateway) Read(ctx context.Context, table string, columns []string) ([][]string, error) {
	header, rows, err := g.backend.ReadTable(ctx, table)
	if err != nil {
		if errors.Is(err, sheets.ErrTableNotFound) {
			g.logger.DebugContext(ctx, "Table not found, starting empty", log.FieldTable, table)
			return nil, nil
		}
		if ctx.Err() == nil {
			g.logger.WarnContext(ctx, "Failed to read table",
				log.FieldTable, table, log.FieldError, err)
		}
		return nil, fmt.Errorf("%w %s: %w", ErrUnreadable, table, err)
	}
	return project(header, rows, columns), nil
}

// project reorders cells from header order to columns order. Columns absent
// from header read as "".
func project(header []string, rows [][]string, columns []string) [][]string {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			if j, ok := pos[col]; ok && j < len(row) {
				cells[i] = row[j]
			}
		}
		out = append(out, cells)
	}
	return out
}

// Write replaces table with rows and then notifies the commit notifier.
func (g *Gateway) Write(ctx context.Context, table string, columns []string, rows [][]string) error {
	if err := g.backend.WriteTable(ctx, table, columns, rows); err != nil {
		return fmt.Errorf("%w %s: %w", ErrPersist, table, err)
	}
	g.logger.InfoContext(ctx, "Snapshot written", log.NewFields().WithTable(table, len(rows)).ToSlice()...)

	if g.notifier != nil {
		if err := g.notifier.PublishSnapshotCommitted(ctx, table, len(rows)); err != nil {
			g.logger.WarnContext(ctx, "Failed to publish snapshot commit",
				log.FieldTable, table, log.FieldError, err)
		}
	}
	return nil
}

// Ping checks the backend when it supports health checks.
func (g *Gateway) Ping(ctx context.Context) error {
	if p, ok := g.backend.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
