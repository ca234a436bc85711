package sheets

import (
	"context"
	"errors"
)

// ErrTableNotFound is returned by readers when a table has never been written.
var ErrTableNotFound = errors.New("table not found")

// Ports for outbound adapters. A table is a header row followed by data rows,
// every cell in textual form.
type (
	TableReader interface {
		// ReadTable returns the header and the data rows of the named table.
		ReadTable(ctx context.Context, name string) (header []string, rows [][]string, err error)
	}

	TableWriter interface {
		// WriteTable replaces the whole named table. Partial writes are not supported.
		WriteTable(ctx context.Context, name string, header []string, rows [][]string) error
	}

	TableStore interface {
		TableReader
		TableWriter
	}
)
