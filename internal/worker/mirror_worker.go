// Package worker reacts to snapshot commit notifications by mirroring the
// committed table to the spreadsheet.
package worker

import (
	"context"
	"fmt"
	"strings"

	"gestor/internal/amqp"
	"gestor/internal/kafka"
	"gestor/internal/log"
)

// Mirrorer copies committed tables to the mirror.
type Mirrorer interface {
	MirrorTable(ctx context.Context, name string) error
	MirrorPending(ctx context.Context) (int, error)
}

// MirrorWorker handles snapshot commit messages from AMQP or Kafka.
type MirrorWorker struct {
	mirror Mirrorer
	tables map[string]bool
	logger *log.Logger
}

// NewMirrorWorker creates a worker that mirrors only the named tables;
// messages for other tables are acknowledged and ignored.
func NewMirrorWorker(mirror Mirrorer, tables []string, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	known := make(map[string]bool, len(tables))
	for _, t := range tables {
		known[t] = true
	}
	return &MirrorWorker{mirror: mirror, tables: known, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleSnapshotCommitted processes one commit notification. A returned
// error makes the consumer requeue the message.
func (w *MirrorWorker) HandleSnapshotCommitted(ctx context.Context, msg *amqp.SnapshotCommittedMessage) error {
	table := strings.TrimSpace(msg.Table)
	if !w.tables[table] {
		w.logger.WarnContext(ctx, "Ignoring commit for unknown table", log.FieldTable, table)
		return nil
	}
	w.logger.InfoContext(ctx, "Processing snapshot commit",
		log.FieldTable, table, log.FieldRows, msg.Rows, "timestamp", msg.Timestamp)

	if err := w.mirror.MirrorTable(ctx, table); err != nil {
		log.LogError(ctx, "Failed to mirror table", err, log.ComponentWorker, log.OpMirror,
			log.NewFields().WithTable(table, msg.Rows))
		return fmt.Errorf("mirror %s: %w", table, err)
	}
	return nil
}

// HandleSnapshotEvent processes a commit event read from Kafka.
func (w *MirrorWorker) HandleSnapshotEvent(ctx context.Context, ev kafka.SnapshotCommitted) error {
	return w.HandleSnapshotCommitted(ctx, &amqp.SnapshotCommittedMessage{
		Table:     ev.Table,
		Rows:      ev.Rows,
		Timestamp: ev.Timestamp,
	})
}

// StartupMirror copies whatever was committed while the worker was down.
func (w *MirrorWorker) StartupMirror(ctx context.Context) error {
	n, err := w.mirror.MirrorPending(ctx)
	if err != nil {
		return fmt.Errorf("startup mirror: %w", err)
	}
	if n == 0 {
		w.logger.InfoContext(ctx, "No pending tables found on startup")
		return nil
	}
	w.logger.InfoContext(ctx, "Startup mirror completed", "tables", n)
	return nil
}
