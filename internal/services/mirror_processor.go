package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gestor/internal/sheets"
	"gestor/internal/storage"
)

// MirrorSource is the primary table store that tracks which tables still
// need mirroring.
type MirrorSource interface {
	sheets.TableReader
	PendingMirror(ctx context.Context) ([]storage.TableState, error)
	MarkMirrored(ctx context.Context, name string, version int64) error
}

// MirrorProcessorConfig holds configuration for the mirror processor
type MirrorProcessorConfig struct {
	// PollInterval is how often pending tables are mirrored (default: 5m)
	PollInterval time.Duration
}

func DefaultMirrorProcessorConfig() MirrorProcessorConfig {
	return MirrorProcessorConfig{PollInterval: 5 * time.Minute}
}

// MirrorProcessor copies whole tables from the primary store to a mirror
// (the Google spreadsheet) whenever their version moves ahead.
type MirrorProcessor struct {
	source MirrorSource
	mirror sheets.TableWriter
	config MirrorProcessorConfig

	// serializes mirror passes between the poll loop and message handlers
	passMu sync.Mutex

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewMirrorProcessor(source MirrorSource, mirror sheets.TableWriter, config MirrorProcessorConfig) *MirrorProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultMirrorProcessorConfig().PollInterval
	}
	return &MirrorProcessor{source: source, mirror: mirror, config: config}
}

// Start begins the polling loop. Returns an error if already running.
func (p *MirrorProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("mirror processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Mirror processor started", "poll_interval", p.config.PollInterval)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *MirrorProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Mirror processor stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Mirror processor stop timed out")
		return ctx.Err()
	}
}

func (p *MirrorProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *MirrorProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Catch up on anything written while the worker was down
	p.logPass(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.logPass(ctx)
		}
	}
}

func (p *MirrorProcessor) logPass(ctx context.Context) {
	if _, err := p.MirrorPending(ctx); err != nil {
		slog.ErrorContext(ctx, "Mirror pass failed", "error", err)
	}
}

// MirrorPending copies every pending table and returns how many were copied.
// A failing table does not stop the others.
func (p *MirrorProcessor) MirrorPending(ctx context.Context) (int, error) {
	return p.mirrorWhere(ctx, func(string) bool { return true })
}

// MirrorTable copies one table if it is pending. It is the handler for
// snapshot commit notifications.
func (p *MirrorProcessor) MirrorTable(ctx context.Context, name string) error {
	_, err := p.mirrorWhere(ctx, func(n string) bool { return n == name })
	return err
}

func (p *MirrorProcessor) mirrorWhere(ctx context.Context, match func(string) bool) (int, error) {
	p.passMu.Lock()
	defer p.passMu.Unlock()

	pending, err := p.source.PendingMirror(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending tables: %w", err)
	}

	var errs []error
	copied := 0
	for _, st := range pending {
		if !match(st.Name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		if err := p.copyTable(ctx, st); err != nil {
			slog.WarnContext(ctx, "Mirror failed", "table", st.Name, "version", st.Version, "error", err)
			errs = append(errs, err)
			continue
		}
		copied++
	}
	return copied, errors.Join(errs...)
}

func (p *MirrorProcessor) copyTable(ctx context.Context, st storage.TableState) error {
	header, rows, err := p.source.ReadTable(ctx, st.Name)
	if err != nil {
		return fmt.Errorf("read %s: %w", st.Name, err)
	}
	if err := p.mirror.WriteTable(ctx, st.Name, header, rows); err != nil {
		return fmt.Errorf("write mirror %s: %w", st.Name, err)
	}
	if err := p.source.MarkMirrored(ctx, st.Name, st.Version); err != nil {
		// The copy succeeded; the table is simply mirrored again next pass.
		slog.WarnContext(ctx, "Failed to mark table mirrored", "table", st.Name, "error", err)
	}
	slog.InfoContext(ctx, "Table mirrored", "table", st.Name, "rows", len(rows), "version", st.Version)
	return nil
}
