package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gestor/internal/sheets/memory"
	"gestor/internal/storage"
)

type failingWriter struct{}

func (failingWriter) WriteTable(context.Context, string, []string, [][]string) error {
	return errors.New("sheets unavailable")
}

func newMirrorFixture(t *testing.T) (*storage.SQLiteRepository, *memory.Store) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "gestor.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, memory.New()
}

func TestDefaultMirrorProcessorConfig(t *testing.T) {
	if got := DefaultMirrorProcessorConfig().PollInterval; got != 5*time.Minute {
		t.Errorf("expected PollInterval 5m, got %v", got)
	}
	if p := NewMirrorProcessor(nil, nil, MirrorProcessorConfig{}); p.config.PollInterval != 5*time.Minute {
		t.Errorf("expected zero interval to fall back to default, got %v", p.config.PollInterval)
	}
}

func TestMirrorPendingCopiesOnce(t *testing.T) {
	ctx := context.Background()
	repo, mirror := newMirrorFixture(t)
	if err := repo.WriteTable(ctx, "clientes", []string{"Nome", "Usuario"}, [][]string{{"ACME", "A"}}); err != nil {
		t.Fatal(err)
	}

	p := NewMirrorProcessor(repo, mirror, DefaultMirrorProcessorConfig())
	n, err := p.MirrorPending(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 table mirrored, got %d (%v)", n, err)
	}
	_, rows, err := mirror.ReadTable(ctx, "clientes")
	if err != nil || len(rows) != 1 || rows[0][0] != "ACME" {
		t.Fatalf("unexpected mirror content %v (%v)", rows, err)
	}

	n, _ = p.MirrorPending(ctx)
	if n != 0 {
		t.Errorf("expected nothing pending after mirroring, got %d", n)
	}
}

func TestMirrorTableOnlyTouchesNamedTable(t *testing.T) {
	ctx := context.Background()
	repo, mirror := newMirrorFixture(t)
	_ = repo.WriteTable(ctx, "clientes", []string{"Nome"}, nil)
	_ = repo.WriteTable(ctx, "cartoes", []string{"Nome"}, nil)

	p := NewMirrorProcessor(repo, mirror, DefaultMirrorProcessorConfig())
	if err := p.MirrorTable(ctx, "cartoes"); err != nil {
		t.Fatal(err)
	}
	if mirror.Writes() != 1 {
		t.Fatalf("expected a single mirror write, got %d", mirror.Writes())
	}
	pending, _ := repo.PendingMirror(ctx)
	if len(pending) != 1 || pending[0].Name != "clientes" {
		t.Fatalf("expected clientes still pending, got %+v", pending)
	}
}

func TestMirrorFailureKeepsTablePending(t *testing.T) {
	ctx := context.Background()
	repo, _ := newMirrorFixture(t)
	_ = repo.WriteTable(ctx, "acessos", []string{"Usuario", "Senha"}, nil)

	p := NewMirrorProcessor(repo, failingWriter{}, DefaultMirrorProcessorConfig())
	if _, err := p.MirrorPending(ctx); err == nil {
		t.Fatal("expected mirror error")
	}
	pending, _ := repo.PendingMirror(ctx)
	if len(pending) != 1 {
		t.Fatalf("expected table to stay pending, got %+v", pending)
	}
}

func TestMirrorProcessorStartStop(t *testing.T) {
	repo, mirror := newMirrorFixture(t)
	p := NewMirrorProcessor(repo, mirror, MirrorProcessorConfig{PollInterval: 10 * time.Millisecond})

	if p.IsRunning() {
		t.Fatal("processor should not be running initially")
	}
	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.Start(ctx); err == nil {
		t.Error("expected error starting twice")
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if p.IsRunning() {
		t.Error("processor should not be running after stop")
	}
}
