package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gestor/internal/sheets"

	_ "modernc.org/sqlite"
)

// SQLiteRepository keeps each table snapshot as a header plus ordered rows.
// Every write bumps the table version; the mirror worker copies tables whose
// version is ahead of the last mirrored one.
type SQLiteRepository struct {
	db            *sql.DB
	schemaVersion uint
}

// TableState describes a stored table for mirroring.
type TableState struct {
	Name            string
	Version         int64
	MirroredVersion int64
	UpdatedAt       time.Time
}

var _ sheets.TableStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := MigrateSchema(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &SQLiteRepository{db: db, schemaVersion: version}, nil
}

// SchemaVersion is the snapshot schema version applied when the repository opened.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.schemaVersion
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ReadTable implements sheets.TableReader.
func (r *SQLiteRepository) ReadTable(ctx context.Context, name string) ([]string, [][]string, error) {
	var rawHeader string
	err := r.db.QueryRowContext(ctx,
		`SELECT header FROM snapshot_tables WHERE table_name = ?`, name).Scan(&rawHeader)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, sheets.ErrTableNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header %s: %w", name, err)
	}
	var header []string
	if err := json.Unmarshal([]byte(rawHeader), &header); err != nil {
		return nil, nil, fmt.Errorf("decode header %s: %w", name, err)
	}

	rs, err := r.db.QueryContext(ctx,
		`SELECT cells FROM snapshot_rows WHERE table_name = ? ORDER BY row_index`, name)
	if err != nil {
		return nil, nil, fmt.Errorf("read rows %s: %w", name, err)
	}
	defer rs.Close()

	var rows [][]string
	for rs.Next() {
		var raw string
		if err := rs.Scan(&raw); err != nil {
			return nil, nil, fmt.Errorf("scan row %s: %w", name, err)
		}
		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return nil, nil, fmt.Errorf("decode row %s: %w", name, err)
		}
		rows = append(rows, cells)
	}
	if err := rs.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows %s: %w", name, err)
	}
	return header, rows, nil
}

// WriteTable implements sheets.TableWriter. The previous snapshot is replaced
// atomically.
func (r *SQLiteRepository) WriteTable(ctx context.Context, name string, header []string, rows [][]string) error {
	rawHeader, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("encode header %s: %w", name, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshot_tables (table_name, header, version, updated_at)
		VALUES (?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(table_name) DO UPDATE SET
			header = excluded.header,
			version = snapshot_tables.version + 1,
			updated_at = CURRENT_TIMESTAMP`, name, string(rawHeader)); err != nil {
		return fmt.Errorf("upsert table %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_rows WHERE table_name = ?`, name); err != nil {
		return fmt.Errorf("clear rows %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_rows (table_name, row_index, cells) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		raw, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row %d of %s: %w", i, name, err)
		}
		if _, err := stmt.ExecContext(ctx, name, i, string(raw)); err != nil {
			return fmt.Errorf("insert row %d of %s: %w", i, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}

	slog.DebugContext(ctx, "Table snapshot stored", "table", name, "rows", len(rows))
	return nil
}

// PendingMirror returns tables written since they were last mirrored.
func (r *SQLiteRepository) PendingMirror(ctx context.Context) ([]TableState, error) {
	rs, err := r.db.QueryContext(ctx, `
		SELECT table_name, version, mirrored_version, updated_at
		FROM snapshot_tables
		WHERE version > mirrored_version
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("query pending tables: %w", err)
	}
	defer rs.Close()

	var out []TableState
	for rs.Next() {
		var s TableState
		if err := rs.Scan(&s.Name, &s.Version, &s.MirroredVersion, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan pending table: %w", err)
		}
		out = append(out, s)
	}
	return out, rs.Err()
}

// MarkMirrored records that version of table name reached the mirror.
// A newer local write keeps the table pending.
func (r *SQLiteRepository) MarkMirrored(ctx context.Context, name string, version int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE snapshot_tables SET mirrored_version = ?
		WHERE table_name = ? AND mirrored_version < ?`, version, name, version)
	if err != nil {
		return fmt.Errorf("mark mirrored %s: %w", name, err)
	}
	slog.InfoContext(ctx, "Table marked as mirrored", "table", name, "version", version)
	return nil
}
