package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"nodal/domain/core/aggregates"
	"nodal/domain/core/valueobjects"
	"nodal/domain/versioning"
	"nodal/infrastructure/persistence/schema"
	pkgerrors "nodal/pkg/errors"
)

const createTable = `
CREATE TABLE IF NOT EXISTS canvas_documents (
	workspace_id     TEXT PRIMARY KEY,
	schema_version   INTEGER NOT NULL,
	document         BLOB NOT NULL,
	checksum         TEXT NOT NULL,
	note_count       INTEGER NOT NULL,
	zone_count       INTEGER NOT NULL,
	connection_count INTEGER NOT NULL,
	updated_at       TEXT NOT NULL
)`

// DocumentRepository stores one JSON document per workspace in SQLite
type DocumentRepository struct {
	db     *sql.DB
	codec  *schema.Codec
	logger *zap.Logger
	now    func() time.Time
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string, codec *schema.Codec, logger *zap.Logger) (*DocumentRepository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serialises writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if codec == nil {
		codec = schema.NewCodec(nil)
	}
	return &DocumentRepository{db: db, codec: codec, logger: logger, now: time.Now}, nil
}

// Close closes the database connection
func (r *DocumentRepository) Close() error {
	return r.db.Close()
}

// Load returns the stored document, upgraded, or a fresh one
func (r *DocumentRepository) Load(ctx context.Context, workspaceID valueobjects.WorkspaceID) (*aggregates.Document, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT document FROM canvas_documents WHERE workspace_id = ?`,
		workspaceID.String(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return aggregates.NewDocument(), nil
	}
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("load canvas", err)
	}

	doc, changed, err := r.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode workspace %s: %w", workspaceID, err)
	}
	if changed {
		r.logger.Info("Stored canvas document was normalized",
			zap.String("workspaceID", workspaceID.String()))
	}
	return doc, nil
}

// Save upserts the document
func (r *DocumentRepository) Save(ctx context.Context, workspaceID valueobjects.WorkspaceID, doc *aggregates.Document) error {
	data, err := r.codec.Encode(doc)
	if err != nil {
		return err
	}
	sum, err := versioning.Checksum(doc)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO canvas_documents
	(workspace_id, schema_version, document, checksum, note_count, zone_count, connection_count, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(workspace_id) DO UPDATE SET
	schema_version   = excluded.schema_version,
	document         = excluded.document,
	checksum         = excluded.checksum,
	note_count       = excluded.note_count,
	zone_count       = excluded.zone_count,
	connection_count = excluded.connection_count,
	updated_at       = excluded.updated_at`,
		workspaceID.String(),
		doc.SchemaVersion,
		data,
		sum,
		len(doc.Notes),
		len(doc.Zones),
		len(doc.Connections),
		r.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return pkgerrors.NewDatabaseError("save canvas", err)
	}
	return nil
}

// List returns the stored workspace ids in order
func (r *DocumentRepository) List(ctx context.Context) ([]valueobjects.WorkspaceID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT workspace_id FROM canvas_documents ORDER BY workspace_id`)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list canvases", err)
	}
	defer rows.Close()

	var out []valueobjects.WorkspaceID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, pkgerrors.NewDatabaseError("list canvases", err)
		}
		out = append(out, valueobjects.WorkspaceID(id))
	}
	return out, rows.Err()
}

// Ping checks the connection
func (r *DocumentRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
