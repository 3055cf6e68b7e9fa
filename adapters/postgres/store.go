// Package postgres is a durable upload registry. Tables are stored as JSONB
// alongside their listing metadata.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"log"
	"time"

	"vizora/domain/core"
	"vizora/domain/dataset"
	"vizora/internal/errors"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Store implements ports.DatasetStore on PostgreSQL.
type Store struct {
	db  *sqlx.DB
	ids *core.FileIDGenerator
}

// Open connects and applies migrations.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to postgres", err)
	}
	if err := NewMigrator(db).Up(ctx); err != nil {
		db.Close()
		return nil, errors.DatabaseError("failed to migrate", err)
	}
	return NewStore(db), nil
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, ids: core.NewFileIDGenerator()}
}

func (s *Store) Close() error { return s.db.Close() }

// Put inserts table under a fresh file ID.
func (s *Store) Put(ctx context.Context, filename string, table *dataset.Table) (*dataset.UploadedFile, error) {
	if table == nil {
		return nil, errors.InvalidInput("cannot register an empty upload")
	}
	id, err := s.ids.Next()
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate file id")
	}
	data, err := json.Marshal(table)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode table")
	}

	rec := &dataset.UploadedFile{FileID: id, Filename: filename, Table: table, UploadedAt: time.Now().UTC()}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO uploaded_files (file_id, filename, num_rows, num_columns, data, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.FileID.String(), rec.Filename, table.NumRows(), len(table.Columns), data, rec.UploadedAt)
	if err != nil {
		return nil, errors.DatabaseError("failed to store upload", err)
	}
	log.Printf("[PostgresStore] Registered %s as %s", filename, id)
	return rec, nil
}

type uploadRow struct {
	FileID     string    `db:"file_id"`
	Filename   string    `db:"filename"`
	Data       []byte    `db:"data"`
	UploadedAt time.Time `db:"uploaded_at"`
}

func (s *Store) Get(ctx context.Context, id core.FileID) (*dataset.UploadedFile, error) {
	var row uploadRow
	err := s.db.GetContext(ctx, &row,
		`SELECT file_id, filename, data, uploaded_at FROM uploaded_files WHERE file_id = $1`, id.String())
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("file " + id.String())
		}
		return nil, errors.DatabaseError("failed to load upload", err)
	}

	var table dataset.Table
	if err := json.Unmarshal(row.Data, &table); err != nil {
		return nil, errors.DatabaseError("stored table is corrupt", err)
	}
	return &dataset.UploadedFile{
		FileID:     core.FileID(row.FileID),
		Filename:   row.Filename,
		Table:      &table,
		UploadedAt: row.UploadedAt,
	}, nil
}

func (s *Store) List(ctx context.Context) ([]dataset.UploadInfo, error) {
	var out []dataset.UploadInfo
	err := s.db.SelectContext(ctx, &out,
		`SELECT file_id, filename, num_rows, uploaded_at FROM uploaded_files ORDER BY file_id`)
	if err != nil {
		return nil, errors.DatabaseError("failed to list uploads", err)
	}
	return out, nil
}
