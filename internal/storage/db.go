// Package storage keeps the compatibility history of a project in SQLite:
// every schema document that was checked, addressed by fingerprint, and
// every verdict the gate produced.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"schemagate/internal/errors"
)

// DBFileName is the history database inside the data directory.
const DBFileName = "history.db"

// DB is the history database with transaction helpers
type DB struct {
	conn     *sql.DB
	logger   *slog.Logger
	dbPath   string
	compress bool

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Option configures Open.
type Option func(*DB)

// WithCompression toggles zstd compression of stored schema documents.
// Compressed and uncompressed rows can be read either way.
func WithCompression(on bool) Option {
	return func(db *DB) { db.compress = on }
}

// Open opens or creates <dir>/history.db and brings its tables up to date.
func Open(dir string, logger *slog.Logger, opts ...Option) (*DB, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, storageError("failed to create storage directory", err)
	}

	dbPath := filepath.Join(dir, DBFileName)
	dbExists := fileExists(dbPath)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, storageError("failed to open database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, storageError("failed to set pragma", err)
		}
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	db := &DB{
		conn:     conn,
		logger:   logger,
		dbPath:   dbPath,
		compress: true,
		enc:      enc,
		dec:      dec,
	}
	for _, opt := range opts {
		opt(db)
	}

	if !dbExists {
		logger.Info("Creating history database", "path", dbPath)
		err = db.initializeSchema()
	} else {
		logger.Debug("Running history database migrations", "path", dbPath)
		err = db.runMigrations()
	}
	if err != nil {
		db.Close()
		return nil, storageError("failed to prepare history tables", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.enc != nil {
		_ = db.enc.Close()
	}
	if db.dec != nil {
		db.dec.Close()
	}
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.dbPath
}

// WithTx executes fn within a transaction. The transaction is rolled back
// when fn returns an error and committed otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("failed to rollback transaction",
				"error", err.Error(),
				"rollback_error", rbErr.Error(),
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func storageError(msg string, err error) error {
	return errors.NewSchemaGateError(errors.StorageError, msg, err)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
