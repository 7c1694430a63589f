package storage

import (
	"bytes"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteDB implements DB on a single SQLite table. Writes go through a
// one-connection writer pool; reads use a small reader pool (WAL mode).
type SQLiteDB struct {
	writer *sql.DB
	reader *sql.DB
	path   string
}

// NewSQLite opens (or creates) a SQLite database file at path and applies
// the embedded schema migrations.
func NewSQLite(path string) (*SQLiteDB, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)",
		path,
	)

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)
	if err := writer.Ping(); err != nil {
		writer.Close()
		return nil, fmt.Errorf("ping writer: %w", err)
	}

	if err := runMigrations(writer); err != nil {
		writer.Close()
		return nil, err
	}

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(4)
	if err := reader.Ping(); err != nil {
		reader.Close()
		writer.Close()
		return nil, fmt.Errorf("ping reader: %w", err)
	}

	return &SQLiteDB{writer: writer, reader: reader, path: path}, nil
}

// runMigrations applies all pending migrations. Already-applied migrations are skipped.
func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Get retrieves a value by key.
func (s *SQLiteDB) Get(key []byte) ([]byte, error) {
	var val []byte
	err := s.reader.QueryRow(`SELECT v FROM kv WHERE k = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get: %w", err)
	}
	if val == nil {
		val = []byte{}
	}
	return val, nil
}

// Put stores a key-value pair.
func (s *SQLiteDB) Put(key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.writer.Exec(`INSERT OR REPLACE INTO kv (k, v) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("sqlite put: %w", err)
	}
	return nil
}

// Delete removes a key.
func (s *SQLiteDB) Delete(key []byte) error {
	if _, err := s.writer.Exec(`DELETE FROM kv WHERE k = ?`, key); err != nil {
		return fmt.Errorf("sqlite delete: %w", err)
	}
	return nil
}

// Has checks if a key exists.
func (s *SQLiteDB) Has(key []byte) (bool, error) {
	var n int
	err := s.reader.QueryRow(`SELECT COUNT(1) FROM kv WHERE k = ?`, key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite has: %w", err)
	}
	return n > 0, nil
}

// ForEach iterates over all keys with the given prefix in key order.
// Rows are read fully before fn is called so fn may write to the DB.
func (s *SQLiteDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	rows, err := s.reader.Query(`SELECT k, v FROM kv ORDER BY k`)
	if err != nil {
		return fmt.Errorf("sqlite foreach: %w", err)
	}
	var matched []batchOp
	for rows.Next() {
		var k, v []byte
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return fmt.Errorf("sqlite scan: %w", err)
		}
		if bytes.HasPrefix(k, prefix) {
			matched = append(matched, batchOp{key: k, value: v})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("sqlite iterate: %w", err)
	}
	rows.Close()

	for _, kv := range matched {
		if kv.value == nil {
			kv.value = []byte{}
		}
		if err := fn(kv.key, kv.value); err != nil {
			return err
		}
	}
	return nil
}

// NewBatch returns a batch committed in a single SQL transaction.
func (s *SQLiteDB) NewBatch() Batch {
	return &sqliteBatch{db: s.writer}
}

// Close closes both reader and writer pools. Returns the first error encountered.
func (s *SQLiteDB) Close() error {
	var firstErr error
	if err := s.reader.Close(); err != nil {
		firstErr = fmt.Errorf("close reader: %w", err)
	}
	if err := s.writer.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close writer: %w", err)
	}
	return firstErr
}

type sqliteBatch struct {
	db  *sql.DB
	ops []batchOp
}

func (sb *sqliteBatch) Put(key, value []byte) error {
	v := cloneBytes(value)
	if v == nil {
		v = []byte{}
	}
	sb.ops = append(sb.ops, batchOp{key: cloneBytes(key), value: v})
	return nil
}

func (sb *sqliteBatch) Delete(key []byte) error {
	sb.ops = append(sb.ops, batchOp{key: cloneBytes(key)})
	return nil
}

func (sb *sqliteBatch) Commit() error {
	tx, err := sb.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	for _, op := range sb.ops {
		if op.value == nil {
			_, err = tx.Exec(`DELETE FROM kv WHERE k = ?`, op.key)
		} else {
			_, err = tx.Exec(`INSERT OR REPLACE INTO kv (k, v) VALUES (?, ?)`, op.key, op.value)
		}
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite batch: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	sb.ops = nil
	return nil
}
