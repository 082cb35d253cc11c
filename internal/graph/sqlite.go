package graph

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/ohler55/ojg/oj"
	_ "modernc.org/sqlite"

	"github.com/agentic-research/autoinit/internal/query"
)

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	id TEXT PRIMARY KEY,
	parent_id TEXT,
	name TEXT NOT NULL,
	kind INTEGER NOT NULL,
	value JSON
);
CREATE INDEX IF NOT EXISTS idx_parent_name ON nodes(parent_id, name);
`

// SQLiteWriter writes nodes into a SQLite database in a single transaction.
// Write errors are kept and reported by Close.
type SQLiteWriter struct {
	mu   sync.Mutex
	db   *sql.DB
	tx   *sql.Tx
	stmt *sql.Stmt
	err  error
}

// NewSQLiteWriter opens (or creates) the database at dbPath.
func NewSQLiteWriter(dbPath string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO nodes (id, parent_id, name, kind, value)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		_ = db.Close()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	return &SQLiteWriter{db: db, tx: tx, stmt: stmt}, nil
}

// AddRoot implements Target.
func (w *SQLiteWriter) AddRoot(n *Node) {
	w.AddNode(n)
}

// AddNode implements Target.
func (w *SQLiteWriter) AddNode(n *Node) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}

	var parentID *string
	if n.Parent != "" {
		p := n.Parent
		parentID = &p
	}
	var value *string
	if n.Kind == KindValue {
		v := query.JSON(n.Value, 0)
		value = &v
	}
	if _, err := w.stmt.Exec(n.ID, parentID, n.Name, int(n.Kind), value); err != nil {
		w.err = fmt.Errorf("insert %s: %w", n.ID, err)
	}
}

// Close commits the transaction, or rolls it back if any insert failed, and
// closes the database.
func (w *SQLiteWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_ = w.stmt.Close()
	if w.err != nil {
		_ = w.tx.Rollback()
		_ = w.db.Close()
		return w.err
	}
	if err := w.tx.Commit(); err != nil {
		_ = w.db.Close()
		return fmt.Errorf("commit: %w", err)
	}
	return w.db.Close()
}

// LoadSQLite reads a database written by SQLiteWriter back into a MemoryStore.
func LoadSQLite(dbPath string) (*MemoryStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	rows, err := db.Query("SELECT id, parent_id, name, kind, value FROM nodes ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	store := NewMemoryStore()
	var nodes []*Node
	for rows.Next() {
		var (
			n      Node
			parent sql.NullString
			kind   int
			value  sql.NullString
		)
		if err := rows.Scan(&n.ID, &parent, &n.Name, &kind, &value); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		n.Parent = parent.String
		n.Kind = Kind(kind)
		if value.Valid {
			if n.Value, err = oj.ParseString(value.String); err != nil {
				return nil, fmt.Errorf("parse value of %s: %w", n.ID, err)
			}
		}
		nodes = append(nodes, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byID := make(map[string]*Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	for _, n := range nodes {
		if n.Parent == "" {
			store.AddRoot(n)
			continue
		}
		parent, ok := byID[n.Parent]
		if !ok {
			return nil, fmt.Errorf("node %s: parent %s: %w", n.ID, n.Parent, ErrNotFound)
		}
		parent.Children = append(parent.Children, n.ID)
		store.AddNode(n)
	}
	return store, nil
}

var _ Target = (*SQLiteWriter)(nil)
