// ABOUTME: SQLite-backed graph store holding nodes (uri -> value) and edges (source -> sink).
package store

import (
	"bytes"
	"database/sql"
	"encoding/json"

	_ "github.com/mattn/go-sqlite3"
)

// Null is the canonical JSON encoding of a placeholder node value.
var Null = json.RawMessage("null")

// Node is a URI-addressed desired-state assertion. Value is either the
// literal JSON token "null" (placeholder) or a JSON object with exactly one
// top-level key naming the desired state class.
type Node struct {
	URI    string
	Value  json.RawMessage
	Author sql.NullString
}

// Edge is a directed ordering constraint: Source must be reconciled before Sink.
type Edge struct {
	Source string
	Sink   string
	Author sql.NullString
}

// InsertOutcome reports what InsertNode / InsertEdge actually did.
type InsertOutcome int

const (
	Inserted InsertOutcome = iota
	Noop
	Conflict
)

func (o InsertOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Noop:
		return "noop"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Store is the durable node/edge relation backing the manifest graph.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS node (
	uri TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	author TEXT
);

CREATE TABLE IF NOT EXISTS edge (
	source TEXT NOT NULL REFERENCES node(uri),
	sink TEXT NOT NULL REFERENCES node(uri),
	author TEXT,
	PRIMARY KEY(source, sink) ON CONFLICT REPLACE
);
`

// Setup opens the store at path, creating the node/edge tables if they do
// not already exist. It never drops existing rows, only ensures the schema is
// present; the CLI's "setup" command removes the file first to start fresh.
func Setup(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, &StoreError{Op: "set WAL mode", Err: err}
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, &StoreError{Op: "enable foreign keys", Err: err}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, &StoreError{Op: "create schema", Err: err}
	}
	return &Store{db: db}, nil
}

// Open opens an existing store at path without altering its schema beyond
// ensuring the tables exist (idempotent with Setup).
func Open(path string) (*Store, error) {
	return Setup(path)
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func authorValue(author *string) sql.NullString {
	if author == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *author, Valid: true}
}

// InsertNode applies the value-conflict rule:
//   - new value equals stored value: Noop
//   - stored value is JSON-null: overwrite, Inserted
//   - new value is JSON-null: Noop (never downgrade a concrete value)
//   - otherwise, distinct concrete values: Conflict, *ValueConflictError
//   - no existing row: Inserted
func (s *Store) InsertNode(uri string, value json.RawMessage, author *string) (InsertOutcome, error) {
	if value == nil {
		value = Null
	}

	existing, err := s.getNodeValue(uri)
	if err != nil {
		return Noop, err
	}

	if existing == nil {
		if _, err := s.db.Exec(
			"INSERT INTO node(uri, value, author) VALUES (?, ?, ?)",
			uri, string(value), authorValue(author),
		); err != nil {
			return Noop, &StoreError{Op: "insert node", Err: err}
		}
		return Inserted, nil
	}

	if jsonEqual(existing, value) {
		return Noop, nil
	}

	if bytes.Equal(bytes.TrimSpace(existing), Null) {
		if _, err := s.db.Exec(
			"UPDATE node SET value = ?, author = ? WHERE uri = ?",
			string(value), authorValue(author), uri,
		); err != nil {
			return Noop, &StoreError{Op: "overwrite node", Err: err}
		}
		return Inserted, nil
	}

	if bytes.Equal(bytes.TrimSpace(value), Null) {
		return Noop, nil
	}

	return Conflict, &ValueConflictError{
		URI:      uri,
		Stored:   string(existing),
		Proposed: string(value),
	}
}

func (s *Store) getNodeValue(uri string) (json.RawMessage, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM node WHERE uri = ?", uri).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "read node", Err: err}
	}
	return json.RawMessage(value), nil
}

func jsonEqual(a, b json.RawMessage) bool {
	var av, bv any
	if err := json.Unmarshal(a, &av); err != nil {
		return bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b))
	}
	if err := json.Unmarshal(b, &bv); err != nil {
		return bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b))
	}
	aCanon, _ := json.Marshal(av)
	bCanon, _ := json.Marshal(bv)
	return bytes.Equal(aCanon, bCanon)
}

// InsertEdge is idempotent: repeated insertion of the same (source, sink)
// pair replaces the author but never duplicates the row (composite primary
// key with ON CONFLICT REPLACE). Returns Inserted only when no row existed
// for the pair; otherwise Noop, whether or not the author was replaced.
func (s *Store) InsertEdge(source, sink string, author *string) (InsertOutcome, error) {
	var existingAuthor sql.NullString
	err := s.db.QueryRow(
		"SELECT author FROM edge WHERE source = ? AND sink = ?", source, sink,
	).Scan(&existingAuthor)
	existed := err == nil
	if err != nil && err != sql.ErrNoRows {
		return Noop, &StoreError{Op: "read edge", Err: err}
	}

	newAuthor := authorValue(author)
	if existed && existingAuthor == newAuthor {
		return Noop, nil
	}

	if _, err := s.db.Exec(
		"INSERT INTO edge(source, sink, author) VALUES (?, ?, ?)",
		source, sink, newAuthor,
	); err != nil {
		return Noop, &StoreError{Op: "insert edge", Err: err}
	}
	if existed {
		return Noop, nil
	}
	return Inserted, nil
}

// Snapshot returns a consistent read of every node and edge, used to seed a run.
func (s *Store) Snapshot() ([]Node, []Edge, error) {
	nodes, err := s.AllNodes()
	if err != nil {
		return nil, nil, err
	}
	edges, err := s.AllEdges()
	if err != nil {
		return nil, nil, err
	}
	return nodes, edges, nil
}

// AllNodes lists every stored node, ordered by URI for determinism.
func (s *Store) AllNodes() ([]Node, error) {
	rows, err := s.db.Query("SELECT uri, value, author FROM node ORDER BY uri")
	if err != nil {
		return nil, &StoreError{Op: "list nodes", Err: err}
	}
	defer rows.Close()

	var out []Node
	for rows.Next() {
		var n Node
		var value string
		if err := rows.Scan(&n.URI, &value, &n.Author); err != nil {
			return nil, &StoreError{Op: "scan node", Err: err}
		}
		n.Value = json.RawMessage(value)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "iterate nodes", Err: err}
	}
	return out, nil
}

// AllEdges lists every stored edge, ordered by (source, sink) for determinism.
func (s *Store) AllEdges() ([]Edge, error) {
	rows, err := s.db.Query("SELECT source, sink, author FROM edge ORDER BY source, sink")
	if err != nil {
		return nil, &StoreError{Op: "list edges", Err: err}
	}
	defer rows.Close()

	var out []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.Source, &e.Sink, &e.Author); err != nil {
			return nil, &StoreError{Op: "scan edge", Err: err}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "iterate edges", Err: err}
	}
	return out, nil
}

// GetNode returns a single node by URI, or (Node{}, false, nil) if absent.
func (s *Store) GetNode(uri string) (Node, bool, error) {
	var n Node
	var value string
	err := s.db.QueryRow("SELECT uri, value, author FROM node WHERE uri = ?", uri).
		Scan(&n.URI, &value, &n.Author)
	if err == sql.ErrNoRows {
		return Node{}, false, nil
	}
	if err != nil {
		return Node{}, false, &StoreError{Op: "get node", Err: err}
	}
	n.Value = json.RawMessage(value)
	return n, true, nil
}

