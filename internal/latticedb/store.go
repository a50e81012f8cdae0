package latticedb

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomerten/latticeconstructor/lattice"
)

// ErrNotFound is returned when a lattice id does not exist.
var ErrNotFound = errors.New("lattice not found")

// Meta describes one stored lattice.
type Meta struct {
	LatticeID    string `json:"lattice_id"`
	Name         string `json:"name"`
	SourceFormat string `json:"source_format,omitempty"`
	SourceFile   string `json:"source_file,omitempty"`
	Elements     int    `json:"elements"`
	CreatedAtNs  int64  `json:"created_at_ns"`
	UpdatedAtNs  *int64 `json:"updated_at_ns,omitempty"`
}

// Store provides persistence for lattice builders.
type Store struct {
	db *DB
}

// NewStore creates a Store backed by the given database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// SaveLattice persists the builder's definitions and element order
// under a fresh id. Explicit sequence positions are stored alongside
// the order so a reloaded builder reproduces the same table.
func (s *Store) SaveLattice(b *lattice.Builder, meta Meta) (string, error) {
	if meta.LatticeID == "" {
		meta.LatticeID = uuid.New().String()
	}
	if meta.Name == "" {
		meta.Name = b.Name()
	}
	if meta.CreatedAtNs == 0 {
		meta.CreatedAtNs = time.Now().UnixNano()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("save lattice: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO lattices (lattice_id, name, source_format, source_file, created_at_ns, updated_at_ns)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		meta.LatticeID,
		meta.Name,
		nullString(meta.SourceFormat),
		nullString(meta.SourceFile),
		meta.CreatedAtNs,
		nullInt64(meta.UpdatedAtNs),
	)
	if err != nil {
		return "", fmt.Errorf("insert lattice: %w", err)
	}

	for name, def := range b.Definitions() {
		var attrs any
		if len(def.Attrs) > 0 {
			data, err := json.Marshal(def.Attrs)
			if err != nil {
				return "", fmt.Errorf("marshal attrs of %s: %w", name, err)
			}
			attrs = string(data)
		}
		_, err = tx.Exec(`
			INSERT INTO lattice_elements (lattice_id, name, family, length, attrs_json)
			VALUES (?, ?, ?, ?, ?)
		`, meta.LatticeID, name, def.Family, def.L, attrs)
		if err != nil {
			return "", fmt.Errorf("insert element %s: %w", name, err)
		}
	}

	at := b.Placements()
	for i, name := range b.Order() {
		var pos any
		if at != nil {
			pos = at[i]
		}
		_, err = tx.Exec(`
			INSERT INTO lattice_sequence (lattice_id, seq_index, element_name, pos)
			VALUES (?, ?, ?, ?)
		`, meta.LatticeID, i, name, pos)
		if err != nil {
			return "", fmt.Errorf("insert sequence entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("save lattice: %w", err)
	}
	return meta.LatticeID, nil
}

// GetLattice reloads a stored lattice into a fresh builder.
func (s *Store) GetLattice(latticeID string) (*lattice.Builder, *Meta, error) {
	meta, err := s.getMeta(latticeID)
	if err != nil {
		return nil, nil, err
	}

	defs := lattice.Defs{}
	rows, err := s.db.Query(`
		SELECT name, family, length, attrs_json
		FROM lattice_elements WHERE lattice_id = ?
	`, latticeID)
	if err != nil {
		return nil, nil, fmt.Errorf("load elements: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var def lattice.Definition
		var attrsJSON sql.NullString
		if err := rows.Scan(&def.Name, &def.Family, &def.L, &attrsJSON); err != nil {
			return nil, nil, fmt.Errorf("scan element: %w", err)
		}
		if attrsJSON.Valid && attrsJSON.String != "" {
			if err := json.Unmarshal([]byte(attrsJSON.String), &def.Attrs); err != nil {
				return nil, nil, fmt.Errorf("unmarshal attrs of %s: %w", def.Name, err)
			}
		}
		defs[def.Name] = def
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("load elements: %w", err)
	}

	var order []string
	var at []float64
	allPlaced := true
	seqRows, err := s.db.Query(`
		SELECT element_name, pos
		FROM lattice_sequence WHERE lattice_id = ?
		ORDER BY seq_index
	`, latticeID)
	if err != nil {
		return nil, nil, fmt.Errorf("load sequence: %w", err)
	}
	defer seqRows.Close()
	for seqRows.Next() {
		var name string
		var pos sql.NullFloat64
		if err := seqRows.Scan(&name, &pos); err != nil {
			return nil, nil, fmt.Errorf("scan sequence entry: %w", err)
		}
		order = append(order, name)
		if pos.Valid {
			at = append(at, pos.Float64)
		} else {
			allPlaced = false
		}
	}
	if err := seqRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("load sequence: %w", err)
	}
	if !allPlaced || len(at) != len(order) {
		at = nil
	}

	b := lattice.NewBuilder()
	if err := b.SetLattice(meta.Name, defs, order, at); err != nil {
		return nil, nil, fmt.Errorf("rebuild lattice %s: %w", latticeID, err)
	}
	return b, meta, nil
}

// ListLattices returns metadata for all stored lattices, newest
// first.
func (s *Store) ListLattices() ([]Meta, error) {
	rows, err := s.db.Query(`
		SELECT l.lattice_id, l.name, l.source_format, l.source_file,
		       l.created_at_ns, l.updated_at_ns,
		       (SELECT COUNT(*) FROM lattice_sequence s WHERE s.lattice_id = l.lattice_id)
		FROM lattices l
		ORDER BY l.created_at_ns DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list lattices: %w", err)
	}
	defer rows.Close()

	var out []Meta
	for rows.Next() {
		m, err := scanMeta(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list lattices: %w", err)
	}
	return out, nil
}

// DeleteLattice removes a stored lattice and its elements.
func (s *Store) DeleteLattice(latticeID string) error {
	res, err := s.db.Exec("DELETE FROM lattices WHERE lattice_id = ?", latticeID)
	if err != nil {
		return fmt.Errorf("delete lattice: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete lattice: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, latticeID)
	}
	return nil
}

func (s *Store) getMeta(latticeID string) (*Meta, error) {
	row := s.db.QueryRow(`
		SELECT l.lattice_id, l.name, l.source_format, l.source_file,
		       l.created_at_ns, l.updated_at_ns,
		       (SELECT COUNT(*) FROM lattice_sequence s WHERE s.lattice_id = l.lattice_id)
		FROM lattices l
		WHERE l.lattice_id = ?
	`, latticeID)
	m, err := scanMeta(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, latticeID)
	}
	return m, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeta(row rowScanner) (*Meta, error) {
	var m Meta
	var format, file sql.NullString
	var updated sql.NullInt64
	err := row.Scan(&m.LatticeID, &m.Name, &format, &file, &m.CreatedAtNs, &updated, &m.Elements)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan lattice: %w", err)
	}
	if format.Valid {
		m.SourceFormat = format.String
	}
	if file.Valid {
		m.SourceFile = file.String
	}
	if updated.Valid {
		v := updated.Int64
		m.UpdatedAtNs = &v
	}
	return &m, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
