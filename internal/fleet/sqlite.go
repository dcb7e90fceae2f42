package fleet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// DBTX is satisfied by *sql.DB and *sql.Tx, so stores can run inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// table describes how one entity type maps onto its SQLite table.
// columns excludes id; parent is empty for root entities.
type table[T any] struct {
	name     string
	parent   string
	columns  []string
	args     func(*T) []any
	scan     func(rowScanner, *T) error
	setID    func(*T, int64)
	validate func(*T) error
}

var organizationsTable = table[Organization]{
	name:    "organizations",
	columns: []string{"name"},
	args:    func(o *Organization) []any { return []any{strings.TrimSpace(o.Name)} },
	scan: func(row rowScanner, o *Organization) error {
		return row.Scan(&o.ID, &o.Name)
	},
	setID:    func(o *Organization, id int64) { o.ID = id },
	validate: (*Organization).Validate,
}

var trailersTable = table[Trailer]{
	name:    "trailers",
	parent:  "org_id",
	columns: []string{"name", "location", "org_id"},
	args: func(t *Trailer) []any {
		return []any{strings.TrimSpace(t.Name), strings.TrimSpace(t.Location), t.OrgID}
	},
	scan: func(row rowScanner, t *Trailer) error {
		return row.Scan(&t.ID, &t.Name, &t.Location, &t.OrgID)
	},
	setID:    func(t *Trailer, id int64) { t.ID = id },
	validate: (*Trailer).Validate,
}

var bikesTable = table[Bike]{
	name:    "bikes",
	parent:  "trailer_id",
	columns: []string{"trailer_id", "name"},
	args:    func(b *Bike) []any { return []any{b.TrailerID, strings.TrimSpace(b.Name)} },
	scan: func(row rowScanner, b *Bike) error {
		return row.Scan(&b.ID, &b.TrailerID, &b.Name)
	},
	setID:    func(b *Bike, id int64) { b.ID = id },
	validate: (*Bike).Validate,
}

var ovensTable = table[Oven]{
	name:    "ovens",
	parent:  "trailer_id",
	columns: []string{"trailer_id", "name", "max_temp_c"},
	args: func(o *Oven) []any {
		return []any{o.TrailerID, strings.TrimSpace(o.Name), nullFloat(o.MaxTempC)}
	},
	scan: func(row rowScanner, o *Oven) error {
		var maxTemp sql.NullFloat64
		if err := row.Scan(&o.ID, &o.TrailerID, &o.Name, &maxTemp); err != nil {
			return err
		}
		o.MaxTempC = floatPtr(maxTemp)
		return nil
	},
	setID:    func(o *Oven, id int64) { o.ID = id },
	validate: (*Oven).Validate,
}

var microgridsTable = table[SolarMicrogrid]{
	name:    "solar_microgrids",
	parent:  "trailer_id",
	columns: []string{"trailer_id", "name", "capacity_w"},
	args: func(m *SolarMicrogrid) []any {
		return []any{m.TrailerID, strings.TrimSpace(m.Name), nullFloat(m.CapacityW)}
	},
	scan: func(row rowScanner, m *SolarMicrogrid) error {
		var capacity sql.NullFloat64
		if err := row.Scan(&m.ID, &m.TrailerID, &m.Name, &capacity); err != nil {
			return err
		}
		m.CapacityW = floatPtr(capacity)
		return nil
	},
	setID:    func(m *SolarMicrogrid, id int64) { m.ID = id },
	validate: (*SolarMicrogrid).Validate,
}

// SQLiteStore implements the entity store contracts for one table.
type SQLiteStore[T any] struct {
	db DBTX
	t  table[T]
}

// NewSQLiteRegistry creates SQLite-backed stores for every entity kind.
// db may be a *sql.DB or a *sql.Tx.
func NewSQLiteRegistry(db DBTX) *Registry {
	return &Registry{
		Organizations: &SQLiteStore[Organization]{db: db, t: organizationsTable},
		Trailers:      &SQLiteStore[Trailer]{db: db, t: trailersTable},
		Bikes:         &SQLiteStore[Bike]{db: db, t: bikesTable},
		Ovens:         &SQLiteStore[Oven]{db: db, t: ovensTable},
		Microgrids:    &SQLiteStore[SolarMicrogrid]{db: db, t: microgridsTable},
	}
}

func (s *SQLiteStore[T]) selectSQL() string {
	return fmt.Sprintf("SELECT id, %s FROM %s", strings.Join(s.t.columns, ", "), s.t.name)
}

// ByID returns the row with the given id.
func (s *SQLiteStore[T]) ByID(ctx context.Context, id int64) (*T, error) {
	row := s.db.QueryRowContext(ctx, s.selectSQL()+" WHERE id = ?", id)

	var entity T
	if err := s.t.scan(row, &entity); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %d: %w", s.t.name, id, ErrNotFound)
		}
		return nil, fmt.Errorf("querying %s %d: %w", s.t.name, id, err)
	}
	return &entity, nil
}

// ByParentID returns every row owned by parentID, ordered by id.
func (s *SQLiteStore[T]) ByParentID(ctx context.Context, parentID int64) ([]T, error) {
	if s.t.parent == "" {
		return nil, fmt.Errorf("%s has no parent column", s.t.name)
	}
	return s.query(ctx, s.selectSQL()+" WHERE "+s.t.parent+" = ? ORDER BY id", parentID)
}

// List returns every row ordered by id.
func (s *SQLiteStore[T]) List(ctx context.Context) ([]T, error) {
	return s.query(ctx, s.selectSQL()+" ORDER BY id")
}

// Insert validates the entity, stores it and sets its ID.
// A missing parent row is reported as ErrParentNotFound.
func (s *SQLiteStore[T]) Insert(ctx context.Context, entity *T) error {
	if err := s.t.validate(entity); err != nil {
		return err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(s.t.columns)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.t.name, strings.Join(s.t.columns, ", "), placeholders)

	result, err := s.db.ExecContext(ctx, query, s.t.args(entity)...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("inserting into %s: %w", s.t.name, ErrParentNotFound)
		}
		return fmt.Errorf("inserting into %s: %w", s.t.name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading %s id: %w", s.t.name, err)
	}
	s.t.setID(entity, id)
	return nil
}

func (s *SQLiteStore[T]) query(ctx context.Context, query string, args ...any) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.t.name, err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		var entity T
		if err := s.t.scan(rows, &entity); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", s.t.name, err)
		}
		out = append(out, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", s.t.name, err)
	}
	return out, nil
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
