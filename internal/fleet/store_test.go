package fleet

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/armadillo-fleet/armadillo-core/internal/infrastructure/database"
	_ "github.com/armadillo-fleet/armadillo-core/migrations"
)

// setupTestDB creates an in-memory SQLite database with the full schema applied.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := (&database.DB{DB: sqlDB}).Migrate(context.Background()); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return sqlDB
}

var registries = map[string]func(t *testing.T) *Registry{
	"sqlite": func(t *testing.T) *Registry { return NewSQLiteRegistry(setupTestDB(t)) },
	"memory": func(*testing.T) *Registry { return NewMemoryRegistry() },
}

func forEachRegistry(t *testing.T, fn func(t *testing.T, r *Registry)) {
	for name, factory := range registries {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

// seedAcme inserts Acme with one trailer holding a bike and an oven.
func seedAcme(t *testing.T, r *Registry) (Organization, Trailer) {
	t.Helper()
	ctx := context.Background()

	org := Organization{Name: "Acme"}
	if err := r.Organizations.Insert(ctx, &org); err != nil {
		t.Fatalf("insert organization: %v", err)
	}
	trailer := Trailer{Name: "T1", Location: "Depot", OrgID: org.ID}
	if err := r.Trailers.Insert(ctx, &trailer); err != nil {
		t.Fatalf("insert trailer: %v", err)
	}
	if err := r.Bikes.Insert(ctx, &Bike{TrailerID: trailer.ID, Name: "b1"}); err != nil {
		t.Fatalf("insert bike: %v", err)
	}
	if err := r.Ovens.Insert(ctx, &Oven{TrailerID: trailer.ID, Name: "o1"}); err != nil {
		t.Fatalf("insert oven: %v", err)
	}
	return org, trailer
}

func TestRegistry_InsertAssignsIDs(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, r *Registry) {
		org, trailer := seedAcme(t, r)
		if org.ID == 0 || trailer.ID == 0 {
			t.Fatalf("ids not assigned: org=%d trailer=%d", org.ID, trailer.ID)
		}

		got, err := r.Trailers.ByID(context.Background(), trailer.ID)
		if err != nil {
			t.Fatalf("ByID() error = %v", err)
		}
		if *got != trailer {
			t.Errorf("ByID() = %+v, want %+v", *got, trailer)
		}
	})
}

func TestRegistry_ByIDNotFound(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, r *Registry) {
		ctx := context.Background()
		if _, err := r.Organizations.ByID(ctx, 999); !errors.Is(err, ErrNotFound) {
			t.Errorf("Organizations.ByID(999) error = %v, want ErrNotFound", err)
		}
		if _, err := r.Bikes.ByID(ctx, 999); !errors.Is(err, ErrNotFound) {
			t.Errorf("Bikes.ByID(999) error = %v, want ErrNotFound", err)
		}
	})
}

func TestRegistry_ByParentIDOrderedAndNonNil(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, r *Registry) {
		ctx := context.Background()
		_, trailer := seedAcme(t, r)

		for i := 0; i < 3; i++ {
			if err := r.Microgrids.Insert(ctx, &SolarMicrogrid{TrailerID: trailer.ID}); err != nil {
				t.Fatalf("insert microgrid: %v", err)
			}
		}

		grids, err := r.Microgrids.ByParentID(ctx, trailer.ID)
		if err != nil {
			t.Fatalf("ByParentID() error = %v", err)
		}
		if len(grids) != 3 {
			t.Fatalf("ByParentID() returned %d microgrids, want 3", len(grids))
		}
		for i := 1; i < len(grids); i++ {
			if grids[i-1].ID >= grids[i].ID {
				t.Errorf("microgrids not ordered by id: %d before %d", grids[i-1].ID, grids[i].ID)
			}
		}

		empty, err := r.Bikes.ByParentID(ctx, 12345)
		if err != nil {
			t.Fatalf("ByParentID(unknown) error = %v", err)
		}
		if empty == nil || len(empty) != 0 {
			t.Errorf("ByParentID(unknown) = %#v, want empty non-nil slice", empty)
		}
	})
}

func TestRegistry_InsertParentNotFound(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, r *Registry) {
		ctx := context.Background()

		err := r.Trailers.Insert(ctx, &Trailer{Name: "orphan", OrgID: 42})
		if !errors.Is(err, ErrParentNotFound) {
			t.Errorf("Trailers.Insert() error = %v, want ErrParentNotFound", err)
		}
		err = r.Ovens.Insert(ctx, &Oven{TrailerID: 42})
		if !errors.Is(err, ErrParentNotFound) {
			t.Errorf("Ovens.Insert() error = %v, want ErrParentNotFound", err)
		}
	})
}

func TestRegistry_InsertInvalid(t *testing.T) {
	maxTemp := 5000.0
	negative := -1.0

	forEachRegistry(t, func(t *testing.T, r *Registry) {
		ctx := context.Background()
		tests := []struct {
			name   string
			insert func() error
		}{
			{"empty organization name", func() error { return r.Organizations.Insert(ctx, &Organization{Name: "  "}) }},
			{"trailer without org", func() error { return r.Trailers.Insert(ctx, &Trailer{Name: "T"}) }},
			{"bike without trailer", func() error { return r.Bikes.Insert(ctx, &Bike{}) }},
			{"oven too hot", func() error { return r.Ovens.Insert(ctx, &Oven{TrailerID: 1, MaxTempC: &maxTemp}) }},
			{"negative capacity", func() error {
				return r.Microgrids.Insert(ctx, &SolarMicrogrid{TrailerID: 1, CapacityW: &negative})
			}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if err := tt.insert(); !errors.Is(err, ErrInvalidEntity) {
					t.Errorf("Insert() error = %v, want ErrInvalidEntity", err)
				}
			})
		}
	})
}

func TestRegistry_ListOrganizations(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, r *Registry) {
		ctx := context.Background()

		orgs, err := r.Organizations.List(ctx)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(orgs) != 0 {
			t.Errorf("List() on empty registry = %d orgs", len(orgs))
		}

		for _, name := range []string{"Acme", "Globex"} {
			if err := r.Organizations.Insert(ctx, &Organization{Name: name}); err != nil {
				t.Fatalf("Insert(%s) error = %v", name, err)
			}
		}
		orgs, _ = r.Organizations.List(ctx)
		if len(orgs) != 2 || orgs[0].Name != "Acme" || orgs[1].Name != "Globex" {
			t.Errorf("List() = %+v", orgs)
		}
	})
}

func TestSQLiteStore_OptionalColumns(t *testing.T) {
	r := NewSQLiteRegistry(setupTestDB(t))
	ctx := context.Background()
	_, trailer := seedAcme(t, r)

	maxTemp := 450.0
	oven := Oven{TrailerID: trailer.ID, Name: "pizza", MaxTempC: &maxTemp}
	if err := r.Ovens.Insert(ctx, &oven); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := r.Ovens.ByID(ctx, oven.ID)
	if err != nil {
		t.Fatalf("ByID() error = %v", err)
	}
	if got.MaxTempC == nil || *got.MaxTempC != 450 {
		t.Errorf("MaxTempC = %v, want 450", got.MaxTempC)
	}

	ovens, _ := r.Ovens.ByParentID(ctx, trailer.ID)
	if ovens[0].MaxTempC != nil {
		t.Errorf("first oven MaxTempC = %v, want nil", *ovens[0].MaxTempC)
	}
}

func TestSQLiteStore_CascadeDelete(t *testing.T) {
	db := setupTestDB(t)
	r := NewSQLiteRegistry(db)
	ctx := context.Background()
	org, trailer := seedAcme(t, r)

	if _, err := db.ExecContext(ctx, "DELETE FROM organizations WHERE id = ?", org.ID); err != nil {
		t.Fatalf("delete organization: %v", err)
	}

	if _, err := r.Trailers.ByID(ctx, trailer.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("trailer survived organization delete: %v", err)
	}
	bikes, _ := r.Bikes.ByParentID(ctx, trailer.ID)
	if len(bikes) != 0 {
		t.Errorf("%d bikes survived organization delete", len(bikes))
	}
}

func TestSQLiteStore_ClosedDatabase(t *testing.T) {
	db := setupTestDB(t)
	r := NewSQLiteRegistry(db)
	db.Close()

	_, err := r.Organizations.ByID(context.Background(), 1)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("ByID() on closed db error = %v, want a non-NotFound failure", err)
	}
}
