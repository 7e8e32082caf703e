//go:build integration && postgres

package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/careconnect/backend/internal/app/domain/medicine"
	"github.com/careconnect/backend/internal/app/domain/user"
	"github.com/careconnect/backend/internal/app/storage"
	"github.com/careconnect/backend/internal/platform/migrations"
)

// Integration test against a real Postgres to ensure migrations plus the
// core store flows work with persistence.
func TestIntegrationPostgres(t *testing.T) {
	_ = godotenv.Load() // allow .env for local runs
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration")
	}

	ctx := context.Background()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := migrations.Apply(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	store := New(db)

	u, err := store.CreateUser(ctx, user.User{
		Email:        "pg-integration@example.com",
		PasswordHash: "hash",
		Name:         "PG",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", u.ID)
	})

	if _, err := store.CreateUser(ctx, user.User{Email: u.Email, PasswordHash: "x"}); err != storage.ErrDuplicateEmail {
		t.Errorf("duplicate email error = %v", err)
	}

	med, err := store.CreateMedicine(ctx, medicine.Medicine{
		UserID: u.ID, Name: "Aspirin", Dosage: "100mg",
		Frequency: medicine.FrequencyDaily, Active: true,
		Times: []medicine.DoseSlot{{Time: "08:00"}, {Time: "20:00"}},
	})
	if err != nil {
		t.Fatalf("create medicine: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.ExecContext(ctx, "DELETE FROM medicines WHERE id = $1", med.ID)
	})

	got, err := store.GetMedicine(ctx, med.ID, u.ID)
	if err != nil {
		t.Fatalf("get medicine: %v", err)
	}
	if len(got.Times) != 2 || got.Times[0].Time != "08:00" {
		t.Errorf("times round-trip = %+v", got.Times)
	}

	if _, err := store.GetMedicine(ctx, med.ID, "some-other-user"); err != storage.ErrNotFound {
		t.Errorf("cross-owner get = %v, want ErrNotFound", err)
	}

	list, err := store.ListMedicines(ctx, u.ID, true)
	if err != nil {
		t.Fatalf("list medicines: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("active list length = %d", len(list))
	}

	if err := store.DeleteMedicine(ctx, med.ID, u.ID); err != nil {
		t.Fatalf("delete medicine: %v", err)
	}
	if err := store.DeleteMedicine(ctx, med.ID, u.ID); err != storage.ErrNotFound {
		t.Errorf("repeat delete = %v, want ErrNotFound", err)
	}
}
