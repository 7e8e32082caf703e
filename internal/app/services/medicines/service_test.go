package medicines

import (
	"context"
	"testing"
	"time"

	"github.com/careconnect/backend/internal/app/domain/medicine"
	"github.com/careconnect/backend/internal/app/storage/memory"
)

func newTestService() *Service {
	return New(memory.New(), nil)
}

func validInput() CreateInput {
	return CreateInput{
		Name:      "Aspirin",
		Dosage:    "100mg",
		Frequency: "daily",
		Times:     []medicine.DoseSlot{{Time: "08:00"}, {Time: "20:00"}},
		StartDate: "2026-01-01",
	}
}

func TestCreateDefaults(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	in := validInput()
	// Incoming taken state must be discarded.
	now := time.Now()
	in.Times[0].Taken = true
	in.Times[0].TakenAt = &now

	med, err := svc.Create(ctx, "user-1", in)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if med.ID == "" {
		t.Error("ID not generated")
	}
	if !med.Active {
		t.Error("new medicine should be active")
	}
	if med.CreatedAt.IsZero() {
		t.Error("createdAt not set")
	}
	for i, slot := range med.Times {
		if slot.Taken || slot.TakenAt != nil {
			t.Errorf("slot %d should start untaken", i)
		}
	}
	if med.Times[0].Time != "08:00" || med.Times[1].Time != "20:00" {
		t.Errorf("slot order changed: %+v", med.Times)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"empty name", func(in *CreateInput) { in.Name = "   " }},
		{"empty dosage", func(in *CreateInput) { in.Dosage = "" }},
		{"bad frequency", func(in *CreateInput) { in.Frequency = "hourly" }},
		{"no times", func(in *CreateInput) { in.Times = nil }},
		{"bad start date", func(in *CreateInput) { in.StartDate = "not-a-date" }},
		{"bad end date", func(in *CreateInput) { in.EndDate = "later" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			if _, err := svc.Create(ctx, "user-1", in); err == nil {
				t.Error("Create() should have failed")
			}
		})
	}
}

func TestMarkTakenOverwrites(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	med, err := svc.Create(ctx, "user-1", validInput())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	first := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return first }

	med, err = svc.MarkTaken(ctx, "user-1", med.ID, 0)
	if err != nil {
		t.Fatalf("MarkTaken() error: %v", err)
	}
	if !med.Times[0].Taken || med.Times[0].TakenAt == nil || !med.Times[0].TakenAt.Equal(first) {
		t.Fatalf("slot 0 = %+v, want taken at %v", med.Times[0], first)
	}
	if med.Times[1].Taken {
		t.Error("slot 1 should be untouched")
	}

	// Marking again overwrites the timestamp.
	second := first.Add(2 * time.Hour)
	svc.now = func() time.Time { return second }

	med, err = svc.MarkTaken(ctx, "user-1", med.ID, 0)
	if err != nil {
		t.Fatalf("MarkTaken() again error: %v", err)
	}
	if !med.Times[0].TakenAt.Equal(second) {
		t.Errorf("takenAt = %v, want %v", med.Times[0].TakenAt, second)
	}
}

func TestMarkTakenInvalidIndexLeavesRecordUnchanged(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	med, err := svc.Create(ctx, "user-1", validInput())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	for _, index := range []int{-1, 2, 100} {
		if _, err := svc.MarkTaken(ctx, "user-1", med.ID, index); err == nil {
			t.Errorf("MarkTaken(%d) should have failed", index)
		}
	}

	got, err := svc.Get(ctx, "user-1", med.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	for i, slot := range got.Times {
		if slot.Taken || slot.TakenAt != nil {
			t.Errorf("slot %d changed after failed mark", i)
		}
	}
}

func TestUpdatePartial(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	in := validInput()
	in.EndDate = "2026-06-01"
	med, err := svc.Create(ctx, "user-1", in)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	name := "Ibuprofen"
	empty := ""
	med, err = svc.Update(ctx, "user-1", med.ID, UpdateInput{Name: &name, EndDate: &empty})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	if med.Name != "Ibuprofen" {
		t.Errorf("name = %q", med.Name)
	}
	if med.Dosage != "100mg" {
		t.Errorf("dosage = %q, should be untouched", med.Dosage)
	}
	if med.EndDate != nil {
		t.Error("empty endDate should clear the field")
	}
}

func TestSoftDeleteHidesFromListOnly(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	med, err := svc.Create(ctx, "user-1", validInput())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	inactive := false
	if _, err := svc.Update(ctx, "user-1", med.ID, UpdateInput{Active: &inactive}); err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	list, err := svc.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("List() returned %d records, soft-deleted should be hidden", len(list))
	}

	// Direct fetch still resolves.
	if _, err := svc.Get(ctx, "user-1", med.ID); err != nil {
		t.Errorf("Get() after soft delete: %v", err)
	}
}

func TestHardDelete(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	med, err := svc.Create(ctx, "user-1", validInput())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if err := svc.Delete(ctx, "user-1", med.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	if _, err := svc.Get(ctx, "user-1", med.ID); err == nil {
		t.Error("Get() after hard delete should fail")
	}
	if _, err := svc.MarkTaken(ctx, "user-1", med.ID, 0); err == nil {
		t.Error("MarkTaken() after hard delete should fail")
	}
	if err := svc.Delete(ctx, "user-1", med.ID); err == nil {
		t.Error("second Delete() should fail")
	}
}

func TestOwnershipScoping(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	med, err := svc.Create(ctx, "user-a", validInput())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if _, err := svc.Get(ctx, "user-b", med.ID); err == nil {
		t.Error("Get() across owners should fail")
	}
	if _, err := svc.MarkTaken(ctx, "user-b", med.ID, 0); err == nil {
		t.Error("MarkTaken() across owners should fail")
	}
	if err := svc.Delete(ctx, "user-b", med.ID); err == nil {
		t.Error("Delete() across owners should fail")
	}

	// The record is intact for its owner.
	if _, err := svc.Get(ctx, "user-a", med.ID); err != nil {
		t.Errorf("Get() by owner: %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	names := []string{"First", "Second", "Third"}
	for _, name := range names {
		in := validInput()
		in.Name = name
		if _, err := svc.Create(ctx, "user-1", in); err != nil {
			t.Fatalf("Create(%s) error: %v", name, err)
		}
	}

	list, err := svc.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("List() returned %d records", len(list))
	}
	if list[0].Name != "Third" || list[2].Name != "First" {
		t.Errorf("order = [%s %s %s], want newest first", list[0].Name, list[1].Name, list[2].Name)
	}
}
