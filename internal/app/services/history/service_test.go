package history

import (
	"context"
	"testing"
	"time"

	"github.com/careconnect/backend/internal/app/domain/medicine"
	"github.com/careconnect/backend/internal/app/storage/memory"
)

func seedMedicine(t *testing.T, store *memory.Store, userID string, med medicine.Medicine) medicine.Medicine {
	t.Helper()
	med.UserID = userID
	created, err := store.CreateMedicine(context.Background(), med)
	if err != nil {
		t.Fatalf("seed medicine: %v", err)
	}
	return created
}

func TestSummary(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	t2 := t1.Add(12 * time.Hour)

	seedMedicine(t, store, "user-1", medicine.Medicine{
		Name:      "Aspirin",
		Dosage:    "100mg",
		Frequency: medicine.FrequencyDaily,
		Active:    true,
		Times: []medicine.DoseSlot{
			{Time: "08:00", Taken: true, TakenAt: &t1},
			{Time: "14:00"},
			{Time: "20:00", Taken: true, TakenAt: &t2},
		},
	})

	entries, err := svc.Summary(ctx, "user-1")
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}

	e := entries[0]
	if e.TakenDoses != 2 {
		t.Errorf("takenDoses = %d, want 2", e.TakenDoses)
	}
	if e.TotalDoses != 3 {
		t.Errorf("totalDoses = %d, want 3", e.TotalDoses)
	}
	if e.LastTaken == nil || !e.LastTaken.Equal(t2) {
		t.Errorf("lastTaken = %v, want %v", e.LastTaken, t2)
	}
}

func TestSummaryNoTakenDoses(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	seedMedicine(t, store, "user-1", medicine.Medicine{
		Name:      "Vitamin D",
		Dosage:    "1000IU",
		Frequency: medicine.FrequencyDaily,
		Active:    true,
		Times:     []medicine.DoseSlot{{Time: "08:00"}},
	})

	entries, err := svc.Summary(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	if entries[0].LastTaken != nil {
		t.Errorf("lastTaken = %v, want nil", entries[0].LastTaken)
	}
	if entries[0].TakenDoses != 0 {
		t.Errorf("takenDoses = %d, want 0", entries[0].TakenDoses)
	}
}

func TestSummaryIncludesInactive(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	seedMedicine(t, store, "user-1", medicine.Medicine{
		Name:      "Old Medicine",
		Dosage:    "5mg",
		Frequency: medicine.FrequencyDaily,
		Active:    false,
		Times:     []medicine.DoseSlot{{Time: "08:00"}},
	})

	entries, err := svc.Summary(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, inactive medicines must be included", len(entries))
	}
}

func TestDoseHistoryOrdering(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	t1 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	t2 := t1.Add(6 * time.Hour)
	t3 := t1.Add(12 * time.Hour)

	med := seedMedicine(t, store, "user-1", medicine.Medicine{
		Name:      "Aspirin",
		Dosage:    "100mg",
		Frequency: medicine.FrequencyDaily,
		Active:    true,
		Times: []medicine.DoseSlot{
			{Time: "08:00", Taken: true, TakenAt: &t1},
			{Time: "14:00", Taken: true, TakenAt: &t3},
			{Time: "17:00"},
			{Time: "20:00", Taken: true, TakenAt: &t2},
		},
	})

	detail, err := svc.DoseHistory(context.Background(), "user-1", med.ID)
	if err != nil {
		t.Fatalf("DoseHistory() error: %v", err)
	}

	if detail.Medicine.ID != med.ID || detail.Medicine.Name != "Aspirin" {
		t.Errorf("medicine ref = %+v", detail.Medicine)
	}
	if len(detail.History) != 3 {
		t.Fatalf("got %d taken slots, want 3", len(detail.History))
	}
	want := []time.Time{t3, t2, t1}
	for i, slot := range detail.History {
		if !slot.TakenAt.Equal(want[i]) {
			t.Errorf("history[%d].takenAt = %v, want %v", i, slot.TakenAt, want[i])
		}
	}
}

func TestDoseHistoryOwnerScoped(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	med := seedMedicine(t, store, "user-a", medicine.Medicine{
		Name:      "Aspirin",
		Dosage:    "100mg",
		Frequency: medicine.FrequencyDaily,
		Active:    true,
		Times:     []medicine.DoseSlot{{Time: "08:00"}},
	})

	if _, err := svc.DoseHistory(context.Background(), "user-b", med.ID); err == nil {
		t.Error("DoseHistory() across owners should fail")
	}
}
