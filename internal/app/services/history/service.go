// Package history computes read-only adherence views from the medicine
// store. It holds no state of its own and never mutates a record.
package history

import (
	"context"
	stderrors "errors"
	"sort"
	"time"

	"github.com/careconnect/backend/internal/app/storage"
	"github.com/careconnect/backend/internal/errors"
	"github.com/careconnect/backend/internal/logging"
)

// Service projects adherence summaries and per-medicine dose history.
type Service struct {
	store storage.MedicineStore
	log   *logging.Logger
}

// New constructs a history service.
func New(store storage.MedicineStore, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("history")
	}
	return &Service{store: store, log: log}
}

// Entry is the adherence summary for one medicine.
type Entry struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Dosage     string     `json:"dosage"`
	TakenDoses int        `json:"takenDoses"`
	TotalDoses int        `json:"totalDoses"`
	LastTaken  *time.Time `json:"lastTaken,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// MedicineRef identifies the medicine a detail view belongs to.
type MedicineRef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Dosage string `json:"dosage"`
}

// TakenSlot is one taken dose in the detail view.
type TakenSlot struct {
	Time    string    `json:"time"`
	TakenAt time.Time `json:"takenAt"`
}

// Detail is the ordered list of taken doses for one medicine.
type Detail struct {
	Medicine MedicineRef `json:"medicine"`
	History  []TakenSlot `json:"history"`
}

// Summary computes per-medicine adherence for every medicine the caller
// owns, inactive ones included, newest-created first.
func (s *Service) Summary(ctx context.Context, userID string) ([]Entry, error) {
	meds, err := s.store.ListMedicines(ctx, userID, false)
	if err != nil {
		return nil, errors.Internal("Server error", err)
	}

	entries := make([]Entry, 0, len(meds))
	for _, med := range meds {
		entry := Entry{
			ID:         med.ID,
			Name:       med.Name,
			Dosage:     med.Dosage,
			TotalDoses: len(med.Times),
			CreatedAt:  med.CreatedAt,
		}
		for _, slot := range med.Times {
			if !slot.Taken {
				continue
			}
			entry.TakenDoses++
			if slot.TakenAt != nil && (entry.LastTaken == nil || slot.TakenAt.After(*entry.LastTaken)) {
				at := *slot.TakenAt
				entry.LastTaken = &at
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// DoseHistory returns the taken slots of one medicine, most recent first.
// Untaken slots are excluded entirely.
func (s *Service) DoseHistory(ctx context.Context, userID, medicineID string) (Detail, error) {
	med, err := s.store.GetMedicine(ctx, medicineID, userID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return Detail{}, errors.NotFound("Medicine")
		}
		return Detail{}, errors.Internal("Server error", err)
	}

	taken := make([]TakenSlot, 0)
	for _, slot := range med.Times {
		if !slot.Taken || slot.TakenAt == nil {
			continue
		}
		taken = append(taken, TakenSlot{Time: slot.Time, TakenAt: *slot.TakenAt})
	}
	sort.SliceStable(taken, func(i, j int) bool {
		return taken[i].TakenAt.After(taken[j].TakenAt)
	})

	return Detail{
		Medicine: MedicineRef{ID: med.ID, Name: med.Name, Dosage: med.Dosage},
		History:  taken,
	}, nil
}
