// Package medicines owns the authoritative state of each medicine's schedule
// and per-slot taken status.
package medicines

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/careconnect/backend/internal/app/domain/medicine"
	"github.com/careconnect/backend/internal/app/storage"
	"github.com/careconnect/backend/internal/errors"
	"github.com/careconnect/backend/internal/logging"
)

// Service manages medicine records and dose-taken transitions.
type Service struct {
	store storage.MedicineStore
	log   *logging.Logger
	now   func() time.Time
}

// New constructs a medicines service.
func New(store storage.MedicineStore, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("medicines")
	}
	return &Service{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// CreateInput carries the fields accepted when registering a medicine. Slot
// taken state is ignored on create; every slot starts untaken.
type CreateInput struct {
	Name      string              `json:"name"`
	Dosage    string              `json:"dosage"`
	Frequency string              `json:"frequency"`
	Times     []medicine.DoseSlot `json:"times"`
	StartDate string              `json:"startDate"`
	EndDate   string              `json:"endDate"`
	Notes     string              `json:"notes"`
}

// UpdateInput carries a partial update. Nil fields are left untouched; a
// provided Times slice replaces the whole schedule.
type UpdateInput struct {
	Name      *string              `json:"name"`
	Dosage    *string              `json:"dosage"`
	Frequency *string              `json:"frequency"`
	Times     *[]medicine.DoseSlot `json:"times"`
	StartDate *string              `json:"startDate"`
	EndDate   *string              `json:"endDate"`
	Notes     *string              `json:"notes"`
	Active    *bool                `json:"active"`
}

// Create validates the input and stores a new medicine with every slot
// untaken and active=true.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (medicine.Medicine, error) {
	name := strings.TrimSpace(in.Name)
	dosage := strings.TrimSpace(in.Dosage)
	if name == "" {
		return medicine.Medicine{}, errors.Validation("name is required")
	}
	if dosage == "" {
		return medicine.Medicine{}, errors.Validation("dosage is required")
	}
	freq := medicine.Frequency(strings.TrimSpace(in.Frequency))
	if !freq.Valid() {
		return medicine.Medicine{}, errors.Validation("frequency must be one of daily, weekly, monthly")
	}
	if len(in.Times) == 0 {
		return medicine.Medicine{}, errors.Validation("times must contain at least one dose slot")
	}
	startDate, err := parseDate(in.StartDate)
	if err != nil {
		return medicine.Medicine{}, errors.Validation("startDate must be a valid date")
	}
	var endDate *time.Time
	if strings.TrimSpace(in.EndDate) != "" {
		parsed, err := parseDate(in.EndDate)
		if err != nil {
			return medicine.Medicine{}, errors.Validation("endDate must be a valid date")
		}
		endDate = &parsed
	}

	slots := make([]medicine.DoseSlot, len(in.Times))
	for i, slot := range in.Times {
		slots[i] = medicine.DoseSlot{Time: slot.Time}
	}

	med := medicine.Medicine{
		UserID:    userID,
		Name:      name,
		Dosage:    dosage,
		Frequency: freq,
		Times:     slots,
		StartDate: startDate,
		EndDate:   endDate,
		Notes:     strings.TrimSpace(in.Notes),
		Active:    true,
	}
	med, err = s.store.CreateMedicine(ctx, med)
	if err != nil {
		return medicine.Medicine{}, errors.Internal("Server error", err)
	}
	s.log.WithField("medicine_id", med.ID).
		WithField("user_id", userID).
		WithField("slots", len(med.Times)).
		Info("medicine created")
	return med, nil
}

// List returns the caller's active medicines, newest-created first.
// Soft-deleted medicines are invisible here; they remain resolvable by ID.
func (s *Service) List(ctx context.Context, userID string) ([]medicine.Medicine, error) {
	meds, err := s.store.ListMedicines(ctx, userID, true)
	if err != nil {
		return nil, errors.Internal("Server error", err)
	}
	return meds, nil
}

// Get resolves one medicine scoped to the caller, regardless of active flag.
func (s *Service) Get(ctx context.Context, userID, id string) (medicine.Medicine, error) {
	med, err := s.store.GetMedicine(ctx, id, userID)
	if err != nil {
		return medicine.Medicine{}, mapStoreErr(err)
	}
	return med, nil
}

// Update merges the provided fields onto the existing record. Field
// replacement is shallow: a supplied Times slice replaces the sequence
// wholesale.
func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (medicine.Medicine, error) {
	med, err := s.store.GetMedicine(ctx, id, userID)
	if err != nil {
		return medicine.Medicine{}, mapStoreErr(err)
	}

	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		if trimmed == "" {
			return medicine.Medicine{}, errors.Validation("name cannot be empty")
		}
		med.Name = trimmed
	}
	if in.Dosage != nil {
		trimmed := strings.TrimSpace(*in.Dosage)
		if trimmed == "" {
			return medicine.Medicine{}, errors.Validation("dosage cannot be empty")
		}
		med.Dosage = trimmed
	}
	if in.Frequency != nil {
		freq := medicine.Frequency(strings.TrimSpace(*in.Frequency))
		if !freq.Valid() {
			return medicine.Medicine{}, errors.Validation("frequency must be one of daily, weekly, monthly")
		}
		med.Frequency = freq
	}
	if in.Times != nil {
		med.Times = *in.Times
	}
	if in.StartDate != nil {
		parsed, err := parseDate(*in.StartDate)
		if err != nil {
			return medicine.Medicine{}, errors.Validation("startDate must be a valid date")
		}
		med.StartDate = parsed
	}
	if in.EndDate != nil {
		if strings.TrimSpace(*in.EndDate) == "" {
			med.EndDate = nil
		} else {
			parsed, err := parseDate(*in.EndDate)
			if err != nil {
				return medicine.Medicine{}, errors.Validation("endDate must be a valid date")
			}
			med.EndDate = &parsed
		}
	}
	if in.Notes != nil {
		med.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.Active != nil {
		med.Active = *in.Active
	}

	med, err = s.store.UpdateMedicine(ctx, med)
	if err != nil {
		return medicine.Medicine{}, mapStoreErr(err)
	}
	s.log.WithField("medicine_id", med.ID).WithField("user_id", userID).Info("medicine updated")
	return med, nil
}

// MarkTaken sets times[index].taken = true with the current timestamp.
// Repeated calls overwrite takenAt; there is no undo transition.
func (s *Service) MarkTaken(ctx context.Context, userID, id string, index int) (medicine.Medicine, error) {
	med, err := s.store.GetMedicine(ctx, id, userID)
	if err != nil {
		return medicine.Medicine{}, mapStoreErr(err)
	}

	if index < 0 || index >= len(med.Times) {
		return medicine.Medicine{}, errors.InvalidIndex(index, len(med.Times))
	}

	takenAt := s.now()
	med.Times[index].Taken = true
	med.Times[index].TakenAt = &takenAt

	med, err = s.store.UpdateMedicine(ctx, med)
	if err != nil {
		return medicine.Medicine{}, mapStoreErr(err)
	}
	s.log.WithField("medicine_id", med.ID).
		WithField("user_id", userID).
		WithField("slot", index).
		Info("dose marked taken")
	return med, nil
}

// Delete removes the medicine outright. Dose slots are embedded, so there is
// no dependent cleanup.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteMedicine(ctx, id, userID); err != nil {
		return mapStoreErr(err)
	}
	s.log.WithField("medicine_id", id).WithField("user_id", userID).Info("medicine deleted")
	return nil
}

func mapStoreErr(err error) error {
	if stderrors.Is(err, storage.ErrNotFound) {
		return errors.NotFound("Medicine")
	}
	return errors.Internal("Server error", err)
}

// parseDate accepts RFC3339 timestamps or bare YYYY-MM-DD dates.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
