// Package memory provides a thread-safe in-memory implementation of the
// storage interfaces, intended for tests and prototyping.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careconnect/backend/internal/app/domain/medicine"
	"github.com/careconnect/backend/internal/app/domain/prescription"
	"github.com/careconnect/backend/internal/app/domain/user"
	"github.com/careconnect/backend/internal/app/storage"
)

// Store is an in-memory persistence layer implementing the storage
// interfaces. It deliberately keeps the implementation simple.
type Store struct {
	mu            sync.RWMutex
	nextSeq       int64
	users         map[string]user.User
	medicines     map[string]medicine.Medicine
	prescriptions map[string]prescription.Prescription
	seq           map[string]int64
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.MedicineStore = (*Store)(nil)
var _ storage.PrescriptionStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:         make(map[string]user.User),
		medicines:     make(map[string]medicine.Medicine),
		prescriptions: make(map[string]prescription.Prescription),
		seq:           make(map[string]int64),
	}
}

func (s *Store) nextSeqLocked(id string) {
	s.nextSeq++
	s.seq[id] = s.nextSeq
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range s.users {
		if existing.Email == email {
			return user.User{}, storage.ErrDuplicateEmail
		}
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = email
	u.CreatedAt = time.Now().UTC()
	u.Subscription = cloneSubscription(u.Subscription)

	s.users[u.ID] = u
	return cloneUser(u), nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}

	u.Email = original.Email
	u.CreatedAt = original.CreatedAt
	u.Subscription = cloneSubscription(u.Subscription)

	s.users[u.ID] = u
	return cloneUser(u), nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return user.User{}, storage.ErrNotFound
}

// MedicineStore implementation ------------------------------------------------

func (s *Store) CreateMedicine(_ context.Context, med medicine.Medicine) (medicine.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if med.ID == "" {
		med.ID = uuid.NewString()
	}
	med.CreatedAt = time.Now().UTC()
	med.Times = cloneSlots(med.Times)

	s.medicines[med.ID] = med
	s.nextSeqLocked(med.ID)
	return cloneMedicine(med), nil
}

func (s *Store) UpdateMedicine(_ context.Context, med medicine.Medicine) (medicine.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.medicines[med.ID]
	if !ok || original.UserID != med.UserID {
		return medicine.Medicine{}, storage.ErrNotFound
	}

	med.CreatedAt = original.CreatedAt
	med.Times = cloneSlots(med.Times)

	s.medicines[med.ID] = med
	return cloneMedicine(med), nil
}

func (s *Store) GetMedicine(_ context.Context, id, userID string) (medicine.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	med, ok := s.medicines[id]
	if !ok || med.UserID != userID {
		return medicine.Medicine{}, storage.ErrNotFound
	}
	return cloneMedicine(med), nil
}

func (s *Store) ListMedicines(_ context.Context, userID string, activeOnly bool) ([]medicine.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]medicine.Medicine, 0)
	for _, med := range s.medicines {
		if med.UserID != userID {
			continue
		}
		if activeOnly && !med.Active {
			continue
		}
		result = append(result, cloneMedicine(med))
	}
	sortNewestFirst(result, s.seq, func(m medicine.Medicine) (time.Time, string) { return m.CreatedAt, m.ID })
	return result, nil
}

func (s *Store) DeleteMedicine(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	med, ok := s.medicines[id]
	if !ok || med.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.medicines, id)
	delete(s.seq, id)
	return nil
}

// PrescriptionStore implementation --------------------------------------------

func (s *Store) CreatePrescription(_ context.Context, p prescription.Prescription) (prescription.Prescription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.UploadedAt = time.Now().UTC()

	s.prescriptions[p.ID] = p
	s.nextSeqLocked(p.ID)
	return p, nil
}

func (s *Store) GetPrescription(_ context.Context, id, userID string) (prescription.Prescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prescriptions[id]
	if !ok || p.UserID != userID {
		return prescription.Prescription{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListPrescriptions(_ context.Context, userID string) ([]prescription.Prescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]prescription.Prescription, 0)
	for _, p := range s.prescriptions {
		if p.UserID == userID {
			result = append(result, p)
		}
	}
	sortNewestFirst(result, s.seq, func(p prescription.Prescription) (time.Time, string) { return p.UploadedAt, p.ID })
	return result, nil
}

func (s *Store) DeletePrescription(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.prescriptions[id]
	if !ok || p.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.prescriptions, id)
	delete(s.seq, id)
	return nil
}

// Helpers ---------------------------------------------------------------------

// sortNewestFirst orders by creation time descending, falling back to
// insertion order for records created within the same clock tick.
func sortNewestFirst[T any](items []T, seq map[string]int64, key func(T) (time.Time, string)) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if ti.Equal(tj) {
			return seq[idi] > seq[idj]
		}
		return ti.After(tj)
	})
}

func cloneSlots(slots []medicine.DoseSlot) []medicine.DoseSlot {
	if slots == nil {
		return nil
	}
	out := make([]medicine.DoseSlot, len(slots))
	for i, slot := range slots {
		if slot.TakenAt != nil {
			at := *slot.TakenAt
			slot.TakenAt = &at
		}
		out[i] = slot
	}
	return out
}

func cloneMedicine(med medicine.Medicine) medicine.Medicine {
	med.Times = cloneSlots(med.Times)
	if med.EndDate != nil {
		end := *med.EndDate
		med.EndDate = &end
	}
	return med
}

func cloneSubscription(sub *user.Subscription) *user.Subscription {
	if sub == nil {
		return nil
	}
	copied := *sub
	return &copied
}

func cloneUser(u user.User) user.User {
	u.Subscription = cloneSubscription(u.Subscription)
	return u
}
