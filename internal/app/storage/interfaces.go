package storage

import (
	"context"
	"errors"

	"github.com/careconnect/backend/internal/app/domain/medicine"
	"github.com/careconnect/backend/internal/app/domain/prescription"
	"github.com/careconnect/backend/internal/app/domain/user"
)

// ErrNotFound is returned when no record matches the lookup. Owner scoping is
// folded into every lookup, so "absent" and "not yours" are indistinguishable.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateEmail is returned when a user email is already registered.
var ErrDuplicateEmail = errors.New("email already registered")

// UserStore persists account records.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
}

// MedicineStore persists medicine aggregates. All single-record operations
// are scoped by (id, userID).
type MedicineStore interface {
	CreateMedicine(ctx context.Context, med medicine.Medicine) (medicine.Medicine, error)
	UpdateMedicine(ctx context.Context, med medicine.Medicine) (medicine.Medicine, error)
	GetMedicine(ctx context.Context, id, userID string) (medicine.Medicine, error)
	// ListMedicines returns the user's medicines newest-created first.
	// When activeOnly is set, soft-deleted medicines are excluded.
	ListMedicines(ctx context.Context, userID string, activeOnly bool) ([]medicine.Medicine, error)
	DeleteMedicine(ctx context.Context, id, userID string) error
}

// PrescriptionStore persists prescription metadata records.
type PrescriptionStore interface {
	CreatePrescription(ctx context.Context, p prescription.Prescription) (prescription.Prescription, error)
	GetPrescription(ctx context.Context, id, userID string) (prescription.Prescription, error)
	// ListPrescriptions returns the user's prescriptions newest-uploaded first.
	ListPrescriptions(ctx context.Context, userID string) ([]prescription.Prescription, error)
	DeletePrescription(ctx context.Context, id, userID string) error
}
