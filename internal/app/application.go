// Package app wires the domain services to their stores.
package app

import (
	"time"

	"github.com/careconnect/backend/internal/app/services/history"
	"github.com/careconnect/backend/internal/app/services/medicines"
	"github.com/careconnect/backend/internal/app/services/notifications"
	"github.com/careconnect/backend/internal/app/services/prescriptions"
	"github.com/careconnect/backend/internal/app/services/users"
	"github.com/careconnect/backend/internal/app/storage"
	"github.com/careconnect/backend/internal/app/storage/memory"
	"github.com/careconnect/backend/internal/assets"
	"github.com/careconnect/backend/internal/logging"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users         storage.UserStore
	Medicines     storage.MedicineStore
	Prescriptions storage.PrescriptionStore
}

// Deps carries the non-storage collaborators. Assets defaults to the
// in-memory store; a nil Pusher disables push delivery.
type Deps struct {
	Assets    assets.Store
	Pusher    notifications.Pusher
	JWTSecret []byte
	TokenTTL  time.Duration
}

// Application ties the domain services together.
type Application struct {
	log *logging.Logger

	Users         *users.Service
	Medicines     *medicines.Service
	History       *history.Service
	Prescriptions *prescriptions.Service
	Notifications *notifications.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, deps Deps, log *logging.Logger) (*Application, error) {
	if log == nil {
		log = logging.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Medicines == nil {
		stores.Medicines = mem
	}
	if stores.Prescriptions == nil {
		stores.Prescriptions = mem
	}

	if deps.Assets == nil {
		deps.Assets = assets.NewMemory()
	}
	if deps.TokenTTL <= 0 {
		deps.TokenTTL = 24 * time.Hour
	}

	userService := users.New(stores.Users, deps.JWTSecret, deps.TokenTTL, log)
	medicineService := medicines.New(stores.Medicines, log)
	historyService := history.New(stores.Medicines, log)
	prescriptionService := prescriptions.New(stores.Prescriptions, deps.Assets, log)
	notificationService := notifications.New(userService, stores.Medicines, deps.Pusher, log)

	return &Application{
		log:           log,
		Users:         userService,
		Medicines:     medicineService,
		History:       historyService,
		Prescriptions: prescriptionService,
		Notifications: notificationService,
	}, nil
}
