// Package notifications stores push subscriptions and sends best-effort
// reminders. Delivery has no retry and no guarantee.
package notifications

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/careconnect/backend/internal/app/domain/user"
	"github.com/careconnect/backend/internal/app/services/users"
	"github.com/careconnect/backend/internal/app/storage"
	"github.com/careconnect/backend/internal/errors"
	"github.com/careconnect/backend/internal/logging"
)

// Pusher delivers an opaque payload to one subscription.
type Pusher interface {
	Send(ctx context.Context, sub user.Subscription, payload []byte) error
}

// Payload is the JSON document delivered to the browser.
type Payload struct {
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Icon  string                 `json:"icon,omitempty"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

const notificationIcon = "/icon-192x192.png"

// Service sends medicine reminders to the caller's stored subscription.
type Service struct {
	users     *users.Service
	medicines storage.MedicineStore
	pusher    Pusher
	log       *logging.Logger
}

// New constructs a notifications service. A nil pusher leaves the service
// running; every send then fails with a delivery error.
func New(userSvc *users.Service, medicines storage.MedicineStore, pusher Pusher, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("notifications")
	}
	return &Service{users: userSvc, medicines: medicines, pusher: pusher, log: log}
}

// Subscribe stores the caller's push-subscription descriptor.
func (s *Service) Subscribe(ctx context.Context, userID string, sub *user.Subscription) error {
	return s.users.SaveSubscription(ctx, userID, sub)
}

// Status reports whether the caller has a stored subscription. Only the
// endpoint is echoed back; the keys stay private.
func (s *Service) Status(ctx context.Context, userID string) (bool, string, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return false, "", err
	}
	if u.Subscription == nil {
		return false, "", nil
	}
	return true, u.Subscription.Endpoint, nil
}

// SendTest delivers a fixed test payload to the caller's subscription.
func (s *Service) SendTest(ctx context.Context, userID string) error {
	payload := Payload{
		Title: "CareConnect Test",
		Body:  "This is a test notification from CareConnect",
		Icon:  notificationIcon,
	}
	return s.send(ctx, userID, payload)
}

// Remind sends a dose reminder for one medicine. The medicine lookup is
// owner-scoped; a missing subscription is a 400, a delivery failure a 500.
func (s *Service) Remind(ctx context.Context, userID, medicineID string) error {
	med, err := s.medicines.GetMedicine(ctx, medicineID, userID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.NotFound("Medicine")
		}
		return errors.Internal("Server error", err)
	}

	payload := Payload{
		Title: "Medicine Reminder",
		Body:  fmt.Sprintf("Time to take %s (%s)", med.Name, med.Dosage),
		Icon:  notificationIcon,
		Data: map[string]interface{}{
			"medicineId": med.ID,
			"type":       "medicine_reminder",
		},
	}
	if err := s.send(ctx, userID, payload); err != nil {
		return err
	}
	s.log.WithField("user_id", userID).WithField("medicine_id", med.ID).Info("reminder sent")
	return nil
}

func (s *Service) send(ctx context.Context, userID string, payload Payload) error {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u.Subscription == nil {
		return errors.NoSubscription()
	}
	if s.pusher == nil {
		return errors.DeliveryFailed(stderrors.New("push notifications not configured"))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Internal("Server error", err)
	}
	if err := s.pusher.Send(ctx, *u.Subscription, body); err != nil {
		s.log.WithContext(ctx).WithError(err).Warn("push delivery failed")
		return errors.DeliveryFailed(err)
	}
	return nil
}
