// Package push delivers web-push messages using VAPID credentials.
package push

import (
	"context"
	"fmt"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/careconnect/backend/internal/app/domain/user"
	"github.com/careconnect/backend/internal/logging"
)

// Config holds the VAPID key pair and the contact address advertised to
// push services.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Contact         string
}

// Configured reports whether both VAPID keys are present.
func (c Config) Configured() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// WebPush sends notifications to browser push endpoints. Delivery is
// best-effort; there is no retry.
type WebPush struct {
	cfg Config
	log *logging.Logger
}

// New returns a notifier, or an error when the VAPID keys are missing.
func New(cfg Config, log *logging.Logger) (*WebPush, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("webpush: VAPID keys not configured")
	}
	if log == nil {
		log = logging.NewDefault("push")
	}
	return &WebPush{cfg: cfg, log: log}, nil
}

// Send delivers one payload to the subscription endpoint.
func (w *WebPush) Send(ctx context.Context, sub user.Subscription, payload []byte) error {
	target := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, target, &webpush.Options{
		Subscriber:      w.cfg.Contact,
		VAPIDPublicKey:  w.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: w.cfg.VAPIDPrivateKey,
		TTL:             60,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("push endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
