package users

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/careconnect/backend/internal/app/domain/user"
	"github.com/careconnect/backend/internal/app/storage/memory"
)

func newTestService() *Service {
	return New(memory.New(), []byte("test-secret"), time.Hour, nil)
}

func TestRegister(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	u, token, err := svc.Register(ctx, "  Jane@Example.COM ", "password123", "Jane")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	if u.Email != "jane@example.com" {
		t.Errorf("email = %q, want normalized", u.Email)
	}
	if u.PasswordHash == "password123" || u.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}
	if token == "" {
		t.Error("no token issued")
	}
	if u.ID == "" || u.CreatedAt.IsZero() {
		t.Errorf("identity not assigned: %+v", u)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "not-an-email", "password123", ""); err == nil {
		t.Error("invalid email should be rejected")
	}
	if _, _, err := svc.Register(ctx, "a@b.com", "short", ""); err == nil {
		t.Error("short password should be rejected")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "jane@example.com", "password123", "Jane"); err != nil {
		t.Fatalf("first Register() error: %v", err)
	}
	if _, _, err := svc.Register(ctx, "JANE@example.com", "password456", "Other"); err == nil {
		t.Error("duplicate email should be rejected")
	}
}

func TestLogin(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "jane@example.com", "password123", "Jane"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	u, token, err := svc.Login(ctx, "jane@example.com", "password123")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if token == "" || u.Email != "jane@example.com" {
		t.Errorf("login result: token=%q user=%+v", token, u)
	}

	// Unknown email and wrong password fail identically.
	_, _, errUnknown := svc.Login(ctx, "nobody@example.com", "password123")
	_, _, errWrong := svc.Login(ctx, "jane@example.com", "wrong-password")
	if errUnknown == nil || errWrong == nil {
		t.Fatal("bad credentials should fail")
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Errorf("credential errors differ: %q vs %q", errUnknown, errWrong)
	}
}

func TestPasswordHashNeverSerialized(t *testing.T) {
	svc := newTestService()

	u, _, err := svc.Register(context.Background(), "jane@example.com", "password123", "Jane")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal user: %v", err)
	}
	if strings.Contains(string(data), u.PasswordHash) {
		t.Error("password hash leaked into JSON")
	}
}

func TestSaveSubscription(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	u, _, err := svc.Register(ctx, "jane@example.com", "password123", "Jane")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	sub := &user.Subscription{
		Endpoint: "https://push.example.com/abc",
		Keys:     user.SubscriptionKeys{P256dh: "p", Auth: "a"},
	}
	if err := svc.SaveSubscription(ctx, u.ID, sub); err != nil {
		t.Fatalf("SaveSubscription() error: %v", err)
	}

	got, err := svc.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Subscription == nil || got.Subscription.Endpoint != sub.Endpoint {
		t.Errorf("subscription = %+v", got.Subscription)
	}

	// Clearing.
	if err := svc.SaveSubscription(ctx, u.ID, nil); err != nil {
		t.Fatalf("clear subscription: %v", err)
	}
	got, _ = svc.Get(ctx, u.ID)
	if got.Subscription != nil {
		t.Error("subscription should be cleared")
	}
}

func TestSaveSubscriptionPartialRejected(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	u, _, err := svc.Register(ctx, "jane@example.com", "password123", "Jane")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	partial := &user.Subscription{Endpoint: "https://push.example.com/abc"}
	if err := svc.SaveSubscription(ctx, u.ID, partial); err == nil {
		t.Error("partial subscription should be rejected")
	}
}
