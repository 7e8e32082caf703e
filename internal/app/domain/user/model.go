package user

import "time"

// SubscriptionKeys holds the opaque encryption keys of a push subscription.
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is a browser push-subscription descriptor. It is stored whole
// or not at all; a partial descriptor is rejected at the boundary.
type Subscription struct {
	Endpoint string           `json:"endpoint"`
	Keys     SubscriptionKeys `json:"keys"`
}

// User represents an account. Email is stored lowercased and trimmed and is
// unique across the store. The password hash is never serialized.
type User struct {
	ID           string        `json:"id"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Name         string        `json:"name,omitempty"`
	Subscription *Subscription `json:"subscription,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}
