package domain

import (
	"context"
	"time"
)

// MaxOTPAttempts is how many wrong codes a challenge tolerates before it is locked
const MaxOTPAttempts = 5

// OTPChallenge is a pending one-time email code. Only the bcrypt hash of the code is stored.
type OTPChallenge struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Email     string    `bson:"email" json:"email"`
	CodeHash  string    `bson:"code_hash" json:"-"`
	Attempts  int       `bson:"attempts" json:"attempts"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// IsExpired checks if the code can no longer be used
func (c *OTPChallenge) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// OTPRepository stores pending challenges
type OTPRepository interface {
	Create(ctx context.Context, challenge *OTPChallenge) error
	GetByID(ctx context.Context, id string) (*OTPChallenge, error)
	// ClaimAttempt spends one attempt on a live challenge in a single step and returns it.
	// ErrNotFound when the challenge is missing, expired or out of attempts.
	ClaimAttempt(ctx context.Context, id string, now time.Time) (*OTPChallenge, error)
	// Delete removes a challenge; ErrNotFound when it was already gone
	Delete(ctx context.Context, id string) error
	// DeleteByUserID drops any earlier challenges so only the newest code is valid
	DeleteByUserID(ctx context.Context, userID string) error
}

// Mailer delivers one-time codes
type Mailer interface {
	SendCode(ctx context.Context, to string, name string, code string) error
}

// RateLimiter counts hits for a key inside a fixed window
type RateLimiter interface {
	// Allow records a hit and reports whether the key is still under limit
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
