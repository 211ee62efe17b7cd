package domain

import (
	"context"
	"strings"
	"time"
)

// AvatarPlaceholderURL is assigned to accounts created without a profile picture
const AvatarPlaceholderURL = "https://img.freepik.com/free-psd/3d-illustration-person-with-sunglasses_23-2149436188.jpg"

// User is an account that owns and receives files
type User struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	AccountID   string    `bson:"account_id" json:"account_id"` // Stable public identifier, echoed to the client on sign-in
	FirebaseUID string    `bson:"firebase_uid,omitempty" json:"-"`
	FullName    string    `bson:"full_name" json:"full_name"`
	Email       string    `bson:"email" json:"email"`
	Avatar      string    `bson:"avatar" json:"avatar"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserRepository defines operations for managing users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByFirebaseUID(ctx context.Context, uid string) (*User, error)
	UpdateFirebaseUID(ctx context.Context, userID string, firebaseUID string) error
}
