package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
	"github.com/mansoorceksport/storeit/internal/config"
	"github.com/mansoorceksport/storeit/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// ErrFirebaseDisabled is returned when federated sign-in is requested without Firebase configured
var ErrFirebaseDisabled = errors.New("firebase sign-in is not configured")

// FirebaseAuthClient defines the interface for Firebase Auth operations
// This allows mocking for tests
type FirebaseAuthClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthService handles account creation and one-time email code sign-in
type AuthService struct {
	userRepo   domain.UserRepository
	otpRepo    domain.OTPRepository
	mailer     domain.Mailer
	limiter    domain.RateLimiter
	authClient FirebaseAuthClient // nil when Firebase is not configured
	otpConfig  config.OTPConfig

	generateCode func() (string, error)
	hashCost     int
	now          func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo domain.UserRepository,
	otpRepo domain.OTPRepository,
	mailer domain.Mailer,
	limiter domain.RateLimiter,
	authClient FirebaseAuthClient,
	otpConfig config.OTPConfig,
) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		otpRepo:      otpRepo,
		mailer:       mailer,
		limiter:      limiter,
		authClient:   authClient,
		otpConfig:    otpConfig,
		generateCode: generateNumericCode,
		hashCost:     bcrypt.DefaultCost,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CodeChallenge is returned to the client after a code was sent
type CodeChallenge struct {
	AccountID   string    `json:"account_id"`
	ChallengeID string    `json:"challenge_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// SignUp creates the account if the email is new, then sends a code.
// An already-registered email just receives a fresh code.
func (s *AuthService) SignUp(ctx context.Context, fullName, email string) (*CodeChallenge, error) {
	email = domain.NormalizeEmail(email)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	if user == nil {
		user = &domain.User{
			FullName: strings.TrimSpace(fullName),
			Email:    email,
			Avatar:   domain.AvatarPlaceholderURL,
		}
		err := s.userRepo.Create(ctx, user)
		switch {
		case errors.Is(err, domain.ErrUserExists):
			// Lost a race with a concurrent sign-up for the same email
			if user, err = s.userRepo.GetByEmail(ctx, email); err != nil {
				return nil, fmt.Errorf("failed to fetch user: %w", err)
			}
		case err != nil:
			return nil, fmt.Errorf("failed to create user: %w", err)
		default:
			log.Printf("👤 New account %s", user.AccountID)
		}
	}

	return s.RequestCode(ctx, user)
}

// SignIn sends a code to an existing account
func (s *AuthService) SignIn(ctx context.Context, email string) (*CodeChallenge, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return s.RequestCode(ctx, user)
}

// RequestCode issues a new one-time code for the user, replacing any pending one
func (s *AuthService) RequestCode(ctx context.Context, user *domain.User) (*CodeChallenge, error) {
	if s.limiter != nil && s.otpConfig.RequestLimit > 0 {
		allowed, err := s.limiter.Allow(ctx, "otp:"+user.Email, s.otpConfig.RequestLimit, s.otpConfig.LimitWindow)
		if err != nil {
			// Redis outage should not lock users out
			log.Printf("Warning: otp rate limiter unavailable: %v", err)
		} else if !allowed {
			return nil, domain.ErrRateLimited
		}
	}

	code, err := s.generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash code: %w", err)
	}

	if err := s.otpRepo.DeleteByUserID(ctx, user.ID); err != nil {
		log.Printf("Warning: failed to clear old otp challenges: %v", err)
	}

	now := s.now()
	challenge := &domain.OTPChallenge{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		CodeHash:  string(hash),
		ExpiresAt: now.Add(s.otpConfig.TTL),
		CreatedAt: now,
	}
	if err := s.otpRepo.Create(ctx, challenge); err != nil {
		return nil, err
	}

	if err := s.mailer.SendCode(ctx, user.Email, user.FullName, code); err != nil {
		_ = s.otpRepo.Delete(ctx, challenge.ID)
		return nil, fmt.Errorf("failed to send code: %w", err)
	}

	return &CodeChallenge{
		AccountID:   user.AccountID,
		ChallengeID: challenge.ID,
		ExpiresAt:   challenge.ExpiresAt,
	}, nil
}

// VerifyCode checks a code against its challenge and returns the signed-in user
func (s *AuthService) VerifyCode(ctx context.Context, challengeID, code string) (*domain.User, error) {
	// The attempt is spent before the compare so parallel guesses cannot exceed the cap.
	challenge, err := s.otpRepo.ClaimAttempt(ctx, challengeID, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, s.rejectChallenge(ctx, challengeID)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(challenge.CodeHash), []byte(strings.TrimSpace(code))); err != nil {
		return nil, domain.ErrInvalidCode
	}

	// Only the request that removes the challenge may sign in with it.
	if err := s.otpRepo.Delete(ctx, challenge.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCode
		}
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, challenge.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return user, nil
}

// rejectChallenge explains why no attempt could be claimed. Spent and expired
// challenges are left for the TTL index so every later guess gets the same answer.
func (s *AuthService) rejectChallenge(ctx context.Context, challengeID string) error {
	challenge, err := s.otpRepo.GetByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidCode
		}
		return err
	}
	if challenge.IsExpired(s.now()) {
		return domain.ErrCodeExpired
	}
	return domain.ErrTooManyAttempts
}

// GetUser returns the account behind a session
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return user, nil
}

// LoginWithFirebase signs in with a Firebase ID token, linking or creating the account by email
func (s *AuthService) LoginWithFirebase(ctx context.Context, idToken string) (*domain.User, bool, error) {
	if s.authClient == nil {
		return nil, false, ErrFirebaseDisabled
	}

	token, err := s.authClient.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, false, fmt.Errorf("invalid token: %w", err)
	}

	email, _ := token.Claims["email"].(string)
	name, _ := token.Claims["name"].(string)
	if email == "" {
		return nil, false, fmt.Errorf("firebase token has no email claim")
	}
	if name == "" {
		name = email
	}

	user, err := s.userRepo.GetByFirebaseUID(ctx, token.UID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to fetch user: %w", err)
	}

	// Not linked yet: attach to an existing account with the same email
	user, err = s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		if user.FirebaseUID != "" && user.FirebaseUID != token.UID {
			return nil, false, fmt.Errorf("email already linked to different account")
		}
		if err := s.userRepo.UpdateFirebaseUID(ctx, user.ID, token.UID); err != nil {
			return nil, false, fmt.Errorf("failed to link firebase account: %w", err)
		}
		user.FirebaseUID = token.UID
		return user, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to fetch user: %w", err)
	}

	avatar, _ := token.Claims["picture"].(string)
	user = &domain.User{
		FirebaseUID: token.UID,
		FullName:    name,
		Email:       email,
		Avatar:      avatar,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	return user, true, nil
}

// generateNumericCode returns a uniformly random 6-digit code
func generateNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
