package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/mansoorceksport/storeit/internal/config"
	"github.com/mansoorceksport/storeit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockFirebase struct {
	tokens map[string]*auth.Token
}

func (m *mockFirebase) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if t, ok := m.tokens[idToken]; ok {
		return t, nil
	}
	return nil, errors.New("invalid mock token")
}

type authFixture struct {
	svc     *AuthService
	users   *fakeUserRepo
	otps    *fakeOTPRepo
	mailer  *fakeMailer
	limiter *fakeLimiter
	now     time.Time
}

func newAuthFixture(t *testing.T, firebase FirebaseAuthClient) *authFixture {
	t.Helper()
	f := &authFixture{
		users:   newFakeUserRepo(),
		otps:    newFakeOTPRepo(),
		mailer:  &fakeMailer{},
		limiter: &fakeLimiter{},
		now:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewAuthService(f.users, f.otps, f.mailer, f.limiter, firebase, config.OTPConfig{
		TTL:          15 * time.Minute,
		RequestLimit: 3,
		LimitWindow:  10 * time.Minute,
	})
	f.svc.hashCost = bcrypt.MinCost
	f.svc.now = func() time.Time { return f.now }
	return f
}

func TestSignUpCreatesUserAndSendsCode(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()

	challenge, err := f.svc.SignUp(ctx, " Alice ", "Alice@Example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, challenge.ChallengeID)
	assert.NotEmpty(t, challenge.AccountID)
	assert.Equal(t, f.now.Add(15*time.Minute), challenge.ExpiresAt)

	user, err := f.users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.FullName)
	assert.Equal(t, domain.AvatarPlaceholderURL, user.Avatar)

	sent := f.mailer.last()
	assert.Equal(t, "alice@example.com", sent.to)
	assert.Len(t, sent.code, 6)

	stored, err := f.otps.GetByID(ctx, challenge.ChallengeID)
	require.NoError(t, err)
	assert.NotEqual(t, sent.code, stored.CodeHash, "only the hash is stored")
}

func TestSignUpExistingEmailReusesAccount(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.SignUp(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)
	second, err := f.svc.SignUp(ctx, "Someone Else", "alice@example.com")
	require.NoError(t, err)

	assert.Equal(t, first.AccountID, second.AccountID)
	_, err = f.otps.GetByID(ctx, first.ChallengeID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "requesting a new code replaces the old one")
}

func TestSignInUnknownUser(t *testing.T) {
	f := newAuthFixture(t, nil)

	_, err := f.svc.SignIn(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.Empty(t, f.mailer.sent)
}

func TestVerifyCode(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)
	challenge, err := f.svc.SignIn(ctx, "alice@example.com")
	require.NoError(t, err)
	code := f.mailer.last().code

	_, err = f.svc.VerifyCode(ctx, challenge.ChallengeID, wrongCode(code))
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	user, err := f.svc.VerifyCode(ctx, challenge.ChallengeID, code)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	_, err = f.svc.VerifyCode(ctx, challenge.ChallengeID, code)
	assert.ErrorIs(t, err, domain.ErrInvalidCode, "a code can only be used once")
}

func TestVerifyCodeExpired(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()

	challenge, err := f.svc.SignUp(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)
	code := f.mailer.last().code

	f.now = f.now.Add(16 * time.Minute)
	_, err = f.svc.VerifyCode(ctx, challenge.ChallengeID, code)
	assert.ErrorIs(t, err, domain.ErrCodeExpired)
}

func TestVerifyCodeLocksAfterMaxAttempts(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()

	challenge, err := f.svc.SignUp(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)
	code := f.mailer.last().code

	for i := 0; i < domain.MaxOTPAttempts; i++ {
		_, err := f.svc.VerifyCode(ctx, challenge.ChallengeID, wrongCode(code))
		assert.ErrorIs(t, err, domain.ErrInvalidCode)
	}

	_, err = f.svc.VerifyCode(ctx, challenge.ChallengeID, code)
	assert.ErrorIs(t, err, domain.ErrTooManyAttempts)
}

func TestVerifyCodeConcurrentGuessesRespectCap(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()

	challenge, err := f.svc.SignUp(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)
	code := f.mailer.last().code

	const guesses = 100
	errs := make([]error, guesses)
	var wg sync.WaitGroup
	for i := 0; i < guesses; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			guess := fmt.Sprintf("%06d", i)
			if guess == code {
				guess = wrongCode(code)
			}
			_, errs[i] = f.svc.VerifyCode(ctx, challenge.ChallengeID, guess)
		}(i)
	}
	wg.Wait()

	var invalid, locked int
	for _, err := range errs {
		switch {
		case errors.Is(err, domain.ErrInvalidCode):
			invalid++
		case errors.Is(err, domain.ErrTooManyAttempts):
			locked++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, domain.MaxOTPAttempts, invalid, "only the claimed attempts are checked against the hash")
	assert.Equal(t, guesses-domain.MaxOTPAttempts, locked)
	assert.Equal(t, domain.MaxOTPAttempts, f.otps.claims)

	_, err = f.svc.VerifyCode(ctx, challenge.ChallengeID, code)
	assert.ErrorIs(t, err, domain.ErrTooManyAttempts, "the right code is useless once the cap is spent")
}

func TestVerifyCodeConcurrentCorrectCodeSignsInOnce(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()

	challenge, err := f.svc.SignUp(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)
	code := f.mailer.last().code

	errs := make([]error, domain.MaxOTPAttempts)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.VerifyCode(ctx, challenge.ChallengeID, code)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, domain.ErrInvalidCode)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestRequestCodeRateLimited(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.SignUp(ctx, "Alice", "alice@example.com")
		require.NoError(t, err)
	}
	_, err := f.svc.SignIn(ctx, "alice@example.com")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestRequestCodeLimiterOutageFailsOpen(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.limiter.err = errors.New("redis down")

	_, err := f.svc.SignUp(context.Background(), "Alice", "alice@example.com")
	assert.NoError(t, err)
}

func TestRequestCodeMailFailure(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.mailer.err = errors.New("smtp down")

	_, err := f.svc.SignUp(context.Background(), "Alice", "alice@example.com")
	require.Error(t, err)
	assert.Empty(t, f.otps.challenges, "undeliverable challenge is discarded")
}

func TestLoginWithFirebase(t *testing.T) {
	fb := &mockFirebase{tokens: map[string]*auth.Token{
		"tok-new":  {UID: "fb-new", Claims: map[string]interface{}{"email": "new@example.com", "name": "New"}},
		"tok-link": {UID: "fb-link", Claims: map[string]interface{}{"email": "alice@example.com"}},
		"tok-none": {UID: "fb-none", Claims: map[string]interface{}{}},
	}}
	f := newAuthFixture(t, fb)
	ctx := context.Background()

	user, isNew, err := f.svc.LoginWithFirebase(ctx, "tok-new")
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, "New", user.FullName)

	user, isNew, err = f.svc.LoginWithFirebase(ctx, "tok-new")
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, "new@example.com", user.Email)

	_, err = f.svc.SignUp(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)
	user, isNew, err = f.svc.LoginWithFirebase(ctx, "tok-link")
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, "fb-link", user.FirebaseUID)

	_, _, err = f.svc.LoginWithFirebase(ctx, "tok-none")
	assert.Error(t, err)

	_, _, err = f.svc.LoginWithFirebase(ctx, "bogus")
	assert.Error(t, err)
}

func TestLoginWithFirebaseDisabled(t *testing.T) {
	f := newAuthFixture(t, nil)

	_, _, err := f.svc.LoginWithFirebase(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrFirebaseDisabled)
}

func TestGenerateNumericCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateNumericCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9', "code %q has non-digit", code)
		}
	}
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestGetUser(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.SignUp(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)
	stored, err := f.users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)

	user, err := f.svc.GetUser(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.FullName)

	_, err = f.svc.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
