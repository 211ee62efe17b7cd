package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mansoorceksport/storeit/internal/domain"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
	seq   int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.Email = domain.NormalizeEmail(user.Email)
	for _, u := range r.users {
		if u.Email == user.Email {
			return domain.ErrUserExists
		}
	}
	r.seq++
	user.ID = fmt.Sprintf("user-%d", r.seq)
	if user.AccountID == "" {
		user.AccountID = fmt.Sprintf("acct-%d", r.seq)
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = domain.NormalizeEmail(email)
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeUserRepo) GetByFirebaseUID(ctx context.Context, uid string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if uid != "" && u.FirebaseUID == uid {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeUserRepo) UpdateFirebaseUID(ctx context.Context, userID string, firebaseUID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.FirebaseUID = firebaseUID
	return nil
}

type fakeOTPRepo struct {
	mu         sync.Mutex
	challenges map[string]*domain.OTPChallenge
	claims     int
}

func newFakeOTPRepo() *fakeOTPRepo {
	return &fakeOTPRepo{challenges: make(map[string]*domain.OTPChallenge)}
}

func (r *fakeOTPRepo) Create(ctx context.Context, c *domain.OTPChallenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.challenges[c.ID] = &cp
	return nil
}

func (r *fakeOTPRepo) GetByID(ctx context.Context, id string) (*domain.OTPChallenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.challenges[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *fakeOTPRepo) ClaimAttempt(ctx context.Context, id string, now time.Time) (*domain.OTPChallenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[id]
	if !ok || c.Attempts >= domain.MaxOTPAttempts || !now.Before(c.ExpiresAt) {
		return nil, domain.ErrNotFound
	}
	c.Attempts++
	r.claims++
	cp := *c
	return &cp, nil
}

func (r *fakeOTPRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.challenges[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.challenges, id)
	return nil
}

func (r *fakeOTPRepo) DeleteByUserID(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.challenges {
		if c.UserID == userID {
			delete(r.challenges, id)
		}
	}
	return nil
}

type sentCode struct {
	to   string
	code string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (m *fakeMailer) SendCode(ctx context.Context, to string, name string, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentCode{to: to, code: code})
	return nil
}

func (m *fakeMailer) last() sentCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type fakeLimiter struct {
	hits map[string]int
	err  error
}

func (l *fakeLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	if l.hits == nil {
		l.hits = make(map[string]int)
	}
	l.hits[key]++
	return l.hits[key] <= limit, nil
}

type fakeFileRepo struct {
	mu        sync.Mutex
	files     map[string]*domain.File
	seq       int
	createErr error
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: make(map[string]*domain.File)}
}

func (r *fakeFileRepo) Create(ctx context.Context, f *domain.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.seq++
	f.ID = fmt.Sprintf("file-%d", r.seq)
	f.CreatedAt = time.Date(2024, 1, 1, 0, 0, r.seq, 0, time.UTC)
	f.UpdatedAt = f.CreatedAt
	cp := *f
	r.files[f.ID] = &cp
	return nil
}

func (r *fakeFileRepo) GetByID(ctx context.Context, id string) (*domain.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.files[id]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *fakeFileRepo) List(ctx context.Context, q domain.FileQuery) ([]*domain.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.File
	for _, f := range r.files {
		visible := f.OwnerID == q.OwnerID
		for _, u := range f.Users {
			if q.Email != "" && u == domain.NormalizeEmail(q.Email) {
				visible = true
			}
		}
		if !visible {
			continue
		}
		if len(q.Types) > 0 && !containsType(q.Types, f.Type) {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(f.Name), strings.ToLower(q.Search)) {
			continue
		}
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		var less bool
		switch q.Sort.Field {
		case "name":
			less = out[i].Name < out[j].Name
		case "size":
			less = out[i].Size < out[j].Size
		default:
			less = out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		if q.Sort.Descending {
			return !less
		}
		return less
	})
	if q.Limit > 0 && int64(len(out)) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *fakeFileRepo) ListByOwner(ctx context.Context, ownerID string) ([]*domain.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.File
	for _, f := range r.files {
		if f.OwnerID == ownerID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeFileRepo) Rename(ctx context.Context, id string, name string) (*domain.File, error) {
	return r.update(id, func(f *domain.File) { f.Name = name })
}

func (r *fakeFileRepo) UpdateUsers(ctx context.Context, id string, emails []string) (*domain.File, error) {
	return r.update(id, func(f *domain.File) { f.Users = emails })
}

func (r *fakeFileRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.files, id)
	return nil
}

func (r *fakeFileRepo) update(id string, fn func(*domain.File)) (*domain.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	fn(f)
	cp := *f
	return &cp, nil
}

func containsType(types []domain.FileType, t domain.FileType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

type fakeBlobStore struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	putErr    error
	deleteErr error
	deleted   []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (b *fakeBlobStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if b.putErr != nil {
		return "", b.putErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[key] = buf.Bytes()
	return "https://blobs.test/" + key, nil
}

func (b *fakeBlobStore) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, key)
	if b.deleteErr != nil {
		return b.deleteErr
	}
	delete(b.blobs, key)
	return nil
}

func (b *fakeBlobStore) PresignGet(ctx context.Context, key string, filename string, ttl time.Duration) (string, error) {
	return "https://blobs.test/" + key + "?signed=1", nil
}

func (b *fakeBlobStore) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.blobs)
}

type fakeUsageCache struct {
	mu          sync.Mutex
	entries     map[string]*domain.StorageUsage
	gets        int
	invalidated []string
}

func newFakeUsageCache() *fakeUsageCache {
	return &fakeUsageCache{entries: make(map[string]*domain.StorageUsage)}
}

func (c *fakeUsageCache) GetUsage(ctx context.Context, userID string) (*domain.StorageUsage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	return c.entries[userID], nil
}

func (c *fakeUsageCache) SetUsage(ctx context.Context, userID string, usage *domain.StorageUsage, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = usage
	return nil
}

func (c *fakeUsageCache) InvalidateUsage(ctx context.Context, userIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		delete(c.entries, id)
		c.invalidated = append(c.invalidated, id)
	}
	return nil
}

type fakeRefreshRepo struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: make(map[string]*domain.RefreshToken)}
}

func (r *fakeRefreshRepo) Create(ctx context.Context, t *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.tokens[t.TokenHash] = &cp
	return nil
}

func (r *fakeRefreshRepo) FindByHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[hash]
	if !ok || t.Revoked {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *fakeRefreshRepo) RevokeByHash(ctx context.Context, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tokens[hash]; ok {
		t.Revoked = true
	}
	return nil
}

func (r *fakeRefreshRepo) RevokeAllByUserID(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

