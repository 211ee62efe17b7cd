package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/mansoorceksport/storeit/internal/domain"
	"github.com/oklog/ulid/v2"
)

const (
	maxListLimit       = 1000
	downloadURLTTL     = 15 * time.Minute
	rollbackTimeout    = 10 * time.Second
	defaultContentType = "application/octet-stream"
)

// FileService handles uploads, listing, renaming, sharing and deletion of files
type FileService struct {
	files          domain.FileRepository
	blobs          domain.BlobStore
	cache          domain.UsageCache
	maxUploadBytes int64
}

// NewFileService creates a new file service
func NewFileService(
	files domain.FileRepository,
	blobs domain.BlobStore,
	cache domain.UsageCache,
	maxUploadBytes int64,
) *FileService {
	return &FileService{
		files:          files,
		blobs:          blobs,
		cache:          cache,
		maxUploadBytes: maxUploadBytes,
	}
}

// UploadInput is one file received from the client
type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ListInput holds the listing filters. Category wins over Types when both are set.
type ListInput struct {
	Category string
	Types    []string
	Search   string
	Sort     string
	Limit    int64
}

// Upload stores the blob, then its metadata. When the metadata write fails the
// blob is deleted again so storage does not leak.
func (s *FileService) Upload(ctx context.Context, owner *domain.User, in UploadInput) (*domain.File, error) {
	name := domain.SanitizeFileName(in.Filename)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if in.Size <= 0 {
		return nil, domain.ErrEmptyFile
	}
	if s.maxUploadBytes > 0 && in.Size > s.maxUploadBytes {
		return nil, domain.ErrFileTooLarge
	}

	fileType, ext := domain.ClassifyFile(name)
	contentType := in.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	bucketFileID := ulid.Make().String() + "/" + name

	url, err := s.blobs.Put(ctx, bucketFileID, in.Body, in.Size, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	file := &domain.File{
		Name:         name,
		Extension:    ext,
		Type:         fileType,
		Size:         in.Size,
		ContentType:  contentType,
		URL:          url,
		BucketFileID: bucketFileID,
		OwnerID:      owner.ID,
		AccountID:    owner.AccountID,
		Users:        []string{},
	}

	if err := s.files.Create(ctx, file); err != nil {
		s.rollbackBlob(bucketFileID)
		return nil, fmt.Errorf("failed to save file metadata: %w", err)
	}

	s.invalidateUsage(ctx, owner.ID)
	return file, nil
}

// List returns files the user owns or that are shared with them
func (s *FileService) List(ctx context.Context, user *domain.User, in ListInput) ([]*domain.File, error) {
	query := domain.FileQuery{
		OwnerID: user.ID,
		Email:   user.Email,
		Types:   resolveTypes(in.Category, in.Types),
		Search:  strings.TrimSpace(in.Search),
		Sort:    domain.ParseSortKey(in.Sort),
		Limit:   clampLimit(in.Limit),
	}
	return s.files.List(ctx, query)
}

// Get returns a file visible to the user
func (s *FileService) Get(ctx context.Context, user *domain.User, id string) (*domain.File, error) {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !file.IsVisibleTo(user) {
		return nil, domain.ErrForbidden
	}
	return file, nil
}

// Rename changes the base name and keeps the stored extension
func (s *FileService) Rename(ctx context.Context, user *domain.User, id string, name string) (*domain.File, error) {
	file, err := s.getOwned(ctx, user, id)
	if err != nil {
		return nil, err
	}

	newName := buildFileName(domain.SanitizeFileName(name), file.Extension)
	if newName == "" {
		return nil, domain.ErrInvalidName
	}
	if newName == file.Name {
		return file, nil
	}
	renamed, err := s.files.Rename(ctx, id, newName)
	if err != nil {
		return nil, err
	}
	// updated_at moved, so the cached latest dates are stale
	s.invalidateUsage(ctx, user.ID)
	return renamed, nil
}

// UpdateShares replaces the list of emails the file is shared with
func (s *FileService) UpdateShares(ctx context.Context, user *domain.User, id string, emails []string) (*domain.File, error) {
	file, err := s.getOwned(ctx, user, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.files.UpdateUsers(ctx, file.ID, normalizeShareEmails(emails, user.Email))
	if err != nil {
		return nil, err
	}
	s.invalidateUsage(ctx, user.ID)
	return updated, nil
}

// Delete removes the metadata, then the blob. A failed blob delete is only logged
// since the file is already gone for the user.
func (s *FileService) Delete(ctx context.Context, user *domain.User, id string) error {
	file, err := s.getOwned(ctx, user, id)
	if err != nil {
		return err
	}

	if err := s.files.Delete(ctx, file.ID); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, file.BucketFileID); err != nil {
		log.Printf("Warning: failed to delete blob %s: %v", file.BucketFileID, err)
	}

	s.invalidateUsage(ctx, user.ID)
	return nil
}

// DownloadURL returns a short-lived link to the file contents
func (s *FileService) DownloadURL(ctx context.Context, user *domain.User, id string) (string, error) {
	file, err := s.Get(ctx, user, id)
	if err != nil {
		return "", err
	}
	return s.blobs.PresignGet(ctx, file.BucketFileID, file.Name, downloadURLTTL)
}

func (s *FileService) getOwned(ctx context.Context, user *domain.User, id string) (*domain.File, error) {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !file.IsOwnedBy(user) {
		return nil, domain.ErrForbidden
	}
	return file, nil
}

func (s *FileService) rollbackBlob(key string) {
	// The request context may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), rollbackTimeout)
	defer cancel()
	if err := s.blobs.Delete(ctx, key); err != nil {
		log.Printf("Warning: failed to roll back blob %s: %v", key, err)
	}
}

func (s *FileService) invalidateUsage(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUsage(ctx, userID); err != nil {
		log.Printf("Warning: failed to invalidate usage cache: %v", err)
	}
}

// resolveTypes turns a category or raw type list into a type filter; nil means all types
func resolveTypes(category string, raw []string) []domain.FileType {
	if category != "" {
		return domain.FileTypesForCategory(category)
	}
	var types []domain.FileType
	seen := make(map[domain.FileType]bool)
	for _, r := range raw {
		t := domain.FileType(strings.ToLower(strings.TrimSpace(r)))
		if t.IsValid() && !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	return types
}

func clampLimit(limit int64) int64 {
	if limit <= 0 {
		return 0
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// buildFileName appends ext unless name already ends with it
func buildFileName(name, ext string) string {
	name = strings.TrimSpace(name)
	if name == "" || ext == "" {
		return name
	}
	if strings.HasSuffix(strings.ToLower(name), "."+ext) {
		name = name[:len(name)-len(ext)-1]
		if strings.TrimSpace(name) == "" {
			return ""
		}
	}
	return name + "." + ext
}

// normalizeShareEmails lowercases, dedupes and drops blanks and the owner's own address
func normalizeShareEmails(emails []string, ownerEmail string) []string {
	owner := domain.NormalizeEmail(ownerEmail)
	out := make([]string, 0, len(emails))
	seen := make(map[string]bool)
	for _, e := range emails {
		e = domain.NormalizeEmail(e)
		if e == "" || e == owner || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}
