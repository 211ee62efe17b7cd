package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mansoorceksport/storeit/internal/domain"
	"golang.org/x/sync/errgroup"
)

const (
	usageCacheTTL    = 5 * time.Minute
	recentFilesLimit = 10
	usageDigits      = 2
)

// UsageService aggregates storage usage for the dashboard
type UsageService struct {
	files domain.FileRepository
	cache domain.UsageCache
}

// NewUsageService creates a new usage service
func NewUsageService(files domain.FileRepository, cache domain.UsageCache) *UsageService {
	return &UsageService{
		files: files,
		cache: cache,
	}
}

// UsageReport is the storage usage plus display values
type UsageReport struct {
	*domain.StorageUsage
	Percentage    float64 `json:"percentage"`
	UsedFormatted string  `json:"used_formatted"`
	AllFormatted  string  `json:"all_formatted"`
}

// Dashboard is the landing page payload
type Dashboard struct {
	Usage       *UsageReport          `json:"usage"`
	Summary     []domain.UsageSummary `json:"summary"`
	RecentFiles []*domain.File        `json:"recent_files"`
}

// GetUsage returns the user's storage usage, served from cache when possible
func (s *UsageService) GetUsage(ctx context.Context, user *domain.User) (*UsageReport, error) {
	usage, err := s.usage(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return newUsageReport(usage), nil
}

// GetDashboard loads usage and recent files concurrently
func (s *UsageService) GetDashboard(ctx context.Context, user *domain.User) (*Dashboard, error) {
	var (
		usage  *domain.StorageUsage
		recent []*domain.File
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		u, err := s.usage(gCtx, user.ID)
		if err != nil {
			return err
		}
		usage = u
		return nil
	})

	g.Go(func() error {
		files, err := s.files.List(gCtx, domain.FileQuery{
			OwnerID: user.ID,
			Email:   user.Email,
			Sort:    domain.ParseSortKey(domain.DefaultSortKey),
			Limit:   recentFilesLimit,
		})
		if err != nil {
			return fmt.Errorf("failed to load recent files: %w", err)
		}
		recent = files
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Dashboard{
		Usage:       newUsageReport(usage),
		Summary:     domain.SummarizeUsage(usage),
		RecentFiles: recent,
	}, nil
}

func (s *UsageService) usage(ctx context.Context, userID string) (*domain.StorageUsage, error) {
	if s.cache != nil {
		cached, err := s.cache.GetUsage(ctx, userID)
		if err != nil {
			log.Printf("Warning: usage cache read failed: %v", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	files, err := s.files.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	usage := domain.AggregateUsage(files)

	if s.cache != nil {
		if err := s.cache.SetUsage(ctx, userID, usage, usageCacheTTL); err != nil {
			log.Printf("Warning: failed to cache usage: %v", err)
		}
	}
	return usage, nil
}

func newUsageReport(usage *domain.StorageUsage) *UsageReport {
	return &UsageReport{
		StorageUsage:  usage,
		Percentage:    usage.Percentage(),
		UsedFormatted: domain.FormatFileSize(usage.Used, usageDigits),
		AllFormatted:  domain.FormatFileSize(usage.All, usageDigits),
	}
}
