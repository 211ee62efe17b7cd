package domain

import (
	"context"
	"fmt"
	"math"
	"time"
)

// TotalStorageBytes is the per-user storage quota (2 GiB)
const TotalStorageBytes int64 = 2 * 1024 * 1024 * 1024

const (
	kib = 1024
	mib = 1024 * kib
	gib = 1024 * mib
)

// FormatFileSize renders a byte count in Bytes, KB, MB or GB using 1024 boundaries.
// digits below 1 is treated as 1.
func FormatFileSize(bytes int64, digits int) string {
	if digits < 1 {
		digits = 1
	}
	if bytes < 0 {
		bytes = 0
	}
	switch {
	case bytes < kib:
		return fmt.Sprintf("%d Bytes", bytes)
	case bytes < mib:
		return fmt.Sprintf("%.*f KB", digits, float64(bytes)/kib)
	case bytes < gib:
		return fmt.Sprintf("%.*f MB", digits, float64(bytes)/mib)
	default:
		return fmt.Sprintf("%.*f GB", digits, float64(bytes)/gib)
	}
}

// UsagePercentage returns used/total as a percentage rounded to two decimals and capped to [0, 100]
func UsagePercentage(used, total int64) float64 {
	if total <= 0 || used <= 0 {
		return 0
	}
	pct := float64(used) / float64(total) * 100
	pct = math.Round(pct*100) / 100
	if pct > 100 {
		return 100
	}
	return pct
}

// UsageBucket is the space taken by one file type
type UsageBucket struct {
	Size       int64      `json:"size"`
	LatestDate *time.Time `json:"latest_date"`
}

func (b *UsageBucket) add(size int64, at time.Time) {
	b.Size += size
	if b.LatestDate == nil || at.After(*b.LatestDate) {
		t := at
		b.LatestDate = &t
	}
}

// StorageUsage is the aggregate of a user's owned files
type StorageUsage struct {
	Document UsageBucket `json:"document"`
	Image    UsageBucket `json:"image"`
	Video    UsageBucket `json:"video"`
	Audio    UsageBucket `json:"audio"`
	Other    UsageBucket `json:"other"`
	Used     int64       `json:"used"`
	All      int64       `json:"all"`
}

// Bucket returns the bucket for a file type; unknown types map to Other
func (u *StorageUsage) Bucket(t FileType) *UsageBucket {
	switch t {
	case FileTypeDocument:
		return &u.Document
	case FileTypeImage:
		return &u.Image
	case FileTypeVideo:
		return &u.Video
	case FileTypeAudio:
		return &u.Audio
	default:
		return &u.Other
	}
}

// Percentage of the quota in use
func (u *StorageUsage) Percentage() float64 {
	return UsagePercentage(u.Used, u.All)
}

// AggregateUsage folds files into per-type totals against the storage quota
func AggregateUsage(files []*File) *StorageUsage {
	usage := &StorageUsage{All: TotalStorageBytes}
	for _, f := range files {
		if f == nil || f.Size < 0 {
			continue
		}
		usage.Bucket(f.Type).add(f.Size, f.UpdatedAt)
		usage.Used += f.Size
	}
	return usage
}

// UsageSummary is one dashboard card
type UsageSummary struct {
	Title         string     `json:"title"`
	Size          int64      `json:"size"`
	FormattedSize string     `json:"formatted_size"`
	LatestDate    *time.Time `json:"latest_date"`
	URL           string     `json:"url"`
}

// SummarizeUsage groups usage into the Documents, Images, Media and Others cards
func SummarizeUsage(usage *StorageUsage) []UsageSummary {
	if usage == nil {
		usage = &StorageUsage{All: TotalStorageBytes}
	}
	media := UsageBucket{Size: usage.Video.Size + usage.Audio.Size}
	media.LatestDate = latest(usage.Video.LatestDate, usage.Audio.LatestDate)

	cards := []struct {
		title  string
		url    string
		bucket UsageBucket
	}{
		{"Documents", "/documents", usage.Document},
		{"Images", "/images", usage.Image},
		{"Media", "/media", media},
		{"Others", "/others", usage.Other},
	}

	summary := make([]UsageSummary, 0, len(cards))
	for _, c := range cards {
		summary = append(summary, UsageSummary{
			Title:         c.title,
			Size:          c.bucket.Size,
			FormattedSize: FormatFileSize(c.bucket.Size, 1),
			LatestDate:    c.bucket.LatestDate,
			URL:           c.url,
		})
	}
	return summary
}

func latest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	default:
		return a
	}
}

// UsageCache caches per-user storage usage
type UsageCache interface {
	GetUsage(ctx context.Context, userID string) (*StorageUsage, error)
	SetUsage(ctx context.Context, userID string, usage *StorageUsage, ttl time.Duration) error
	InvalidateUsage(ctx context.Context, userIDs ...string) error
}
