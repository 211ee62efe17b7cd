package domain

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// FileType is the category a stored file is filed under, derived from its extension
type FileType string

const (
	FileTypeDocument FileType = "document"
	FileTypeImage    FileType = "image"
	FileTypeVideo    FileType = "video"
	FileTypeAudio    FileType = "audio"
	FileTypeOther    FileType = "other"
)

// AllFileTypes lists every FileType in display order
var AllFileTypes = []FileType{FileTypeDocument, FileTypeImage, FileTypeVideo, FileTypeAudio, FileTypeOther}

var extensionTypes = buildExtensionTypes(map[FileType][]string{
	FileTypeDocument: {
		"pdf", "doc", "docx", "txt", "xls", "xlsx", "csv", "rtf", "ods", "ppt", "odp",
		"md", "html", "htm", "epub", "pages", "fig", "psd", "ai", "indd", "xd",
		"sketch", "afdesign", "afphoto",
	},
	FileTypeImage: {"jpg", "jpeg", "png", "gif", "bmp", "svg", "webp"},
	FileTypeVideo: {"mp4", "avi", "mov", "mkv", "webm"},
	FileTypeAudio: {"mp3", "wav", "ogg", "flac"},
})

func buildExtensionTypes(groups map[FileType][]string) map[string]FileType {
	m := make(map[string]FileType)
	for fileType, exts := range groups {
		for _, ext := range exts {
			m[ext] = fileType
		}
	}
	return m
}

// IsValid reports whether t is one of the known file types
func (t FileType) IsValid() bool {
	switch t {
	case FileTypeDocument, FileTypeImage, FileTypeVideo, FileTypeAudio, FileTypeOther:
		return true
	}
	return false
}

// FileExtension returns the lowercased text after the last dot, or "" if there is none
func FileExtension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// ClassifyFile maps a file name to its FileType and lowercased extension.
// Unknown or missing extensions fall back to FileTypeOther.
func ClassifyFile(name string) (FileType, string) {
	ext := FileExtension(name)
	if ext == "" {
		return FileTypeOther, ""
	}
	if fileType, ok := extensionTypes[ext]; ok {
		return fileType, ext
	}
	return FileTypeOther, ext
}

// FileTypesForCategory maps a listing category (documents, images, media, others)
// to the file types it shows. Unknown categories show documents.
func FileTypesForCategory(category string) []FileType {
	switch strings.ToLower(category) {
	case "documents":
		return []FileType{FileTypeDocument}
	case "images":
		return []FileType{FileTypeImage}
	case "media":
		return []FileType{FileTypeVideo, FileTypeAudio}
	case "others":
		return []FileType{FileTypeOther}
	default:
		return []FileType{FileTypeDocument}
	}
}

// SanitizeFileName strips any directory components and control characters from an upload name
func SanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// File is the metadata document for a stored blob
type File struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Extension    string    `bson:"extension" json:"extension"`
	Type         FileType  `bson:"type" json:"type"`
	Size         int64     `bson:"size" json:"size"`
	ContentType  string    `bson:"content_type" json:"content_type"`
	URL          string    `bson:"url" json:"url"`
	BucketFileID string    `bson:"bucket_file_id" json:"bucket_file_id"`
	OwnerID      string    `bson:"owner_id" json:"owner_id"`
	AccountID    string    `bson:"account_id" json:"account_id"`
	Users        []string  `bson:"users" json:"users"` // Emails the file is shared with
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// IsOwnedBy reports whether the user owns the file
func (f *File) IsOwnedBy(user *User) bool {
	return user != nil && f.OwnerID == user.ID
}

// IsVisibleTo reports whether the user owns the file or it has been shared with them
func (f *File) IsVisibleTo(user *User) bool {
	if f.IsOwnedBy(user) {
		return true
	}
	if user == nil {
		return false
	}
	email := NormalizeEmail(user.Email)
	for _, u := range f.Users {
		if u == email {
			return true
		}
	}
	return false
}

// FileQuery is the filter/sort request for listing files visible to a user
type FileQuery struct {
	OwnerID string
	Email   string
	Types   []FileType
	Search  string
	Sort    SortSpec
	Limit   int64
}

// FileRepository defines metadata persistence for files
type FileRepository interface {
	Create(ctx context.Context, file *File) error
	GetByID(ctx context.Context, id string) (*File, error)
	List(ctx context.Context, query FileQuery) ([]*File, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*File, error)
	Rename(ctx context.Context, id string, name string) (*File, error)
	UpdateUsers(ctx context.Context, id string, emails []string) (*File, error)
	Delete(ctx context.Context, id string) error
}

// BlobStore defines object storage operations for file contents
type BlobStore interface {
	// Put stores the blob under key and returns its access URL
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited download URL for key
	PresignGet(ctx context.Context, key string, filename string, ttl time.Duration) (string, error)
}
