package domain

import (
	"reflect"
	"testing"
)

func TestClassifyFile(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		wantType FileType
		wantExt  string
	}{
		{"pdf document", "report.pdf", FileTypeDocument, "pdf"},
		{"uppercase extension", "Photo.JPG", FileTypeImage, "jpg"},
		{"multiple dots", "archive.backup.mkv", FileTypeVideo, "mkv"},
		{"audio", "song.flac", FileTypeAudio, "flac"},
		{"design file counts as document", "mock.fig", FileTypeDocument, "fig"},
		{"unknown extension", "data.bin", FileTypeOther, "bin"},
		{"no extension", "Makefile", FileTypeOther, ""},
		{"trailing dot", "weird.", FileTypeOther, ""},
		{"empty name", "", FileTypeOther, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotExt := ClassifyFile(tt.fileName)
			if gotType != tt.wantType || gotExt != tt.wantExt {
				t.Errorf("ClassifyFile(%q) = (%q, %q), want (%q, %q)", tt.fileName, gotType, gotExt, tt.wantType, tt.wantExt)
			}
		})
	}
}

func TestClassifyFileCoversEveryKnownExtension(t *testing.T) {
	for ext, want := range extensionTypes {
		got, _ := ClassifyFile("file." + ext)
		if got != want {
			t.Errorf("extension %q classified as %q, want %q", ext, got, want)
		}
		if !got.IsValid() {
			t.Errorf("extension %q produced invalid type %q", ext, got)
		}
	}
}

func TestFileTypesForCategory(t *testing.T) {
	tests := map[string][]FileType{
		"documents": {FileTypeDocument},
		"images":    {FileTypeImage},
		"media":     {FileTypeVideo, FileTypeAudio},
		"others":    {FileTypeOther},
		"Images":    {FileTypeImage},
		"":          {FileTypeDocument},
		"unknown":   {FileTypeDocument},
	}
	for category, want := range tests {
		if got := FileTypesForCategory(category); !reflect.DeepEqual(got, want) {
			t.Errorf("FileTypesForCategory(%q) = %v, want %v", category, got, want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"report.pdf":           "report.pdf",
		"../../etc/passwd":     "passwd",
		`C:\Users\me\cv.docx`:  "cv.docx",
		"  spaced name.txt  ":  "spaced name.txt",
		"bad\x00name.png":      "badname.png",
		"":                     "",
		"/":                    "",
	}
	for in, want := range tests {
		if got := SanitizeFileName(in); got != want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFileVisibility(t *testing.T) {
	owner := &User{ID: "u1", Email: "owner@example.com"}
	friend := &User{ID: "u2", Email: "Friend@Example.com"}
	stranger := &User{ID: "u3", Email: "stranger@example.com"}

	f := &File{OwnerID: "u1", Users: []string{"friend@example.com"}}

	if !f.IsOwnedBy(owner) || !f.IsVisibleTo(owner) {
		t.Error("owner should own and see the file")
	}
	if f.IsOwnedBy(friend) {
		t.Error("shared user should not own the file")
	}
	if !f.IsVisibleTo(friend) {
		t.Error("shared user should see the file")
	}
	if f.IsVisibleTo(stranger) {
		t.Error("stranger should not see the file")
	}
	if f.IsVisibleTo(nil) {
		t.Error("nil user should not see the file")
	}
}
