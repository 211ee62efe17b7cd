package domain

import "testing"

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		key       string
		wantField string
		wantDesc  bool
		wantKey   string
	}{
		{"$createdAt-desc", "created_at", true, "$createdAt-desc"},
		{"$createdAt-asc", "created_at", false, "$createdAt-asc"},
		{"name-asc", "name", false, "name-asc"},
		{"name-desc", "name", true, "name-desc"},
		{"size-desc", "size", true, "size-desc"},
		{"size-asc", "size", false, "size-asc"},
		{"", "created_at", true, DefaultSortKey},
		{"owner-asc", "created_at", true, DefaultSortKey},
		{"name-sideways", "created_at", true, DefaultSortKey},
		{"name", "created_at", true, DefaultSortKey},
		{"-desc", "created_at", true, DefaultSortKey},
	}

	for _, tt := range tests {
		got := ParseSortKey(tt.key)
		if got.Field != tt.wantField || got.Descending != tt.wantDesc || got.Key != tt.wantKey {
			t.Errorf("ParseSortKey(%q) = %+v, want field=%s desc=%v key=%s", tt.key, got, tt.wantField, tt.wantDesc, tt.wantKey)
		}
	}
}

func TestSortOptionsAreRecognised(t *testing.T) {
	for _, opt := range SortOptions {
		if got := ParseSortKey(opt.Value); got.Key != opt.Value {
			t.Errorf("sort option %q parsed as %q", opt.Value, got.Key)
		}
	}
}
