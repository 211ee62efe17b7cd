package domain

import "strings"

// DefaultSortKey orders files newest first
const DefaultSortKey = "$createdAt-desc"

// SortSpec is a parsed sort key: the document field and its direction
type SortSpec struct {
	Key        string `json:"key"`
	Field      string `json:"field"`
	Descending bool   `json:"descending"`
}

// SortOption describes a sort key offered to clients
type SortOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// SortOptions lists the recognised sort keys
var SortOptions = []SortOption{
	{Label: "Date created (newest)", Value: "$createdAt-desc"},
	{Label: "Created Date (oldest)", Value: "$createdAt-asc"},
	{Label: "Name (A-Z)", Value: "name-asc"},
	{Label: "Name (Z-A)", Value: "name-desc"},
	{Label: "Size (Highest)", Value: "size-desc"},
	{Label: "Size (Lowest)", Value: "size-asc"},
}

var sortFields = map[string]string{
	"$createdAt": "created_at",
	"name":       "name",
	"size":       "size",
}

// ParseSortKey parses "<field>-<asc|desc>". Unrecognised keys fall back to DefaultSortKey.
func ParseSortKey(key string) SortSpec {
	key = strings.TrimSpace(key)
	idx := strings.LastIndex(key, "-")
	if idx > 0 {
		field, ok := sortFields[key[:idx]]
		order := key[idx+1:]
		if ok && (order == "asc" || order == "desc") {
			return SortSpec{Key: key, Field: field, Descending: order == "desc"}
		}
	}
	return SortSpec{Key: DefaultSortKey, Field: "created_at", Descending: true}
}
