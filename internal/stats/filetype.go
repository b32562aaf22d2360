package stats

import (
	"cmp"
	"slices"

	"github.com/sydlexius/dirscope/internal/directory"
)

// FileTypeStat aggregates items sharing one extension.
type FileTypeStat struct {
	FileType  string `json:"file_type"`
	Count     int    `json:"count"`
	TotalSize int64  `json:"total_size"`
}

// FileTypeStats groups items by lowercased extension, most common first.
// Ties are ordered by extension so the output is deterministic.
func FileTypeStats(items []directory.ResourceItem) []FileTypeStat {
	byType := make(map[string]*FileTypeStat)
	for _, item := range items {
		ext := item.Extension()
		s, ok := byType[ext]
		if !ok {
			s = &FileTypeStat{FileType: ext}
			byType[ext] = s
		}
		s.Count++
		s.TotalSize += item.FileSize
	}

	out := make([]FileTypeStat, 0, len(byType))
	for _, s := range byType {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b FileTypeStat) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.FileType, b.FileType)
	})
	return out
}

// Summary is the headline numbers for a resource set.
type Summary struct {
	Files     int   `json:"files"`
	TotalSize int64 `json:"total_size"`
	Buckets   int   `json:"buckets"`
}

// Summarize totals a resource set.
func Summarize(items []directory.ResourceItem) Summary {
	s := Summary{Files: len(items)}
	for _, item := range items {
		s.TotalSize += item.FileSize
	}
	s.Buckets = len(CategoryStats(items))
	return s
}
