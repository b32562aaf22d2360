package stats

import (
	"math"
	"slices"

	"github.com/sydlexius/dirscope/internal/directory"
)

// Bucket names one of the fixed file-type groups.
type Bucket string

// Bucket constants, in taxonomy order.
const (
	BucketImage    Bucket = "image"
	BucketDocument Bucket = "document"
	BucketVideo    Bucket = "video"
	BucketAudio    Bucket = "audio"
	BucketArchive  Bucket = "archive"
	BucketOther    Bucket = "other"
)

// BucketInfo describes how a bucket is presented.
type BucketInfo struct {
	Bucket     Bucket
	Label      string
	Icon       string
	Extensions []string
}

// Taxonomy lists every bucket in its fixed order. Extension sets are
// disjoint; anything unlisted is "other".
var Taxonomy = []BucketInfo{
	{BucketImage, "Images", "🖼️", []string{"jpg", "jpeg", "png", "gif", "bmp", "webp", "svg", "ico", "tiff"}},
	{BucketDocument, "Documents", "📝", []string{"doc", "docx", "pdf", "txt", "xls", "xlsx", "ppt", "pptx", "rtf", "odt", "ods"}},
	{BucketVideo, "Videos", "🎬", []string{"mp4", "avi", "mov", "mkv", "flv", "wmv", "webm", "m4v", "3gp"}},
	{BucketAudio, "Audio", "🎵", []string{"mp3", "wav", "flac", "aac", "ogg", "wma", "m4a", "opus"}},
	{BucketArchive, "Archives", "📦", []string{"zip", "rar", "7z", "tar", "gz", "bz2"}},
	{BucketOther, "Other", "📄", nil},
}

var (
	extToBucket = map[string]Bucket{}
	bucketIndex = map[Bucket]int{}
)

func init() {
	for i, info := range Taxonomy {
		bucketIndex[info.Bucket] = i
		for _, ext := range info.Extensions {
			if prev, dup := extToBucket[ext]; dup {
				panic("stats: extension " + ext + " listed in both " + string(prev) + " and " + string(info.Bucket))
			}
			extToBucket[ext] = info.Bucket
		}
	}
}

// Classify maps a file type to its bucket. Matching ignores case and a
// leading dot.
func Classify(fileType string) Bucket {
	if b, ok := extToBucket[directory.NormalizeExtension(fileType)]; ok {
		return b
	}
	return BucketOther
}

// CategoryStat is the aggregate for one non-empty bucket.
type CategoryStat struct {
	Bucket     Bucket `json:"bucket"`
	Label      string `json:"label"`
	Icon       string `json:"icon"`
	Count      int    `json:"count"`
	TotalSize  int64  `json:"total_size"`
	Percentage int    `json:"percentage"`
}

// CategoryStats groups items into buckets. Empty buckets are omitted; the
// result is ordered by count descending with ties kept in taxonomy order.
// The empty input yields an empty, non-nil slice.
func CategoryStats(items []directory.ResourceItem) []CategoryStat {
	counts := make([]int, len(Taxonomy))
	sizes := make([]int64, len(Taxonomy))
	for _, item := range items {
		i := bucketIndex[Classify(item.FileType)]
		counts[i]++
		sizes[i] += item.FileSize
	}

	total := len(items)
	out := make([]CategoryStat, 0, len(Taxonomy))
	for i, info := range Taxonomy {
		if counts[i] == 0 {
			continue
		}
		out = append(out, CategoryStat{
			Bucket:     info.Bucket,
			Label:      info.Label,
			Icon:       info.Icon,
			Count:      counts[i],
			TotalSize:  sizes[i],
			Percentage: percentage(counts[i], total),
		})
	}

	slices.SortStableFunc(out, func(a, b CategoryStat) int {
		return b.Count - a.Count
	})
	return out
}

func percentage(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}
