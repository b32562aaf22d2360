package stats

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/sydlexius/dirscope/internal/directory"
)

func item(fileType string, size int64) directory.ResourceItem {
	return directory.ResourceItem{
		FileName: "f." + fileType,
		FilePath: "/d/f." + fileType,
		FileType: fileType,
		FileSize: size,
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		in   string
		want Bucket
	}{
		{"jpg", BucketImage},
		{"JPEG", BucketImage},
		{".png", BucketImage},
		{"PDF", BucketDocument},
		{"mkv", BucketVideo},
		{"Flac", BucketAudio},
		{"7z", BucketArchive},
		{"xyz", BucketOther},
		{"", BucketOther},
		{"unknown", BucketOther},
		{" jpg ", BucketImage},
	}
	for _, tt := range tests {
		if got := Classify(tt.in); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestCategoryStats_FixedTaxonomy(t *testing.T) {
	got := CategoryStats([]directory.ResourceItem{
		item("jpg", 100),
		item("pdf", 200),
		item("xyz", 300),
	})

	if len(got) != 3 {
		t.Fatalf("got %d buckets, want 3: %+v", len(got), got)
	}
	// Equal counts keep taxonomy order.
	wantOrder := []Bucket{BucketImage, BucketDocument, BucketOther}
	for i, b := range wantOrder {
		if got[i].Bucket != b {
			t.Errorf("[%d] bucket = %s, want %s", i, got[i].Bucket, b)
		}
		if got[i].Count != 1 {
			t.Errorf("[%d] count = %d, want 1", i, got[i].Count)
		}
		if got[i].Percentage != 33 {
			t.Errorf("[%d] percentage = %d, want 33", i, got[i].Percentage)
		}
	}
	if got[2].TotalSize != 300 {
		t.Errorf("other TotalSize = %d, want 300", got[2].TotalSize)
	}
	if got[0].Label != "Images" || got[0].Icon == "" {
		t.Errorf("image presentation missing: %+v", got[0])
	}
}

func TestCategoryStats_TiesFollowTaxonomyNotArrival(t *testing.T) {
	got := CategoryStats([]directory.ResourceItem{
		item("zip", 1), item("pdf", 1), item("mp3", 1), item("jpg", 1),
	})
	want := []Bucket{BucketImage, BucketDocument, BucketAudio, BucketArchive}
	if len(got) != len(want) {
		t.Fatalf("got %d buckets, want %d: %+v", len(got), len(want), got)
	}
	for i, b := range want {
		if got[i].Bucket != b {
			t.Errorf("[%d] bucket = %s, want %s", i, got[i].Bucket, b)
		}
	}
}

func TestCategoryStats_SortedByCountAndOmitsEmpty(t *testing.T) {
	got := CategoryStats([]directory.ResourceItem{
		item("zip", 1),
		item("mp3", 1), item("mp3", 1), item("MP3", 1),
		item("png", 1), item("gif", 1),
	})

	want := []struct {
		bucket Bucket
		count  int
		pct    int
	}{
		{BucketAudio, 3, 50},
		{BucketImage, 2, 33},
		{BucketArchive, 1, 17},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d buckets, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Bucket != w.bucket || got[i].Count != w.count || got[i].Percentage != w.pct {
			t.Errorf("[%d] = %+v, want %+v", i, got[i], w)
		}
	}
}

func TestCategoryStats_Empty(t *testing.T) {
	got := CategoryStats(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("CategoryStats(nil) = %#v, want empty non-nil slice", got)
	}
}

func TestCategoryStats_Idempotent(t *testing.T) {
	in := []directory.ResourceItem{item("doc", 5), item("wav", 7), item("tar", 9), item("doc", 1)}
	first := CategoryStats(in)
	second := CategoryStats(in)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("outputs differ:\n%+v\n%+v", first, second)
	}
}

func TestCategoryStats_CountAndPercentageInvariants(t *testing.T) {
	exts := []string{"jpg", "pdf", "mp4", "mp3", "zip", "xyz", "TXT", "heic"}
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		n := 1 + rng.Intn(60)
		in := make([]directory.ResourceItem, n)
		for i := range in {
			in[i] = item(exts[rng.Intn(len(exts))], int64(rng.Intn(1000)))
		}

		got := CategoryStats(in)
		k := len(got)
		sumCount, sumPct := 0, 0
		for _, s := range got {
			sumCount += s.Count
			sumPct += s.Percentage
		}
		if sumCount != n {
			t.Fatalf("round %d: counts sum to %d, want %d", round, sumCount, n)
		}
		if sumPct < 100-(k-1) || sumPct > 100+(k-1) {
			t.Fatalf("round %d: percentages sum to %d with %d buckets", round, sumPct, k)
		}
		for i := 1; i < k; i++ {
			if got[i].Count > got[i-1].Count {
				t.Fatalf("round %d: not sorted by count: %+v", round, got)
			}
		}
	}
}

func TestFileTypeStats(t *testing.T) {
	got := FileTypeStats([]directory.ResourceItem{
		item("JPG", 10), item("jpg", 5), item("pdf", 1), item("aaa", 2),
	})
	want := []FileTypeStat{
		{FileType: "jpg", Count: 2, TotalSize: 15},
		{FileType: "aaa", Count: 1, TotalSize: 2},
		{FileType: "pdf", Count: 1, TotalSize: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FileTypeStats = %+v, want %+v", got, want)
	}
}

func TestFileTypeStats_MatchesClassifyNormalization(t *testing.T) {
	in := []directory.ResourceItem{item(" jpg", 1), item(".JPG", 2), item("jpg ", 3)}
	got := FileTypeStats(in)
	want := []FileTypeStat{{FileType: "jpg", Count: 3, TotalSize: 6}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FileTypeStats = %+v, want %+v", got, want)
	}
	for _, it := range in {
		if Classify(it.FileType) != Classify(got[0].FileType) {
			t.Errorf("Classify(%q) disagrees with its extension row", it.FileType)
		}
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]directory.ResourceItem{item("jpg", 10), item("zip", 20)})
	if s.Files != 2 || s.TotalSize != 30 || s.Buckets != 2 {
		t.Errorf("Summarize = %+v", s)
	}
}

func TestCache(t *testing.T) {
	var c Cache
	a := []directory.ResourceItem{item("jpg", 1)}
	b := []directory.ResourceItem{item("pdf", 1), item("pdf", 1)}

	first := c.CategoryStats(a, 1)
	// Same version returns the cached value even if a different slice is passed.
	again := c.CategoryStats(b, 1)
	if !reflect.DeepEqual(first, again) {
		t.Error("expected cached stats for an unchanged version")
	}

	next := c.CategoryStats(b, 2)
	if next[0].Bucket != BucketDocument || next[0].Count != 2 {
		t.Errorf("expected recompute on new version, got %+v", next)
	}

	next[0].Count = 99
	if c.CategoryStats(b, 2)[0].Count != 2 {
		t.Error("cache leaked caller mutation")
	}
}

func ExampleCategoryStats() {
	for _, s := range CategoryStats([]directory.ResourceItem{item("jpg", 1), item("png", 1), item("pdf", 1), item("bin", 1)}) {
		fmt.Printf("%s %d %d%%\n", s.Bucket, s.Count, s.Percentage)
	}
	// Output:
	// image 2 50%
	// document 1 25%
	// other 1 25%
}
