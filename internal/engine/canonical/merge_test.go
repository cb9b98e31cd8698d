package canonical_test

import (
	"testing"

	"github.com/fortuna/oddspipeline/internal/engine/canonical"
	"github.com/fortuna/oddspipeline/pkg/models"
)

func TestMergeX12AppendAndReplace(t *testing.T) {
	entries := []models.X12Entry{}
	entries = canonical.MergeX12(entries, models.X12Entry{T: 100, X12: &[3]int32{1, 2, 3}})
	entries = canonical.MergeX12(entries, models.X12Entry{T: 50, X12: &[3]int32{4, 5, 6}})
	if len(entries) != 2 || entries[0].T != 50 || entries[1].T != 100 {
		t.Fatalf("expected sorted by t, got %+v", entries)
	}

	entries = canonical.MergeX12(entries, models.X12Entry{T: 50, X12: &[3]int32{9, 9, 9}})
	if len(entries) != 2 {
		t.Fatalf("replace-by-t should not grow the slice, got %d entries", len(entries))
	}
	if *entries[0].X12 != [3]int32{9, 9, 9} {
		t.Fatalf("expected in-place replace, got %+v", entries[0])
	}
}

func TestMergePinnacleX12SkipsNoOp(t *testing.T) {
	entries := []models.X12Entry{{T: 1, X12: &[3]int32{100, 200, 300}}}
	entries = canonical.MergePinnacleX12(entries, models.X12Entry{T: 2, X12: &[3]int32{100, 200, 300}})
	if len(entries) != 1 {
		t.Fatalf("expected no-op entry skipped, got %d entries", len(entries))
	}

	entries = canonical.MergePinnacleX12(entries, models.X12Entry{T: 3, X12: &[3]int32{101, 200, 300}})
	if len(entries) != 2 {
		t.Fatalf("expected changed entry appended, got %d entries", len(entries))
	}
}

func TestZeroAHPreservesLineCount(t *testing.T) {
	entry := canonical.ZeroAH(100, 3)
	if len(entry.AHH) != 3 || len(entry.AHA) != 3 {
		t.Fatalf("expected 3-length zero vectors, got %+v", entry)
	}
	for _, v := range entry.AHH {
		if v != 0 {
			t.Fatalf("expected all-zero, got %+v", entry.AHH)
		}
	}
}
