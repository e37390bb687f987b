package indexer

import (
	"testing"

	"catalog-assistant/internal/catalog"
)

func TestComputeTokenStats(t *testing.T) {
	tests := []struct {
		name        string
		tokenCounts []int
		want        TokenStats
	}{
		{
			name:        "empty",
			tokenCounts: []int{},
			want:        TokenStats{},
		},
		{
			name:        "single value",
			tokenCounts: []int{10},
			want: TokenStats{
				Min:  10,
				Max:  10,
				Mean: 10.0,
				P95:  10,
			},
		},
		{
			name:        "multiple values",
			tokenCounts: []int{5, 10, 15, 20, 25},
			want: TokenStats{
				Min:  5,
				Max:  25,
				Mean: 15.0,
				P95:  25, // 95th percentile of 5 values = index 4 (0-indexed) = 25
			},
		},
		{
			name:        "unsorted values",
			tokenCounts: []int{30, 5, 20, 10, 15},
			want: TokenStats{
				Min:  5,
				Max:  30,
				Mean: 16.0, // (30+5+20+10+15)/5 = 16
				P95:  30,
			},
		},
		{
			name:        "many values for p95",
			tokenCounts: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20},
			want: TokenStats{
				Min:  1,
				Max:  20,
				Mean: 10.5,
				P95:  20, // 95th percentile of 20 values = index 19 = 20
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeTokenStats(tt.tokenCounts)
			if got.Min != tt.want.Min {
				t.Errorf("Min = %d, want %d", got.Min, tt.want.Min)
			}
			if got.Max != tt.want.Max {
				t.Errorf("Max = %d, want %d", got.Max, tt.want.Max)
			}
			if got.Mean != tt.want.Mean {
				t.Errorf("Mean = %f, want %f", got.Mean, tt.want.Mean)
			}
			if got.P95 != tt.want.P95 {
				t.Errorf("P95 = %d, want %d", got.P95, tt.want.P95)
			}
		})
	}
}

func TestSearchTextStats(t *testing.T) {
	records := []catalog.ProductRecord{
		{SearchText: ""},
		{SearchText: "floor cleaner"},
		{SearchText: "फ़िनाइल फ्लोर क्लीनर"},
	}
	got := searchTextStats(records)
	if got.Min != 1 {
		t.Errorf("Min = %d, want 1 for an empty text", got.Min)
	}
	if got.Max < 3 {
		t.Errorf("Max = %d, want runes counted rather than bytes", got.Max)
	}
	if empty := searchTextStats(nil); empty != (TokenStats{}) {
		t.Errorf("searchTextStats(nil) = %+v", empty)
	}
}

func TestIndexVersion(t *testing.T) {
	a := indexVersion("nomic-embed", 768)
	if len(a) != 16 {
		t.Fatalf("indexVersion() length = %d, want 16", len(a))
	}
	if a != indexVersion("nomic-embed", 768) {
		t.Error("indexVersion() should be deterministic")
	}
	if a == indexVersion("nomic-embed", 384) || a == indexVersion("other", 768) {
		t.Error("indexVersion() should change with model and dimension")
	}
}

func TestCountRawProducts(t *testing.T) {
	raw := catalog.RawCatalog{Categories: []catalog.RawCategory{
		{Key: "a", Value: map[string]any{"products": []any{1, 2}}},
		{Key: "b", Value: map[string]any{"products": "not a list"}},
		{Key: "c", Value: "not an object"},
		{Key: "d", Value: map[string]any{"products": []any{map[string]any{}}}},
	}}
	if got := countRawProducts(raw); got != 3 {
		t.Errorf("countRawProducts() = %d, want 3", got)
	}
}
