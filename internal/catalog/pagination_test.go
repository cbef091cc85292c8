package catalog

import "testing"

func TestPaginate(t *testing.T) {
	tests := []struct {
		name        string
		items       []int
		take        int
		wantLen     int
		wantHasNext bool
	}{
		{"empty result", nil, 10, 0, false},
		{"under take", []int{1, 2, 3}, 10, 3, false},
		{"exactly take", []int{1, 2, 3}, 3, 3, false},
		{"over-fetched one extra", []int{1, 2, 3, 4}, 3, 3, true},
		{"take one", []int{1, 2}, 1, 1, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			page := Paginate(tc.items, tc.take)
			if len(page.Items) != tc.wantLen {
				t.Errorf("len(Items) = %d; want %d", len(page.Items), tc.wantLen)
			}
			if page.HasNextPage != tc.wantHasNext {
				t.Errorf("HasNextPage = %v; want %v", page.HasNextPage, tc.wantHasNext)
			}
		})
	}
}

func TestPaginateTruncatesExtraRow(t *testing.T) {
	page := Paginate([]string{"a", "b", "c"}, 2)
	if !page.HasNextPage {
		t.Fatal("expected HasNextPage")
	}
	if page.Items[0] != "a" || page.Items[1] != "b" {
		t.Errorf("unexpected items %v", page.Items)
	}
}
