package ladder_test

import (
	"errors"
	"reflect"
	"testing"

	"foreverstream/internal/ladder"
)

func heights(renditions []ladder.Rendition) []int {
	out := make([]int, 0, len(renditions))
	for _, r := range renditions {
		out = append(out, r.Height)
	}
	return out
}

func TestComputeScenarios(t *testing.T) {
	cases := []struct {
		name   string
		width  int
		height int
		want   []int
	}{
		{"full hd", 1920, 1080, []int{1080, 720, 480}},
		{"tiny forces lowest", 640, 360, []int{480}},
		{"uhd", 3840, 2160, []int{2160, 1440, 1080, 720, 480}},
		{"portrait", 1080, 1920, []int{480}},
		{"just under 720p", 1279, 720, []int{480}},
		{"exact 480p", 854, 480, []int{480}},
		{"wide 1440p", 3440, 1440, []int{1440, 1080, 720, 480}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ladder.Compute(tc.width, tc.height)
			if err != nil {
				t.Fatalf("Compute returned error: %v", err)
			}
			if !reflect.DeepEqual(heights(got), tc.want) {
				t.Fatalf("unexpected ladder: got %v want %v", heights(got), tc.want)
			}
		})
	}
}

func TestComputeRejectsInvalidDimensions(t *testing.T) {
	for _, dims := range [][2]int{{0, 1080}, {1920, 0}, {-1, 720}, {1280, -5}, {0, 0}} {
		if _, err := ladder.Compute(dims[0], dims[1]); !errors.Is(err, ladder.ErrInvalidDimensions) {
			t.Fatalf("Compute(%d, %d): expected ErrInvalidDimensions, got %v", dims[0], dims[1], err)
		}
	}
}

func TestComputeProperties(t *testing.T) {
	lowest := ladder.Lowest()
	for width := 1; width <= 4000; width += 137 {
		for height := 1; height <= 2400; height += 89 {
			got, err := ladder.Compute(width, height)
			if err != nil {
				t.Fatalf("Compute(%d, %d): %v", width, height, err)
			}
			if len(got) == 0 {
				t.Fatalf("Compute(%d, %d): empty ladder", width, height)
			}
			seen := map[int]bool{}
			for i, r := range got {
				if seen[r.Height] {
					t.Fatalf("Compute(%d, %d): duplicate height %d", width, height, r.Height)
				}
				seen[r.Height] = true
				if i > 0 && got[i-1].Height <= r.Height {
					t.Fatalf("Compute(%d, %d): not strictly descending: %v", width, height, heights(got))
				}
			}
			if !seen[lowest.Height] {
				t.Fatalf("Compute(%d, %d): missing lowest rung", width, height)
			}
			again, _ := ladder.Compute(width, height)
			if !reflect.DeepEqual(got, again) {
				t.Fatalf("Compute(%d, %d): not deterministic", width, height)
			}
		}
	}
}

func TestComputeReturnsIndependentSlices(t *testing.T) {
	first, _ := ladder.Compute(1920, 1080)
	first[0].Bitrate = 1
	second, _ := ladder.Compute(1920, 1080)
	if second[0].Bitrate == 1 {
		t.Fatal("expected Compute to return a fresh slice")
	}
	catalog := ladder.Catalog()
	catalog[0].Height = 1
	if ladder.Catalog()[0].Height != 2160 {
		t.Fatal("expected Catalog to return a copy")
	}
}

func TestParseDimensions(t *testing.T) {
	w, h, err := ladder.ParseDimensions(" 1920x1080 ")
	if err != nil || w != 1920 || h != 1080 {
		t.Fatalf("unexpected parse: %d %d %v", w, h, err)
	}
	for _, bad := range []string{"", "1920", "x1080", "0x10", "axb", "1920x-1"} {
		if _, _, err := ladder.ParseDimensions(bad); !errors.Is(err, ladder.ErrInvalidDimensions) {
			t.Fatalf("ParseDimensions(%q): expected ErrInvalidDimensions, got %v", bad, err)
		}
	}
	if got := ladder.FormatDimensions(1280, 720); got != "1280x720" {
		t.Fatalf("unexpected format: %q", got)
	}
}
