package ui

import (
	"strings"
	"testing"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name       string
		fraction   float64
		width      int
		wantFilled int
		wantPct    string
	}{
		{"empty", 0, 10, 0, "0%"},
		{"half", 0.5, 10, 5, "50%"},
		{"full", 1, 10, 10, "100%"},
		{"clamped low", -0.3, 10, 0, "0%"},
		{"clamped high", 1.7, 10, 10, "100%"},
		{"tiny width floors at 3", 1, 1, 3, "100%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := ProgressBar(tt.fraction, tt.width)
			if got := strings.Count(bar, "█"); got != tt.wantFilled {
				t.Errorf("filled cells = %d, want %d (%q)", got, tt.wantFilled, bar)
			}
			if !strings.Contains(bar, tt.wantPct) {
				t.Errorf("bar %q missing %q", bar, tt.wantPct)
			}
		})
	}
}

func TestProgressBarWidth(t *testing.T) {
	bar := ProgressBar(0.5, 20)
	cells := strings.Count(bar, "█") + strings.Count(bar, "░")
	if cells != 20 {
		t.Errorf("bar width = %d, want 20", cells)
	}
}
