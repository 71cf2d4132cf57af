package tui

import "testing"

func TestTabAtXMatchesTabWidths(t *testing.T) {
	names := []string{"Overview", "Split", "Timeline", "Payments", "Triage"}

	for active := range names {
		a := App{activeTab: active}
		pos := 0

		for i, name := range names {
			w := len(name) + 2 // horizontal padding in tab renderer
			x := pos + w/2
			if got := a.tabAtX(x); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, x, got, i)
			}
			pos += w
			if i < len(names)-1 {
				if got := a.tabAtX(pos); got != -1 {
					t.Fatalf("active=%d separator x=%d -> tab=%d, want -1", active, pos, got)
				}
				pos++
			}
		}
		if got := a.tabAtX(pos + 5); got != -1 {
			t.Fatalf("active=%d past last tab -> %d, want -1", active, got)
		}
	}
}

func TestScrollWindow(t *testing.T) {
	tests := []struct {
		n, h, offset int
		from, to     int
	}{
		{n: 3, h: 10, offset: 5, from: 0, to: 3},
		{n: 20, h: 5, offset: 0, from: 0, to: 5},
		{n: 20, h: 5, offset: 7, from: 7, to: 12},
		{n: 20, h: 5, offset: 40, from: 15, to: 20},
		{n: 20, h: 5, offset: -3, from: 0, to: 5},
	}
	for _, tt := range tests {
		from, to := scrollWindow(tt.n, tt.h, tt.offset)
		if from != tt.from || to != tt.to {
			t.Fatalf("scrollWindow(%d, %d, %d) = %d,%d, want %d,%d", tt.n, tt.h, tt.offset, from, to, tt.from, tt.to)
		}
	}
}
