package geom

import "testing"

func TestRectSize(t *testing.T) {
	tests := []struct {
		name  string
		rect  Rect
		wantW float64
		wantH float64
	}{
		{"positive", Rect{Left: 10, Right: 50, Top: 20, Bottom: 80}, 40, 60},
		{"zero", Rect{Left: 10, Right: 10, Top: 5, Bottom: 5}, 0, 0},
		{"from center", RectFromCenter(Point{0, 0}, 100, 30), 100, 30},
		{"xywh", RectXYWH(5, 5, 10, 20), 10, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rect.Width(); got != tt.wantW {
				t.Errorf("Width() = %v, want %v", got, tt.wantW)
			}
			if got := tt.rect.Height(); got != tt.wantH {
				t.Errorf("Height() = %v, want %v", got, tt.wantH)
			}
		})
	}
}

func TestRectCenter(t *testing.T) {
	r := Rect{Left: 0, Right: 100, Top: 20, Bottom: 60}
	if got := r.Center(); got != (Point{50, 40}) {
		t.Errorf("Center() = %v, want {50 40}", got)
	}
}

func TestRectIntersects(t *testing.T) {
	base := Rect{Left: 0, Right: 10, Top: 0, Bottom: 10}
	tests := []struct {
		name  string
		other Rect
		want  bool
	}{
		{"overlap", Rect{Left: 5, Right: 15, Top: 5, Bottom: 15}, true},
		{"inside", Rect{Left: 2, Right: 3, Top: 2, Bottom: 3}, true},
		{"touching edge", Rect{Left: 10, Right: 20, Top: 0, Bottom: 10}, true},
		{"disjoint x", Rect{Left: 11, Right: 20, Top: 0, Bottom: 10}, false},
		{"disjoint y", Rect{Left: 0, Right: 10, Top: -20, Bottom: -1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Intersects(tt.other); got != tt.want {
				t.Errorf("Intersects() = %v, want %v", got, tt.want)
			}
			if got := tt.other.Intersects(base); got != tt.want {
				t.Errorf("Intersects() symmetric = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBounds(t *testing.T) {
	if _, ok := Bounds(nil); ok {
		t.Error("Bounds(nil) should report false")
	}
	got, ok := Bounds([]Rect{
		{Left: 0, Right: 1, Top: 0, Bottom: 1},
		{Left: -5, Right: 2, Top: 3, Bottom: 9},
	})
	want := Rect{Left: -5, Right: 2, Top: 0, Bottom: 9}
	if !ok || got != want {
		t.Errorf("Bounds() = %v, %v, want %v, true", got, ok, want)
	}
}

func TestInsetAndTranslate(t *testing.T) {
	r := Rect{Left: 0, Right: 10, Top: 0, Bottom: 10}
	if got := r.Inset(2); got != (Rect{Left: -2, Right: 12, Top: -2, Bottom: 12}) {
		t.Errorf("Inset(2) = %v", got)
	}
	if got := r.Translate(5, -5); got != (Rect{Left: 5, Right: 15, Top: -5, Bottom: 5}) {
		t.Errorf("Translate(5,-5) = %v", got)
	}
	if !r.Contains(Point{10, 10}) || r.Contains(Point{10.1, 0}) {
		t.Error("Contains() boundary handling wrong")
	}
}
