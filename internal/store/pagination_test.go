package store

import (
	"errors"
	"testing"
	"time"
)

func TestCursorRoundTrip(t *testing.T) {
	want := OrderCursor{OrderDate: time.Date(2026, 5, 4, 3, 2, 1, 123456000, time.UTC), ID: 42}

	got, err := DecodeCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("Decode cursor: %v", err)
	}
	if !got.OrderDate.Equal(want.OrderDate) || got.ID != want.ID {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestDecodeCursor(t *testing.T) {
	start, err := DecodeCursor("")
	if err != nil {
		t.Fatalf("Decode empty cursor: %v", err)
	}
	if start != startCursor {
		t.Errorf("Expected start cursor, got %+v", start)
	}

	for _, bad := range []string{"%%%", "bm90LWpzb24="} {
		if _, err := DecodeCursor(bad); !errors.Is(err, ErrInvalidCursor) {
			t.Errorf("DecodeCursor(%q): expected ErrInvalidCursor, got %v", bad, err)
		}
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultPageSize},
		{-5, DefaultPageSize},
		{1, 1},
		{MaxPageSize, MaxPageSize},
		{MaxPageSize + 1, MaxPageSize},
	}

	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
