package util

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeError(t *testing.T) {
	long := strings.Repeat("a", 600)
	msg := SanitizeError(errors.New("bad\n" + long + "\r\nend"))

	if strings.Contains(msg, "\n") || strings.Contains(msg, "\r") {
		t.Fatalf("expected newlines to be stripped, got %q", msg)
	}
	if len(msg) != 500 {
		t.Fatalf("expected length 500, got %d", len(msg))
	}
	if SanitizeError(nil) != "" {
		t.Fatalf("expected empty string for nil error")
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short", in: "crash", n: 50, want: "crash"},
		{name: "exact", in: "abc", n: 3, want: "abc"},
		{name: "long", in: "abcdef", n: 3, want: "abc..."},
		{name: "runes", in: "ñandú rojo", n: 5, want: "ñandú..."},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := Preview(tt.in, tt.n); got != tt.want {
				t.Fatalf("Preview(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
		})
	}
}
