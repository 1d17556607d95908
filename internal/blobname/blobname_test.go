package blobname

import (
	"strings"
	"testing"
)

func TestNameFormat(t *testing.T) {
	tests := []struct {
		k    uint64
		want string
	}{
		{0, "0\n"},
		{42, "42\n"},
		{1000000, "1000000\n"},
	}

	for _, tt := range tests {
		if got := Name(tt.k); got != tt.want {
			t.Fatalf("Name(%d) = %q, want %q", tt.k, got, tt.want)
		}
	}
}

func TestNameStableAcrossCalls(t *testing.T) {
	if Name(77) != Name(77) {
		t.Fatal("Name must be a pure function of k")
	}
}

func TestNameNeverExceedsFieldWidth(t *testing.T) {
	for _, k := range []uint64{0, 9, 99999999, 1 << 40} {
		if got := Name(k); len(got) > FieldWidth {
			t.Fatalf("Name(%d) = %q has length %d, want <= %d", k, got, len(got), FieldWidth)
		}
	}
}

func TestNameEndsInNewlineWhenNotTruncated(t *testing.T) {
	got := Name(12345)
	if !strings.HasSuffix(got, "\n") {
		t.Fatalf("Name(12345) = %q, want trailing newline", got)
	}
}
