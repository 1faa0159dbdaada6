package telegram

import (
	"strings"
	"testing"
)

func TestSplitTextShort(t *testing.T) {
	t.Parallel()
	got := splitText("hello", 100)
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("splitText = %v", got)
	}
}

func TestSplitTextPrefersNewline(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("x", 50) + "\n" + strings.Repeat("y", 50)
	got := splitText(text, 80)
	if len(got) != 2 {
		t.Fatalf("chunks = %d, want 2", len(got))
	}
	if got[0] != strings.Repeat("x", 50) {
		t.Fatalf("first chunk should end at the newline: %q", got[0])
	}
	if got[1] != strings.Repeat("y", 50) {
		t.Fatalf("second chunk = %q", got[1])
	}
}

func TestSplitTextHardLimit(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("a", 250)
	got := splitText(text, 100)
	if len(got) != 3 {
		t.Fatalf("chunks = %d, want 3", len(got))
	}
	for i, c := range got {
		if len(c) > 100 {
			t.Fatalf("chunk %d exceeds limit: %d runes", i, len(c))
		}
	}
	if strings.Join(got, "") != text {
		t.Fatal("chunks must reassemble to the input when no newlines are trimmed")
	}
}
