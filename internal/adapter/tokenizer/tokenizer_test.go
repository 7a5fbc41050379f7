package tokenizer

import "testing"

func TestWordsCount(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"hello", 1},
		{"hello streaming world", 3},
		{"  spaced   out  ", 2},
	}
	for _, tt := range tests {
		if got := (Words{}).Count(tt.text); got != tt.want {
			t.Errorf("Count(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
