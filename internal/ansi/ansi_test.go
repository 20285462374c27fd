package ansi

import "testing"

func TestStrip(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{Red + Bold + "error: " + Reset + "boom", "error: boom"},
		{"\033[1;31mx\033[0m", "x"},
	}
	for _, tt := range tests {
		if got := Strip(tt.in); got != tt.want {
			t.Errorf("Strip(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
