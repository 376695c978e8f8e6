package util

import "testing"

func TestParseSize(t *testing.T) {
	const def = 5 << 20
	tests := []struct {
		input string
		want  int64
	}{
		{"10MB", 10 << 20},
		{"512KB", 512 << 10},
		{"2GB", 2 << 30},
		{"64MiB", 64 << 20},
		{"1024", 1024},
		{"  10MB  ", 10 << 20},
		{"10mb", 10 << 20},
		{"", def},
		{"invalid", def},
		{"-3MB", def},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			if got := ParseSize(tc.input, def); got != tc.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tc.input, got, tc.want)
			}
		})
	}
}
