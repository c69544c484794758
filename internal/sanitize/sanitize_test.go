package sanitize

import (
	"strings"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "passthrough clean name",
			input: "small-9",
			want:  "small-9",
		},
		{
			name:  "spaces become hyphens",
			input: "random ten nodes",
			want:  "random-ten-nodes",
		},
		{
			name:  "trim surrounding whitespace",
			input: "  er-60  ",
			want:  "er-60",
		},
		{
			name:  "collapse repeated separators",
			input: "a--b__c..d",
			want:  "a-b_c.d",
		},
		{
			name:  "mixed separator run keeps the first",
			input: "a-_.b",
			want:  "a-b",
		},
		{
			name:  "path traversal stripped",
			input: "../etc/passwd",
			want:  "etcpasswd",
		},
		{
			name:  "control characters stripped",
			input: "\x00ring\x07",
			want:  "ring",
		},
		{
			name:  "non-ascii dropped",
			input: "héllo",
			want:  "hllo",
		},
		{
			name:  "nothing usable",
			input: "!!!",
			want:  "",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "truncate to max length",
			input: strings.Repeat("a", 100),
			want:  strings.Repeat("a", MaxNameLength),
		},
		{
			name:  "no trailing separator after truncation",
			input: strings.Repeat("a", MaxNameLength-1) + "-b",
			want:  strings.Repeat("a", MaxNameLength-1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeName(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeName_Idempotent(t *testing.T) {
	inputs := []string{"random ten nodes", "a--b", "  x  ", "../up"}
	for _, in := range inputs {
		once := SanitizeName(in)
		if twice := SanitizeName(once); twice != once {
			t.Errorf("SanitizeName not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
