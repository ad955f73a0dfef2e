package util

import "testing"

func TestFindFirst(t *testing.T) {
	filenames := []string{"boo.mp3", "hiss.ogg", "boo.wav", "hiss.ogg"}

	tests := []struct {
		name      string
		slice     []string
		predicate func(string) bool
		want      string
		found     bool
	}{
		{
			name:      "returns the earliest match",
			slice:     filenames,
			predicate: func(f string) bool { return f == "hiss.ogg" },
			want:      "hiss.ogg",
			found:     true,
		},
		{
			name:      "prefix match",
			slice:     filenames,
			predicate: func(f string) bool { return len(f) > 3 && f[:3] == "boo" },
			want:      "boo.mp3",
			found:     true,
		},
		{
			name:      "comparison is case sensitive",
			slice:     filenames,
			predicate: func(f string) bool { return f == "BOO.mp3" },
		},
		{
			name:      "nil slice",
			predicate: func(string) bool { return true },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := FindFirst(tt.slice, tt.predicate)
			if got != tt.want || found != tt.found {
				t.Errorf("FindFirst() = (%q, %v), want (%q, %v)", got, found, tt.want, tt.found)
			}
		})
	}
}
