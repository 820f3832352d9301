package password

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name       string
		length     int
		wantLength int
		wantErr    bool
	}{
		{
			name:       "default length when zero",
			length:     0,
			wantLength: DefaultLength,
		},
		{
			name:       "default length when negative",
			length:     -5,
			wantLength: DefaultLength,
		},
		{
			name:       "minimum length",
			length:     4,
			wantLength: 4,
		},
		{
			name:       "explicit length",
			length:     24,
			wantLength: 24,
		},
		{
			name:    "below minimum rejected",
			length:  3,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Generate(tt.length)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Generate() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Generate() unexpected error: %v", err)
			}
			if len(got) != tt.wantLength {
				t.Errorf("len = %d, want %d", len(got), tt.wantLength)
			}
		})
	}
}

func TestGenerate_Composition(t *testing.T) {
	// The composition policy must hold on every generation, not just most.
	for i := 0; i < 50; i++ {
		got, err := Generate(16)
		if err != nil {
			t.Fatalf("Generate() unexpected error: %v", err)
		}

		if !strings.ContainsAny(got, upperChars) {
			t.Errorf("password %q missing uppercase", got)
		}
		if !strings.ContainsAny(got, lowerChars) {
			t.Errorf("password %q missing lowercase", got)
		}
		if !strings.ContainsAny(got, digitChars) {
			t.Errorf("password %q missing digit", got)
		}
		if !strings.ContainsAny(got, symbolChars) {
			t.Errorf("password %q missing symbol", got)
		}
	}
}

func TestStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     string
	}{
		{"long with all classes", "Aa1!Aa1!Aa1!Aa1!", "Strong"},
		{"medium with three classes", "Abcdef12", "Fair"},
		{"short", "Aa1!", "Weak"},
		{"single class", "abcdefghijkl", "Weak"},
		{"empty", "", "Weak"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Strength(tt.password); got != tt.want {
				t.Errorf("Strength(%q) = %q, want %q", tt.password, got, tt.want)
			}
		})
	}
}

func TestGenerate_NotAnchored(t *testing.T) {
	// With the shuffle in place the first character should not always come
	// from the uppercase class. Probability of 40 straight uppercase-first
	// passwords by chance is (26/82)^40, effectively zero.
	allUpperFirst := true
	for i := 0; i < 40; i++ {
		got, err := Generate(16)
		if err != nil {
			t.Fatalf("Generate() unexpected error: %v", err)
		}
		if !strings.ContainsAny(got[:1], upperChars) {
			allUpperFirst = false
			break
		}
	}
	if allUpperFirst {
		t.Error("first character was uppercase in every sample; required characters appear anchored")
	}
}
