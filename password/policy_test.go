package password

import (
	"errors"
	"testing"
)

func TestCheckPolicy(t *testing.T) {
	tests := []struct {
		pw   string
		want string
	}{
		{"Ab1#", "Password must be at least 6 characters"},
		{"Abcdef#", "Password must contain at least one number"},
		{"ABCDE1#", "Password must contain at least one lowercase letter"},
		{"abcde1#", "Password must contain at least one uppercase letter"},
		{"Abcde12", "Password must contain at least one special character"},
		{"Abcde1_", "Password must contain at least one special character"},
		{"Abcde1-", ""},
		{"Voyage#2024", ""},
	}

	for _, tt := range tests {
		err := CheckPolicy(tt.pw)
		if tt.want == "" {
			if err != nil {
				t.Fatalf("CheckPolicy(%q) unexpected error: %v", tt.pw, err)
			}
			continue
		}
		if !errors.Is(err, ErrPolicy) {
			t.Fatalf("CheckPolicy(%q) expected ErrPolicy, got %v", tt.pw, err)
		}
		if got := PolicyMessage(err); got != tt.want {
			t.Fatalf("CheckPolicy(%q) message = %q, want %q", tt.pw, got, tt.want)
		}
	}
}

func TestCheckPolicyCountsRunes(t *testing.T) {
	// Five runes, more than six bytes.
	if err := CheckPolicy("Éé1#A"); !errors.Is(err, ErrPolicy) {
		t.Fatalf("expected short multi-byte password to fail, got %v", err)
	}
}
