package keyword_test

import (
	"slices"
	"testing"

	"github.com/sayboard/sayboard/pkg/keyword"
)

func TestMatchExact(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		keywords []string
		want     string
		wantOK   bool
	}{
		{"substring hit", "olá lucas", []string{"lucas"}, "lucas", true},
		{"case folded", "Olá LUCAS tudo bem", []string{"lucas"}, "lucas", true},
		{"empty text", "", []string{"lucas"}, "", false},
		{"no hit", "bom dia", []string{"lucas"}, "", false},
		{"list order wins over position", "lucas falou oi", []string{"oi", "lucas"}, "oi", true},
		{"embedded substring", "olha o lucasfilm", []string{"lucas"}, "lucas", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := keyword.MatchExact(tt.text, tt.keywords)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("MatchExact(%q, %v) = (%q, %v), want (%q, %v)",
					tt.text, tt.keywords, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestMatchFuzzy(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		keywords []string
		want     string
		wantOK   bool
	}{
		{"exact still matches", "olá lucas", []string{"lucas"}, "lucas", true},
		{"one-edit typo", "olá lukas", []string{"lucas"}, "lucas", true},
		{"distant word no match", "banana", []string{"lucas"}, "", false},
		{"short keyword never fuzzy", "oli", []string{"oi"}, "", false},
		{"short keyword exact only", "oi pessoal", []string{"oi"}, "oi", true},
		{"empty text", "", []string{"lucas"}, "", false},
		{"fuzzy on token not phrase", "bem lukas obrigado", []string{"lucas"}, "lucas", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := keyword.Match(tt.text, tt.keywords)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Match(%q, %v) = (%q, %v), want (%q, %v)",
					tt.text, tt.keywords, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	got := keyword.Normalize([]string{"Lucas", "OI", "lucas", " olá ", "", "oi"})
	want := []string{"lucas", "oi", "olá"}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
