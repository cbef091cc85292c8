package catalog

import "testing"

func TestRemoveDiacritics(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Praha", "Praha"},
		{"Jiří", "Jiri"},
		{"café", "cafe"},
		{"São Paulo", "Sao Paulo"},
		{"Žluťoučký kůň", "Zlutoucky kun"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := RemoveDiacritics(tt.input)
			if result != tt.expected {
				t.Errorf("RemoveDiacritics(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeSearchTerm(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"New York", "new york"},
		{"Rio-de-Janeiro", "rio de janeiro"},
		{"  Ústí   nad Labem ", "usti nad labem"},
		{"MÜNCHEN", "munchen"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := NormalizeSearchTerm(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeSearchTerm(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
