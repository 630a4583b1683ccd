package sources

import (
	"testing"
)

func TestResolveResultURL(t *testing.T) {
	cases := []struct {
		href     string
		expected string
	}{
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpost&rut=abc", "https://example.com/post"},
		{"https://example.com/direct", "https://example.com/direct"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := resolveResultURL(tc.href); got != tc.expected {
			t.Errorf("resolveResultURL(%q): expected %q, got %q", tc.href, tc.expected, got)
		}
	}
}

func TestDuckDuckGoStrategy_Name(t *testing.T) {
	scoped := NewDuckDuckGoStrategy(nil, "TopicRadar/1.0", "reddit.com")
	if scoped.Name() != "duckduckgo:reddit.com" {
		t.Errorf("Expected scoped name, got %q", scoped.Name())
	}

	plain := NewDuckDuckGoStrategy(nil, "TopicRadar/1.0", "")
	if plain.Name() != "duckduckgo" {
		t.Errorf("Expected plain name, got %q", plain.Name())
	}
}
