package sources

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestRegistry(t *testing.T, configFile string) *Registry {
	t.Helper()

	limiter := NewRateLimiter(time.Second, 2, time.Second)
	registry, err := NewRegistry(configFile, http.DefaultClient, "TopicRadar/1.0", limiter)
	if err != nil {
		t.Fatalf("Expected registry to build, got %v", err)
	}
	return registry
}

func TestRegistry_Defaults(t *testing.T) {
	registry := newTestRegistry(t, "")

	if registry.GetSourceCount() != 6 {
		t.Errorf("Expected 6 registered sources, got %d", registry.GetSourceCount())
	}

	enabled := registry.EnabledKinds()
	expected := []string{"news", "reddit", "twitter", "youtube"}
	if len(enabled) != len(expected) {
		t.Fatalf("Expected %d enabled sources, got %d: %v", len(expected), len(enabled), enabled)
	}
	for i, kind := range expected {
		if enabled[i] != kind {
			t.Errorf("Expected enabled source %q at position %d, got %q", kind, i, enabled[i])
		}
	}

	if registry.IsEnabled("facebook") {
		t.Errorf("Expected facebook to be disabled by default")
	}
}

func TestRegistry_AdapterLookup(t *testing.T) {
	registry := newTestRegistry(t, "")

	adapter, err := registry.Adapter("news")
	if err != nil {
		t.Fatalf("Expected news adapter, got %v", err)
	}
	if adapter.Kind() != "news" {
		t.Errorf("Expected kind 'news', got %q", adapter.Kind())
	}

	_, err = registry.Adapter("myspace")
	if err == nil {
		t.Errorf("Expected error for unknown source")
	}
}

func TestRegistry_FileOverrides(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "sources.yml")
	content := `sources:
  facebook:
    enabled: true
  news:
    enabled: false
  reddit:
    max_items: 3
    chain: [duckduckgo]
`
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	registry := newTestRegistry(t, configFile)

	if !registry.IsEnabled("facebook") {
		t.Errorf("Expected facebook to be enabled by override")
	}
	if registry.IsEnabled("news") {
		t.Errorf("Expected news to be disabled by override")
	}

	adapter, err := registry.Adapter("reddit")
	if err != nil {
		t.Fatalf("Expected reddit adapter, got %v", err)
	}
	chain, ok := adapter.(*ChainAdapter)
	if !ok {
		t.Fatalf("Expected chain adapter")
	}
	if chain.maxItems != 3 {
		t.Errorf("Expected overridden item cap 3, got %d", chain.maxItems)
	}
	if len(chain.strategies) != 1 || chain.strategies[0].Name() != "duckduckgo:reddit.com" {
		t.Errorf("Expected single site-scoped duckduckgo strategy, got %v", chain.strategies)
	}
}

func TestRegistry_InvalidStrategy(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "sources.yml")
	content := `sources:
  news:
    chain: [carrier_pigeon]
`
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	limiter := NewRateLimiter(time.Second, 2, time.Second)
	_, err := NewRegistry(configFile, http.DefaultClient, "TopicRadar/1.0", limiter)
	if err == nil {
		t.Errorf("Expected error for unknown strategy name")
	}
}
