package sources

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	defaultPlatformCap = 8
	defaultNewsCap     = 20
)

type sourceSpec struct {
	Enabled  *bool    `yaml:"enabled"`
	MaxItems int      `yaml:"max_items"`
	Chain    []string `yaml:"chain"`
	Site     string   `yaml:"site"`
}

type sourcesFile struct {
	Sources map[string]sourceSpec `yaml:"sources"`
}

// Registry builds and caches one chain adapter per source kind. The
// built-in table covers the known kinds; an optional YAML file can
// enable, disable or reorder chains per kind.
type Registry struct {
	httpClient *http.Client
	userAgent  string
	limiter    *RateLimiter

	mu       sync.RWMutex
	adapters map[string]Adapter
	enabled  map[string]bool
}

func NewRegistry(configFile string, httpClient *http.Client, userAgent string, limiter *RateLimiter) (*Registry, error) {
	r := &Registry{
		httpClient: httpClient,
		userAgent:  userAgent,
		limiter:    limiter,
		adapters:   make(map[string]Adapter),
		enabled:    make(map[string]bool),
	}

	specs := defaultSourceSpecs()

	if configFile != "" {
		overrides, err := loadSourcesFile(configFile)
		if err != nil {
			return nil, err
		}
		for kind, override := range overrides {
			spec, ok := specs[kind]
			if !ok {
				spec = sourceSpec{}
			}
			if override.Enabled != nil {
				spec.Enabled = override.Enabled
			}
			if override.MaxItems > 0 {
				spec.MaxItems = override.MaxItems
			}
			if len(override.Chain) > 0 {
				spec.Chain = override.Chain
			}
			if override.Site != "" {
				spec.Site = override.Site
			}
			specs[kind] = spec
		}
	}

	for kind, spec := range specs {
		adapter, err := r.buildAdapter(kind, spec)
		if err != nil {
			return nil, fmt.Errorf("invalid source %q: %w", kind, err)
		}
		r.adapters[kind] = adapter
		r.enabled[kind] = spec.Enabled == nil || *spec.Enabled

		slog.Debug("Source registered", "source", kind,
			"enabled", r.enabled[kind], "chain", spec.Chain, "max_items", spec.MaxItems)
	}

	return r, nil
}

func (r *Registry) Adapter(kind string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", kind)
	}
	return adapter, nil
}

func (r *Registry) IsEnabled(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled[kind]
}

// EnabledKinds returns enabled source kinds in stable order.
func (r *Registry) EnabledKinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.adapters))
	for kind := range r.adapters {
		if r.enabled[kind] {
			kinds = append(kinds, kind)
		}
	}
	sort.Strings(kinds)
	return kinds
}

func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.adapters))
	for kind := range r.adapters {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func (r *Registry) GetSourceCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}

func (r *Registry) buildAdapter(kind string, spec sourceSpec) (Adapter, error) {
	if len(spec.Chain) == 0 {
		return nil, fmt.Errorf("chain is empty")
	}

	maxItems := spec.MaxItems
	if maxItems <= 0 {
		maxItems = defaultPlatformCap
	}

	strategies := make([]Strategy, 0, len(spec.Chain))
	for _, name := range spec.Chain {
		strategy, err := r.buildStrategy(name, spec.Site)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, strategy)
	}

	return NewChainAdapter(kind, strategies, r.limiter, maxItems), nil
}

func (r *Registry) buildStrategy(name string, site string) (Strategy, error) {
	switch name {
	case "google_news":
		return NewGoogleNewsStrategy(r.httpClient, r.userAgent, site), nil
	case "bing_news":
		return NewBingNewsStrategy(r.httpClient, r.userAgent), nil
	case "youtube_feed":
		return NewYouTubeStrategy(r.httpClient, r.userAgent), nil
	case "duckduckgo":
		return NewDuckDuckGoStrategy(r.httpClient, r.userAgent, site), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

func loadSourcesFile(configFile string) (map[string]sourceSpec, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var parsed sourcesFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return parsed.Sources, nil
}

func defaultSourceSpecs() map[string]sourceSpec {
	enabled := true
	disabled := false

	return map[string]sourceSpec{
		"news": {
			Enabled:  &enabled,
			MaxItems: defaultNewsCap,
			Chain:    []string{"google_news", "bing_news"},
		},
		"reddit": {
			Enabled:  &enabled,
			MaxItems: defaultPlatformCap,
			Chain:    []string{"google_news", "duckduckgo"},
			Site:     "reddit.com",
		},
		"youtube": {
			Enabled:  &enabled,
			MaxItems: defaultPlatformCap,
			Chain:    []string{"youtube_feed", "duckduckgo"},
			Site:     "youtube.com",
		},
		"twitter": {
			Enabled:  &enabled,
			MaxItems: defaultPlatformCap,
			Chain:    []string{"google_news", "duckduckgo"},
			Site:     "x.com",
		},
		"facebook": {
			Enabled:  &disabled,
			MaxItems: defaultPlatformCap,
			Chain:    []string{"duckduckgo"},
			Site:     "facebook.com",
		},
		"instagram": {
			Enabled:  &disabled,
			MaxItems: defaultPlatformCap,
			Chain:    []string{"duckduckgo"},
			Site:     "instagram.com",
		},
	}
}
