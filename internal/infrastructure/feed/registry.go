// Package feed provides the opportunity feed implementations.
package feed

import (
	"fmt"
	"sort"

	"BacklinkOutreach/internal/ports"
)

// Registry keeps a mapping from provider names to feed implementations.
type Registry struct {
	feeds map[string]ports.OpportunityFeed
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{feeds: map[string]ports.OpportunityFeed{}}
}

// Register adds or replaces a feed under its Name.
func (r *Registry) Register(feed ports.OpportunityFeed) {
	if r.feeds == nil {
		r.feeds = map[string]ports.OpportunityFeed{}
	}
	r.feeds[feed.Name()] = feed
}

// Resolve returns a feed by name or an error if it is absent.
func (r *Registry) Resolve(name string) (ports.OpportunityFeed, error) {
	if feed, ok := r.feeds[name]; ok {
		return feed, nil
	}
	return nil, fmt.Errorf("feed provider %s is not registered (have %v)", name, r.Names())
}

// Names lists the registered providers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.feeds))
	for name := range r.feeds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
