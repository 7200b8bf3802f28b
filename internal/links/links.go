// Package links builds search links on external knowledge sources.
package links

import (
	"net/url"

	"studymate/internal/domain"
)

// Source is an external site with a search URL prefix the escaped query is
// appended to.
type Source struct {
	Site   string `yaml:"site"`
	Prefix string `yaml:"prefix"`
}

// DefaultSources are used when no sources are configured.
var DefaultSources = []Source{
	{Site: "Habr", Prefix: "https://habr.com/ru/search/?q="},
	{Site: "CyberLeninka", Prefix: "https://cyberleninka.ru/search?q="},
	{Site: "Google Scholar", Prefix: "https://scholar.google.com/scholar?q="},
}

// Resolver builds one link per source. It never calls the network.
type Resolver struct {
	sources []Source
}

// NewResolver returns a Resolver over sources, or DefaultSources when none
// are given.
func NewResolver(sources []Source) *Resolver {
	if len(sources) == 0 {
		sources = DefaultSources
	}
	return &Resolver{sources: append([]Source(nil), sources...)}
}

// BuildLinks returns a search link for query on every source, in source
// order.
func (r *Resolver) BuildLinks(query string) []domain.ExternalLink {
	escaped := url.QueryEscape(query)
	out := make([]domain.ExternalLink, 0, len(r.sources))
	for _, s := range r.sources {
		u := s.Prefix + escaped
		out = append(out, domain.ExternalLink{Site: s.Site, URL: u, DisplayURL: u})
	}
	return out
}
