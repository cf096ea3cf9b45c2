package niche

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/pathwise/trendintel/internal/api"
	"github.com/pathwise/trendintel/internal/model"
	"github.com/pathwise/trendintel/internal/store"
)

// Resolution is the niche selected for a path and interest.
type Resolution struct {
	NicheID   string   `json:"nicheId"`
	PathID    string   `json:"pathId"`
	Label     string   `json:"label"`
	Keywords  []string `json:"keywords"`
	Aliases   []string `json:"aliases"`
	Synthetic bool     `json:"synthetic"`
}

// Resolver resolves niches from the stored taxonomy.
type Resolver struct {
	store  store.TaxonomyStore
	logger *slog.Logger
}

// NewResolver creates a resolver. A nil logger uses slog.Default().
func NewResolver(s store.TaxonomyStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: s, logger: logger}
}

// GetNichesForPath returns every node of the path ordered by depth then ID.
// Store failures are logged and yield an empty list.
func (r *Resolver) GetNichesForPath(ctx context.Context, pathID string) []model.NicheTaxonomyNode {
	nodes, err := r.store.ListNiches(ctx, pathID)
	if err != nil {
		r.logger.Warn("list niches failed", "path_id", pathID, "err", err)
		return nil
	}
	return nodes
}

// ResolveUserNiche picks the deepest node of the path whose alias or label
// occurs in interest as a whole phrase. Ties go to the longer matched term,
// then the lower ID. Without a match it returns the path root, and without any
// nodes a synthetic niche built from the interest.
func (r *Resolver) ResolveUserNiche(ctx context.Context, pathID, interest string) Resolution {
	nodes := r.GetNichesForPath(ctx, pathID)
	if len(nodes) == 0 {
		return syntheticNiche(pathID, interest)
	}

	if best, ok := bestMatch(nodes, interest); ok {
		return resolutionFor(best)
	}

	for _, n := range nodes {
		if n.IsRoot() {
			return resolutionFor(n)
		}
	}

	// Nodes exist but none is a root; the shallowest stands in for it.
	return resolutionFor(nodes[0])
}

// ResolveNicheID returns the resolution of a known niche. The synthetic
// "<path>.general" niche always resolves.
func (r *Resolver) ResolveNicheID(ctx context.Context, pathID, nicheID string) (Resolution, bool) {
	if nicheID == pathID+generalSuffix {
		return syntheticNiche(pathID, ""), true
	}
	for _, n := range r.GetNichesForPath(ctx, pathID) {
		if n.ID == nicheID {
			return resolutionFor(n), true
		}
	}
	return Resolution{}, false
}

type candidate struct {
	node    model.NicheTaxonomyNode
	termLen int
}

func bestMatch(nodes []model.NicheTaxonomyNode, interest string) (model.NicheTaxonomyNode, bool) {
	needle := " " + api.NormalizeKeyword(interest) + " "
	if strings.TrimSpace(needle) == "" {
		return model.NicheTaxonomyNode{}, false
	}

	var matches []candidate
	for _, n := range nodes {
		longest := 0
		for _, term := range append([]string{n.Label}, n.Aliases...) {
			term = api.NormalizeKeyword(term)
			if term == "" {
				continue
			}
			if strings.Contains(needle, " "+term+" ") && len(term) > longest {
				longest = len(term)
			}
		}
		if longest > 0 {
			matches = append(matches, candidate{node: n, termLen: longest})
		}
	}
	if len(matches) == 0 {
		return model.NicheTaxonomyNode{}, false
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.node.Depth != b.node.Depth {
			return a.node.Depth > b.node.Depth
		}
		if a.termLen != b.termLen {
			return a.termLen > b.termLen
		}
		return a.node.ID < b.node.ID
	})
	return matches[0].node, true
}

func resolutionFor(n model.NicheTaxonomyNode) Resolution {
	return Resolution{
		NicheID:  n.ID,
		PathID:   n.PathID,
		Label:    n.Label,
		Keywords: Keywords(n),
		Aliases:  append([]string(nil), n.Aliases...),
	}
}

const generalSuffix = ".general"

func syntheticNiche(pathID, interest string) Resolution {
	label := strings.ReplaceAll(pathID, "_", " ")
	kw := api.NormalizeKeyword(interest)
	if kw == "" {
		kw = api.NormalizeKeyword(label)
	}

	var keywords []string
	if kw != "" {
		keywords = []string{kw}
	}
	return Resolution{
		NicheID:   pathID + generalSuffix,
		PathID:    pathID,
		Label:     label,
		Keywords:  keywords,
		Synthetic: true,
	}
}

// Keywords returns the tracked keywords of a node: its aliases lower-cased,
// deduplicated and sorted. A node without aliases tracks its label.
func Keywords(n model.NicheTaxonomyNode) []string {
	seen := make(map[string]bool, len(n.Aliases))
	var out []string
	for _, a := range n.Aliases {
		kw := api.NormalizeKeyword(a)
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	if len(out) == 0 {
		if kw := api.NormalizeKeyword(n.Label); kw != "" {
			out = append(out, kw)
		}
	}
	sort.Strings(out)
	return out
}
