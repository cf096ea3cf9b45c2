package niche

import (
	"context"
	"errors"
	"fmt"

	"github.com/pathwise/trendintel/internal/model"
	"github.com/pathwise/trendintel/internal/store"
)

// Economic paths of the default taxonomy.
const (
	PathContentMonetization = "content_monetization"
	PathFreelanceServices   = "freelance_services"
	PathDigitalProducts     = "digital_products"
	PathLocalBusiness       = "local_business"
)

type seedNode struct {
	id      string
	label   string
	aliases []string
}

type seedPath struct {
	root     seedNode
	children []seedNode
}

var defaultSeed = map[string]seedPath{
	PathContentMonetization: {
		root: seedNode{PathContentMonetization, "Content Monetization", []string{"content creator", "youtube", "konten kreator"}},
		children: []seedNode{
			{"audience.finance", "Personal Finance", []string{"investasi", "investasi untuk pemula", "saham", "reksadana", "keuangan pribadi"}},
			{"audience.tech", "Tech Reviews", []string{"review gadget", "tutorial coding", "ai tools", "smartphone murah"}},
			{"audience.lifestyle", "Lifestyle", []string{"resep masakan", "skincare", "diet sehat", "traveling hemat"}},
			{"audience.education", "Education", []string{"belajar bahasa inggris", "tips kuliah", "beasiswa", "soal cpns"}},
		},
	},
	PathFreelanceServices: {
		root: seedNode{PathFreelanceServices, "Freelance Services", []string{"freelance", "jasa online", "kerja remote"}},
		children: []seedNode{
			{"service.design", "Design", []string{"desain logo", "desain grafis", "ui ux design", "canva"}},
			{"service.writing", "Writing", []string{"copywriting", "penulis artikel", "seo writing", "terjemahan"}},
			{"service.development", "Development", []string{"jasa website", "web developer", "aplikasi android", "wordpress"}},
			{"service.marketing", "Digital Marketing", []string{"social media manager", "facebook ads", "jasa seo", "admin instagram"}},
		},
	},
	PathDigitalProducts: {
		root: seedNode{PathDigitalProducts, "Digital Products", []string{"produk digital", "jualan online", "passive income"}},
		children: []seedNode{
			{"product.templates", "Templates", []string{"template notion", "template canva", "template cv", "planner digital"}},
			{"product.courses", "Online Courses", []string{"kelas online", "ecourse", "kursus online", "webinar"}},
			{"product.ebooks", "Ebooks", []string{"ebook", "jual ebook", "ebook resep", "buku digital"}},
		},
	},
	PathLocalBusiness: {
		root: seedNode{PathLocalBusiness, "Local Business", []string{"usaha kecil", "umkm", "bisnis rumahan"}},
		children: []seedNode{
			{"local.food", "Food & Beverage", []string{"usaha makanan", "frozen food", "kopi kekinian", "catering"}},
			{"local.retail", "Retail", []string{"toko kelontong", "reseller", "dropship", "thrift"}},
			{"local.services", "Local Services", []string{"laundry kiloan", "jasa cuci motor", "les privat", "barbershop"}},
		},
	},
}

// DefaultTaxonomy returns the built-in seed: one root per path with depth-1
// children.
func DefaultTaxonomy() []model.NicheTaxonomyNode {
	var nodes []model.NicheTaxonomyNode
	for _, pathID := range []string{PathContentMonetization, PathFreelanceServices, PathDigitalProducts, PathLocalBusiness} {
		seed := defaultSeed[pathID]
		rootID := seed.root.id
		nodes = append(nodes, model.NicheTaxonomyNode{
			ID:      rootID,
			Label:   seed.root.label,
			PathID:  pathID,
			Depth:   0,
			Aliases: append([]string(nil), seed.root.aliases...),
		})
		for _, c := range seed.children {
			parent := rootID
			nodes = append(nodes, model.NicheTaxonomyNode{
				ID:       c.id,
				ParentID: &parent,
				Label:    c.label,
				PathID:   pathID,
				Depth:    1,
				Aliases:  append([]string(nil), c.aliases...),
			})
		}
	}
	return nodes
}

// ErrInvalidTaxonomy is wrapped by every ValidateTaxonomy failure.
var ErrInvalidTaxonomy = errors.New("invalid taxonomy")

// ValidateTaxonomy checks the tree invariants: unique IDs, roots at depth 0
// without a parent, and children at parent depth + 1 on the parent's path.
// Depth increasing along every edge rules out cycles.
func ValidateTaxonomy(nodes []model.NicheTaxonomyNode) error {
	byID := make(map[string]model.NicheTaxonomyNode, len(nodes))
	for _, n := range nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node with empty id", ErrInvalidTaxonomy)
		}
		if n.PathID == "" {
			return fmt.Errorf("%w: node %s has no path_id", ErrInvalidTaxonomy, n.ID)
		}
		if _, dup := byID[n.ID]; dup {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidTaxonomy, n.ID)
		}
		byID[n.ID] = n
	}

	for _, n := range nodes {
		if n.IsRoot() {
			if n.Depth != 0 {
				return fmt.Errorf("%w: root %s has depth %d, want 0", ErrInvalidTaxonomy, n.ID, n.Depth)
			}
			continue
		}

		parent, ok := byID[*n.ParentID]
		if !ok {
			return fmt.Errorf("%w: node %s references unknown parent %s", ErrInvalidTaxonomy, n.ID, *n.ParentID)
		}
		if n.Depth != parent.Depth+1 {
			return fmt.Errorf("%w: node %s has depth %d, want %d", ErrInvalidTaxonomy, n.ID, n.Depth, parent.Depth+1)
		}
		if n.PathID != parent.PathID {
			return fmt.Errorf("%w: node %s is on path %s but parent %s is on %s",
				ErrInvalidTaxonomy, n.ID, n.PathID, parent.ID, parent.PathID)
		}
	}

	return nil
}

// Seed validates nodes and writes them to the store.
func Seed(ctx context.Context, s store.TaxonomyStore, nodes []model.NicheTaxonomyNode) error {
	if err := ValidateTaxonomy(nodes); err != nil {
		return err
	}
	if err := s.UpsertNiches(ctx, nodes); err != nil {
		return fmt.Errorf("seed taxonomy: %w", err)
	}
	return nil
}
