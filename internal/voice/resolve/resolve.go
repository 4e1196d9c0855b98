// Package resolve performs fuzzy resolution of a spoken product phrase
// against the merged product/alias search pool.
//
// The pool is rebuilt on every call from the live product list and the
// current alias cache — products first, aliases appended — so resolution
// always reflects the latest sync without any invalidation bookkeeping.
// Scoring uses approximate-substring edit distance: a candidate is accepted
// when the edits needed to align the spoken phrase inside its search field
// do not exceed the configured fraction of the phrase length.
package resolve

import (
	"strings"

	"github.com/quangvo/agripos/pkg/catalog"
)

const (
	// DefaultThreshold bounds acceptable edit cost as a fraction of the
	// phrase length. Lower is stricter. Inherited tuning — expose via
	// config, do not silently retune.
	DefaultThreshold = 0.3

	// DefaultDistance bounds how far (in characters) into the search field
	// the phrase alignment may start.
	DefaultDistance = 100
)

// Config carries the fuzzy-match tuning knobs.
type Config struct {
	// Threshold is the maximum accepted score (edit cost / phrase length).
	Threshold float64

	// Distance is the alignment window in characters.
	Distance int
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold, Distance: DefaultDistance}
}

// Resolver matches free-text product phrases to catalog records. It is
// stateless apart from its configuration and safe for concurrent use.
type Resolver struct {
	cfg Config
}

// New creates a Resolver. Zero-valued config fields fall back to defaults.
func New(cfg Config) *Resolver {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Distance <= 0 {
		cfg.Distance = DefaultDistance
	}
	return &Resolver{cfg: cfg}
}

// poolEntry is one searchable record: either a product or an alias pointing
// at a product.
type poolEntry struct {
	searchField string
	product     *catalog.Product // non-nil for product entries
	alias       *catalog.Alias   // non-nil for alias entries
}

// Resolve returns the catalog product best matching phrase, or nil when no
// candidate clears the threshold. Alias matches are dereferenced to their
// product; an alias whose product id is absent from products resolves to
// nil (orphaned alias).
//
// Given an identical pool and phrase the result is stable: entries are
// scanned in pool order and only a strictly better score displaces the
// current best, so products beat aliases on equal scores.
func (r *Resolver) Resolve(phrase string, products []catalog.Product, aliases []catalog.Alias) *catalog.Product {
	pattern := []rune(strings.ToLower(strings.TrimSpace(phrase)))
	if len(pattern) == 0 {
		return nil
	}

	pool := make([]poolEntry, 0, len(products)+len(aliases))
	for i := range products {
		pool = append(pool, poolEntry{searchField: products[i].Name, product: &products[i]})
	}
	for i := range aliases {
		pool = append(pool, poolEntry{searchField: aliases[i].AliasName, alias: &aliases[i]})
	}

	bestScore := 0.0
	bestIdx := -1
	for i, entry := range pool {
		score, ok := r.score(pattern, entry.searchField)
		if !ok {
			continue
		}
		if bestIdx < 0 || score < bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return nil
	}

	best := pool[bestIdx]
	if best.alias != nil {
		return productByID(products, best.alias.ProductID)
	}
	return best.product
}

// score computes the match score of pattern against field: the minimal edit
// distance of pattern aligned as an approximate substring of field, divided
// by the pattern length. Alignments starting beyond the distance window are
// rejected. Returns ok=false when no alignment is acceptable.
func (r *Resolver) score(pattern []rune, field string) (float64, bool) {
	text := []rune(strings.ToLower(field))
	if len(text) == 0 {
		return 0, false
	}

	// Sellers' approximate-substring DP: the pattern may start anywhere in
	// the text for free, and trailing text is likewise free. prev/curr are
	// the rolling DP rows indexed by text position.
	m := len(pattern)
	prev := make([]int, len(text)+1)
	curr := make([]int, len(text)+1)

	bestEdits := m // aligning against nothing costs one edit per rune
	bestEnd := 0
	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= len(text); j++ {
			cost := 1
			if pattern[i-1] == text[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j-1]+cost, prev[j]+1, curr[j-1]+1)
		}
		prev, curr = curr, prev
	}
	for j := 0; j <= len(text); j++ {
		if prev[j] < bestEdits {
			bestEdits = prev[j]
			bestEnd = j
		}
	}

	// Window check: how far into the field the aligned region starts.
	start := bestEnd - (m - bestEdits)
	if start < 0 {
		start = 0
	}
	if start > r.cfg.Distance {
		return 0, false
	}

	score := float64(bestEdits) / float64(m)
	if score > r.cfg.Threshold {
		return 0, false
	}
	return score, true
}

// productByID finds a product by id. Returns nil when absent.
func productByID(products []catalog.Product, id int64) *catalog.Product {
	if id == 0 {
		return nil
	}
	for i := range products {
		if products[i].ID == id {
			return &products[i]
		}
	}
	return nil
}
