// Package voice assembles the command interpretation pipeline: lexical
// normalization, intent classification, and fuzzy product resolution.
//
// The pipeline is synchronous and never fails — every finalized transcript
// produces a [Result]. The asynchronous parts (speech capture, display
// holds, spoken feedback) live in the session subpackage and the host.
package voice

import (
	"sync"

	"github.com/quangvo/agripos/internal/voice/aliascache"
	"github.com/quangvo/agripos/internal/voice/intent"
	"github.com/quangvo/agripos/internal/voice/lexicon"
	"github.com/quangvo/agripos/internal/voice/resolve"
	"github.com/quangvo/agripos/pkg/catalog"
)

// Result is the pipeline output — the only value crossing the core/host
// boundary. The host dispatches on Intent.Kind; Success reflects product
// resolution and is what distinguishes an added item from a spoken
// "not found" apology.
type Result struct {
	// Intent is the classified utterance.
	Intent intent.Intent

	// Product is the resolved catalog product for AddItem intents, nil when
	// nothing cleared the fuzzy threshold.
	Product *catalog.Product

	// Success is true for commands, for partner selection (the host resolves
	// the partner itself), and for intents whose product phrase resolved.
	// Adjust carries no product phrase, so the host dispatches it on Kind
	// regardless of this flag.
	Success bool
}

// Pipeline wires the pure stages together with the alias cache and resolver
// configuration. Safe for concurrent use; the resolver can be swapped at
// runtime via [Pipeline.SetResolver] when tuning changes.
type Pipeline struct {
	mu       sync.RWMutex
	resolver *resolve.Resolver
	cache    *aliascache.Cache
}

// NewPipeline creates a Pipeline using the given resolver tuning and alias
// cache. The cache may be freshly restored or empty; resolution simply sees
// fewer alias entries then.
func NewPipeline(cfg resolve.Config, cache *aliascache.Cache) *Pipeline {
	return &Pipeline{
		resolver: resolve.New(cfg),
		cache:    cache,
	}
}

// SetResolver replaces the resolver with one built from cfg. Used by the
// config watcher so threshold changes take effect without a restart.
func (p *Pipeline) SetResolver(cfg resolve.Config) {
	p.mu.Lock()
	p.resolver = resolve.New(cfg)
	p.mu.Unlock()
}

// Process interprets one finalized transcript against the live product list.
// It never returns an error: unparseable text falls through to the AddItem
// fallback rule and, failing resolution, comes back with Success=false.
func (p *Pipeline) Process(text string, products []catalog.Product) Result {
	normalized := lexicon.Normalize(text)
	in := intent.Classify(normalized)

	if in.Kind == intent.KindCommand || in.Kind == intent.KindSetPartner {
		return Result{Intent: in, Success: true}
	}

	p.mu.RLock()
	resolver := p.resolver
	p.mu.RUnlock()

	product := resolver.Resolve(in.ProductPhrase, products, p.cache.Aliases())
	return Result{
		Intent:  in,
		Product: product,
		Success: product != nil,
	}
}
