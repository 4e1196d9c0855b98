package voice_test

import (
	"context"
	"testing"

	"github.com/quangvo/agripos/internal/voice"
	"github.com/quangvo/agripos/internal/voice/aliascache"
	"github.com/quangvo/agripos/internal/voice/intent"
	"github.com/quangvo/agripos/internal/voice/resolve"
	"github.com/quangvo/agripos/pkg/catalog"
)

// fixedSource returns a constant alias list.
type fixedSource struct {
	aliases []catalog.Alias
}

func (s fixedSource) VoiceAliases(context.Context) ([]catalog.Alias, error) {
	return s.aliases, nil
}

var products = []catalog.Product{
	{ID: 1, Name: "Nước ngọt Rio", Unit: "chai", SalePrice: 10000},
	{ID: 7, Name: "Coca Cola 1.5L", Unit: "chai", SalePrice: 18000},
}

func newTestPipeline(t *testing.T, aliases []catalog.Alias) *voice.Pipeline {
	t.Helper()
	cache := aliascache.New(fixedSource{aliases: aliases})
	if err := cache.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	return voice.NewPipeline(resolve.DefaultConfig(), cache)
}

func TestProcess_AddItemResolved(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, nil)
	got := p.Process("năm chai rio", products)

	if got.Intent.Kind != intent.KindAddItem {
		t.Fatalf("kind: got %s, want %s", got.Intent.Kind, intent.KindAddItem)
	}
	if got.Intent.Quantity != 5 || got.Intent.Unit != "chai" {
		t.Errorf("intent: %+v", got.Intent)
	}
	if !got.Success || got.Product == nil || got.Product.ID != 1 {
		t.Errorf("resolution: success=%v product=%+v", got.Success, got.Product)
	}
}

func TestProcess_AddItemThroughAlias(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, []catalog.Alias{{AliasName: "cô ca", ProductID: 7}})
	got := p.Process("2 chai cô ca", products)

	if !got.Success || got.Product == nil || got.Product.ID != 7 {
		t.Fatalf("alias resolution: success=%v product=%+v", got.Success, got.Product)
	}
}

func TestProcess_AddItemUnresolved(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, nil)
	got := p.Process("3 chai thuốc diệt chuột", products)

	if got.Success || got.Product != nil {
		t.Fatalf("expected miss: success=%v product=%+v", got.Success, got.Product)
	}
	if got.Intent.ProductPhrase != "thuốc diệt chuột" {
		t.Errorf("product phrase: %q", got.Intent.ProductPhrase)
	}
}

func TestProcess_CommandSkipsResolution(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, nil)
	got := p.Process("thanh toán", nil)

	if got.Intent.Kind != intent.KindCommand || got.Intent.Command != intent.CommandCheckout {
		t.Fatalf("intent: %+v", got.Intent)
	}
	if !got.Success {
		t.Error("commands must always succeed")
	}
	if got.Product != nil {
		t.Errorf("command result carries a product: %+v", got.Product)
	}
}

func TestProcess_SetPartnerPassesPhraseThrough(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, nil)
	got := p.Process("khách là chị Lan", products)

	if got.Intent.Kind != intent.KindSetPartner {
		t.Fatalf("kind: %s", got.Intent.Kind)
	}
	if got.Intent.PartnerPhrase != "chị lan" {
		t.Errorf("partner phrase: %q", got.Intent.PartnerPhrase)
	}
	// Partner lookup is the host's job; the pipeline itself succeeds.
	if !got.Success {
		t.Error("partner selection must succeed at the pipeline level")
	}
}

func TestSetResolver_RetunesMatching(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, nil)

	// Accent-stripped speech needs a few edits; the stock threshold accepts
	// it, a near-zero threshold must not.
	if got := p.Process("2 chai nuoc ngot rio", products); !got.Success {
		t.Fatalf("stock tuning rejected a close match: %+v", got)
	}

	p.SetResolver(resolve.Config{Threshold: 0.01, Distance: resolve.DefaultDistance})
	if got := p.Process("2 chai nuoc ngot rio", products); got.Success {
		t.Fatalf("tightened tuning still matched: %+v", got)
	}

	p.SetResolver(resolve.DefaultConfig())
	if got := p.Process("2 chai nuoc ngot rio", products); !got.Success {
		t.Fatalf("restored tuning rejected a close match: %+v", got)
	}
}
