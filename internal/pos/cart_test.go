package pos_test

import (
	"testing"

	"github.com/quangvo/agripos/internal/pos"
	"github.com/quangvo/agripos/pkg/catalog"
)

var (
	rio = catalog.Product{ID: 1, Name: "Nước ngọt Rio", Unit: "chai", SalePrice: 10000}
	dam = catalog.Product{ID: 2, Name: "Đạm Phú Mỹ", Unit: "bao", SalePrice: 620000}
)

func TestCart_AddAndMerge(t *testing.T) {
	t.Parallel()

	c := pos.NewCart()
	c.Add(rio, 5, "chai")
	c.Add(dam, 2, "")
	c.Add(rio, 3, "chai")

	lines := c.Lines()
	if len(lines) != 2 {
		t.Fatalf("lines: got %d, want 2", len(lines))
	}
	if lines[0].Quantity != 8 {
		t.Errorf("merged quantity: got %v, want 8", lines[0].Quantity)
	}
	if lines[1].Unit != "bao" {
		t.Errorf("default unit: got %q, want %q", lines[1].Unit, "bao")
	}
}

func TestCart_AddNegativeQuantity(t *testing.T) {
	t.Parallel()

	c := pos.NewCart()
	c.Add(rio, 5, "chai")

	// Removing more than present clamps at zero rather than going negative.
	c.Add(rio, -8, "chai")
	lines := c.Lines()
	if len(lines) != 1 || lines[0].Quantity != 0 {
		t.Fatalf("after negative add: %+v", lines)
	}

	// A negative add for an absent product is ignored.
	c.Add(dam, -1, "")
	if c.Len() != 1 {
		t.Errorf("negative add created a line: %+v", c.Lines())
	}
}

func TestCart_AdjustLast(t *testing.T) {
	t.Parallel()

	c := pos.NewCart()
	c.Add(rio, 5, "chai")
	c.Add(dam, 2, "bao")

	line, ok := c.AdjustLast(-1)
	if !ok {
		t.Fatal("AdjustLast on non-empty cart returned ok=false")
	}
	if line.Product.ID != 2 || line.Quantity != 1 {
		t.Errorf("adjusted line: %+v", line)
	}

	// Dropping to zero removes the line; the next adjust targets rio.
	if _, ok := c.AdjustLast(-1); !ok {
		t.Fatal("second AdjustLast returned ok=false")
	}
	line, ok = c.AdjustLast(2)
	if !ok || line.Product.ID != 1 || line.Quantity != 7 {
		t.Errorf("adjust after removal: ok=%v line=%+v", ok, line)
	}
}

func TestCart_AdjustLastEmpty(t *testing.T) {
	t.Parallel()

	c := pos.NewCart()
	if _, ok := c.AdjustLast(-1); ok {
		t.Fatal("AdjustLast on empty cart returned ok=true")
	}
}

func TestCart_ClearAndTotal(t *testing.T) {
	t.Parallel()

	c := pos.NewCart()
	c.Add(rio, 5, "chai")
	c.Add(dam, 2, "bao")

	if got, want := c.Total(), 5*10000.0+2*620000.0; got != want {
		t.Errorf("total: got %v, want %v", got, want)
	}

	c.Clear()
	if c.Len() != 0 || c.Total() != 0 {
		t.Errorf("after clear: len=%d total=%v", c.Len(), c.Total())
	}
}

func TestCart_LinesReturnsCopy(t *testing.T) {
	t.Parallel()

	c := pos.NewCart()
	c.Add(rio, 5, "chai")

	lines := c.Lines()
	lines[0].Quantity = 999
	if got := c.Lines()[0].Quantity; got != 5 {
		t.Errorf("caller mutation leaked into the cart: %v", got)
	}
}
