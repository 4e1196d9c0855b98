package pos

import (
	"sync"

	"github.com/quangvo/agripos/pkg/catalog"
)

// Line is one cart row. Unit may differ from the product's default when the
// customer spoke a different sale unit.
type Line struct {
	Product  catalog.Product
	Quantity float64
	Unit     string
	Price    float64
}

// Cart holds the order being assembled, in insertion order. Voice
// adjustments target the most recently added line. Safe for concurrent use.
type Cart struct {
	mu    sync.Mutex
	lines []Line
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{}
}

// Add puts quantity of product into the cart. An existing line for the same
// product absorbs the quantity (clamped at zero — adding a negative quantity
// cannot take a line below empty); otherwise a new line is appended, unless
// the quantity is not positive. unit overrides the product's default sale
// unit when non-empty.
func (c *Cart) Add(product catalog.Product, quantity float64, unit string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Product.ID == product.ID {
			c.lines[i].Quantity = max(0, c.lines[i].Quantity+quantity)
			return
		}
	}
	if quantity <= 0 {
		return
	}
	if unit == "" {
		unit = product.Unit
	}
	c.lines = append(c.lines, Line{
		Product:  product,
		Quantity: quantity,
		Unit:     unit,
		Price:    product.SalePrice,
	})
}

// AdjustLast applies delta to the most recently added line and returns the
// line as adjusted. Lines that reach zero or less are removed. Returns
// ok=false when the cart is empty.
func (c *Cart) AdjustLast(delta float64) (Line, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.lines) == 0 {
		return Line{}, false
	}
	last := len(c.lines) - 1
	c.lines[last].Quantity += delta
	line := c.lines[last]
	if line.Quantity <= 0 {
		c.lines = c.lines[:last]
	}
	return line, true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Lines returns a copy of the current cart rows.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of cart rows.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// Total returns the cart total in VND.
func (c *Cart) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var sum float64
	for _, l := range c.lines {
		sum += l.Price * l.Quantity
	}
	return sum
}
