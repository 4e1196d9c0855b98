// Package catalog defines the product, partner, and voice-alias records the
// POS works with, plus an HTTP client for the shop backend that serves them.
//
// The voice pipeline never fetches the catalog itself — the host application
// loads products and partners once (and on demand) and passes slices into the
// resolver. Only the alias list has its own sync path, owned by the
// aliascache package.
package catalog

// Product is a sellable catalog item.
type Product struct {
	// ID is the backend-assigned product identifier.
	ID int64 `json:"id"`

	// Name is the display name, also the fuzzy-search field for voice input.
	Name string `json:"name"`

	// Unit is the default sale unit (e.g., "chai", "bao", "kg").
	Unit string `json:"unit"`

	// SalePrice is the unit price in VND.
	SalePrice float64 `json:"sale_price"`

	// Stock is the current on-hand quantity.
	Stock float64 `json:"stock"`
}

// Partner is a customer or supplier record. Voice commands select partners
// by spoken name; the phone number doubles as a search field.
type Partner struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Alias maps a colloquial or phonetic spoken name to a catalog product.
// Aliases are authored server-side and cached read-only on the device.
type Alias struct {
	// AliasName is the free-text alternate name (e.g., "cô ca" for "Coca").
	AliasName string `json:"alias_name"`

	// ProductID references the product this alias resolves to. Zero means
	// the alias is orphaned and resolves to nothing.
	ProductID int64 `json:"product_id"`
}
