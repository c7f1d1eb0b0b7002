// Package content defines the content-source boundary: the read-only CMS
// records the indexer consumes, and the subscription interface it registers
// against for re-indexing on content changes.
package content

import (
	"context"
	"errors"
)

// Item is one CMS content record. It is read-only input to extraction; the
// CMS owns storage and rendering.
type Item struct {
	ID       int64
	Type     string // "post", "page", "product"
	Status   string // "publish" means indexable
	Title    string
	Excerpt  string
	BodyHTML string // rendered body, markup included
	URL      string

	// Meta holds arbitrary key -> values metadata. Keys prefixed with an
	// underscore are system-reserved unless whitelisted by the extractor.
	Meta map[string][]string

	// CustomFields holds plugin-supplied structured fields, possibly nested.
	CustomFields map[string]any

	// Taxonomies maps a taxonomy name to its term names.
	Taxonomies map[string][]string

	// Commerce is populated only for sellable products.
	Commerce *Commerce

	// PublishedAt is a unix timestamp used by the recency fallback.
	PublishedAt int64
}

// Commerce carries the structured attributes of a sellable product.
type Commerce struct {
	Price            string
	RegularPrice     string
	SalePrice        string
	OnSale           bool
	SKU              string
	StockStatus      string
	ShortDescription string
	Attributes       []Attribute
}

// Attribute is one product attribute name with its option values.
type Attribute struct {
	Name    string
	Options []string
}

// Published reports whether the item should be indexed at all.
func (i *Item) Published() bool {
	return i.Status == "publish"
}

// Source enumerates and fetches CMS content. Implementations also expose the
// change subscription used for event-driven re-indexing.
type Source interface {
	// ListPublishedIDs returns the ids of all published items of the
	// indexable types, in publication order.
	ListPublishedIDs(ctx context.Context) ([]int64, error)

	// Fetch returns one item by id. Returns ErrNotFound for unknown ids.
	Fetch(ctx context.Context, id int64) (*Item, error)

	// OnContentChanged registers a handler invoked when an item is created
	// or updated.
	OnContentChanged(func(id int64))

	// OnContentDeleted registers a handler invoked when an item is removed.
	OnContentDeleted(func(id int64))
}

// ErrNotFound is returned by Fetch for ids the CMS does not know.
var ErrNotFound = errors.New("content item not found")
