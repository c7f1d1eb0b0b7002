package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Indexable post types and their REST route segments.
var typeRoutes = map[string]string{
	"post":    "posts",
	"page":    "pages",
	"product": "product",
}

// WordPress is a Source backed by the WordPress REST API (wp/v2).
type WordPress struct {
	Events

	baseURL string
	client  *http.Client
}

// NewWordPress creates a content source for the site at baseURL
// (e.g. "https://example.com").
func NewWordPress(baseURL string) *WordPress {
	return &WordPress{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// wpItem is the subset of the wp/v2 response the indexer consumes.
type wpItem struct {
	ID      int64  `json:"id"`
	DateGMT string `json:"date_gmt"`
	Status  string `json:"status"`
	Type    string `json:"type"`
	Link    string `json:"link"`
	Title   struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
	Content struct {
		Rendered string `json:"rendered"`
	} `json:"content"`
	Excerpt struct {
		Rendered string `json:"rendered"`
	} `json:"excerpt"`
	Meta     map[string]any `json:"meta"`
	Embedded struct {
		Terms [][]struct {
			Name     string `json:"name"`
			Taxonomy string `json:"taxonomy"`
		} `json:"wp:term"`
	} `json:"_embedded"`
}

// ListPublishedIDs pages through every indexable type and returns all
// published item ids in publication order.
func (w *WordPress) ListPublishedIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	for _, route := range []string{"posts", "pages", "product"} {
		routeIDs, err := w.listRoute(ctx, route)
		if err != nil {
			// Product routes only exist when commerce is installed.
			if route == "product" {
				continue
			}
			return nil, err
		}
		ids = append(ids, routeIDs...)
	}
	return ids, nil
}

func (w *WordPress) listRoute(ctx context.Context, route string) ([]int64, error) {
	const perPage = 100
	var ids []int64

	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("status", "publish")
		q.Set("per_page", strconv.Itoa(perPage))
		q.Set("page", strconv.Itoa(page))
		q.Set("orderby", "date")
		q.Set("order", "asc")
		q.Set("_fields", "id")

		endpoint := fmt.Sprintf("%s/wp-json/wp/v2/%s?%s", w.baseURL, route, q.Encode())
		var pageItems []struct {
			ID int64 `json:"id"`
		}
		status, err := w.getJSON(ctx, endpoint, &pageItems)
		if err != nil {
			return nil, fmt.Errorf("list %s page %d: %w", route, page, err)
		}
		// Past the last page WordPress answers 400 rest_post_invalid_page_number.
		if status == http.StatusBadRequest {
			break
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("list %s: HTTP %d", route, status)
		}

		for _, it := range pageItems {
			ids = append(ids, it.ID)
		}
		if len(pageItems) < perPage {
			break
		}
	}
	return ids, nil
}

// Fetch retrieves one item by id. WordPress ids are global across post types,
// so each type route is tried until one answers.
func (w *WordPress) Fetch(ctx context.Context, id int64) (*Item, error) {
	for typ, route := range typeRoutes {
		endpoint := fmt.Sprintf("%s/wp-json/wp/v2/%s/%d?_embed=wp:term", w.baseURL, route, id)

		var raw wpItem
		status, err := w.getJSON(ctx, endpoint, &raw)
		if err != nil {
			return nil, fmt.Errorf("fetch %s %d: %w", typ, id, err)
		}
		if status == http.StatusNotFound {
			continue
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("fetch %s %d: HTTP %d", typ, id, status)
		}
		return decodeItem(&raw), nil
	}
	return nil, ErrNotFound
}

func (w *WordPress) getJSON(ctx context.Context, endpoint string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// decodeItem maps the wire record onto the indexer's Item, including the
// meta-derived commerce block for products.
func decodeItem(raw *wpItem) *Item {
	item := &Item{
		ID:       raw.ID,
		Type:     raw.Type,
		Status:   raw.Status,
		Title:    strings.TrimSpace(raw.Title.Rendered),
		Excerpt:  strings.TrimSpace(raw.Excerpt.Rendered),
		BodyHTML: raw.Content.Rendered,
		URL:      raw.Link,
		Meta:     flattenMeta(raw.Meta),
	}

	if t, err := time.Parse("2006-01-02T15:04:05", raw.DateGMT); err == nil {
		item.PublishedAt = t.Unix()
	}

	for _, group := range raw.Embedded.Terms {
		for _, term := range group {
			if term.Name == "" || term.Taxonomy == "" {
				continue
			}
			if item.Taxonomies == nil {
				item.Taxonomies = make(map[string][]string)
			}
			item.Taxonomies[term.Taxonomy] = append(item.Taxonomies[term.Taxonomy], term.Name)
		}
	}

	if raw.Type == "product" {
		item.Commerce = commerceFromMeta(item.Meta)
	}
	return item
}

// flattenMeta renders arbitrary meta values to strings, preserving multi-value
// keys.
func flattenMeta(meta map[string]any) map[string][]string {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string][]string, len(meta))
	for key, value := range meta {
		switch v := value.(type) {
		case []any:
			for _, entry := range v {
				out[key] = append(out[key], stringify(entry))
			}
		default:
			out[key] = append(out[key], stringify(v))
		}
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

// commerceFromMeta builds a Commerce block from the well-known product meta
// keys when present.
func commerceFromMeta(meta map[string][]string) *Commerce {
	first := func(key string) string {
		if vs := meta[key]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}

	c := &Commerce{
		Price:        first("_price"),
		RegularPrice: first("_regular_price"),
		SalePrice:    first("_sale_price"),
		SKU:          first("_sku"),
		StockStatus:  first("_stock_status"),
	}
	c.OnSale = c.SalePrice != "" && c.SalePrice != c.RegularPrice

	if c.Price == "" && c.RegularPrice == "" && c.SalePrice == "" &&
		c.SKU == "" && c.StockStatus == "" {
		return nil
	}
	return c
}
