// Package extract turns a CMS content item into one normalized plain-text
// document: title, excerpt, tabular data, stripped body, metadata, custom
// fields, taxonomies, and product attributes concatenated in a stable order.
package extract

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"

	"github.com/devansh003/chatbot/internal/content"
)

// Document is the fully extracted, whitespace-collapsed text of one item.
// Text contains no markup; an empty Text means the item has nothing to index,
// which is a valid outcome rather than an error.
type Document struct {
	SourceID    int64
	Title       string
	URL         string
	Text        string
	PublishedAt int64
}

// Section markers in the extracted text.
const (
	tablesMarker   = "=== TABLES DATA ==="
	metaMarker     = "=== ADDITIONAL DATA ==="
	fieldsMarker   = "=== CUSTOM FIELDS ==="
	taxonomyMarker = "=== CATEGORIES & TAGS ==="
	productMarker  = "=== PRODUCT INFORMATION ==="
)

// Metadata values longer than this are treated as binary blobs and skipped.
const maxMetaValueLength = 5000

// System-reserved meta keys that never carry indexable signal.
var skipMetaKeys = map[string]bool{
	"_edit_lock":        true,
	"_edit_last":        true,
	"_wp_page_template": true,
	"_thumbnail_id":     true,
	"_wp_old_slug":      true,
}

// Underscore-prefixed keys that are still worth indexing.
var keepHiddenMetaKeys = map[string]bool{
	"_price":         true,
	"_regular_price": true,
	"_sale_price":    true,
}

// Extractor builds Documents from content items.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract produces the normalized document for item. The returned Text is
// empty when every section is empty.
func (e *Extractor) Extract(item *content.Item) *Document {
	var parts []string

	if item.Title != "" {
		parts = append(parts, "TITLE: "+item.Title)
	}
	if excerpt := strings.TrimSpace(StripHTML(item.Excerpt)); excerpt != "" {
		parts = append(parts, "EXCERPT: "+excerpt)
	}

	if item.BodyHTML != "" {
		if tables := extractTables(item.BodyHTML); tables != "" {
			parts = append(parts, "\n"+tablesMarker+"\n"+tables)
		}
		if body := strings.TrimSpace(StripHTML(item.BodyHTML)); body != "" {
			parts = append(parts, body)
		}
	}

	if meta := formatMetadata(item.Meta); meta != "" {
		parts = append(parts, "\n"+metaMarker+"\n"+meta)
	}
	if fields := formatCustomFields(item.CustomFields, ""); fields != "" {
		parts = append(parts, "\n"+fieldsMarker+"\n"+strings.TrimRight(fields, "\n"))
	}
	if tax := formatTaxonomies(item.Taxonomies); tax != "" {
		parts = append(parts, "\n"+taxonomyMarker+"\n"+tax)
	}
	if item.Commerce != nil {
		if product := formatCommerce(item.Commerce); product != "" {
			parts = append(parts, "\n"+productMarker+"\n"+product)
		}
	}

	return &Document{
		SourceID:    item.ID,
		Title:       item.Title,
		URL:         item.URL,
		Text:        collapseWhitespace(strings.Join(parts, "\n\n")),
		PublishedAt: item.PublishedAt,
	}
}

var (
	tableRe   = regexp.MustCompile(`(?is)<table[^>]*>(.*?)</table>`)
	rowRe     = regexp.MustCompile(`(?is)<tr[^>]*>(.*?)</tr>`)
	cellRe    = regexp.MustCompile(`(?is)<t[hd][^>]*>(.*?)</t[hd]>`)
	scriptRe  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe   = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockRe   = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	brRe      = regexp.MustCompile(`(?i)<br\s*/?>`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
	spacesRe  = regexp.MustCompile(`[ \t\x{00A0}]+`)
	linesRe   = regexp.MustCompile(`\n{3,}`)
)

// StripHTML converts markup to plain text: scripts, styles and comments are
// dropped, block boundaries become newlines, remaining tags are removed and
// entities decoded.
func StripHTML(s string) string {
	s = scriptRe.ReplaceAllString(s, "")
	s = styleRe.ReplaceAllString(s, "")
	s = commentRe.ReplaceAllString(s, "")
	s = brRe.ReplaceAllString(s, "\n")
	s = blockRe.ReplaceAllString(s, "\n")
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return collapseWhitespace(s)
}

// extractTables serializes every HTML table in body as pipe-delimited rows
// under a per-table index marker.
func extractTables(body string) string {
	tables := tableRe.FindAllString(body, -1)
	if len(tables) == 0 {
		return ""
	}

	var b strings.Builder
	for i, tableHTML := range tables {
		fmt.Fprintf(&b, "\n--- Table %d ---\n", i+1)
		for _, row := range rowRe.FindAllStringSubmatch(tableHTML, -1) {
			var cells []string
			for _, cell := range cellRe.FindAllStringSubmatch(row[1], -1) {
				if text := strings.TrimSpace(StripHTML(cell[1])); text != "" {
					cells = append(cells, text)
				}
			}
			if len(cells) > 0 {
				b.WriteString(strings.Join(cells, " | "))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// formatMetadata renders metadata as "Label: value" lines. System keys and
// over-length values are skipped; serialized structures are decoded before
// rendering. Keys are emitted in sorted order so output is deterministic.
func formatMetadata(meta map[string][]string) string {
	if len(meta) == 0 {
		return ""
	}

	keys := make([]string, 0, len(meta))
	for key := range meta {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		if strings.HasPrefix(key, "_") && !keepHiddenMetaKeys[key] {
			continue
		}
		if skipMetaKeys[key] {
			continue
		}
		for _, value := range meta[key] {
			value = strings.TrimSpace(decodeSerialized(value))
			if value == "" || len(value) >= maxMetaValueLength {
				continue
			}
			fmt.Fprintf(&b, "%s: %s\n", labelize(key), value)
		}
	}
	return strings.TrimSpace(b.String())
}

// decodeSerialized unpacks JSON-serialized structures into a flat readable
// rendering; plain strings pass through unchanged.
func decodeSerialized(value string) string {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return value
	}
	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return value
	}
	return renderValue(decoded)
}

func renderValue(v any) string {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, renderValue(t[k])))
		}
		return strings.Join(parts, ", ")
	case []any:
		var parts []string
		for _, entry := range t {
			parts = append(parts, renderValue(entry))
		}
		return strings.Join(parts, ", ")
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// formatCustomFields flattens plugin-supplied fields recursively, prefixing
// nested keys with their parent label.
func formatCustomFields(fields map[string]any, prefix string) string {
	if len(fields) == 0 {
		return ""
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		label := prefix + labelize(key)
		switch v := fields[key].(type) {
		case map[string]any:
			b.WriteString(formatCustomFields(v, label+" - "))
		case []any:
			nested := make(map[string]any, len(v))
			for i, entry := range v {
				nested[fmt.Sprintf("%d", i)] = entry
			}
			b.WriteString(formatCustomFields(nested, label+" - "))
		default:
			value := strings.TrimSpace(fmt.Sprintf("%v", v))
			if value != "" && value != "<nil>" {
				fmt.Fprintf(&b, "%s: %s\n", label, value)
			}
		}
	}
	return b.String()
}

// formatTaxonomies renders term names grouped by taxonomy.
func formatTaxonomies(taxonomies map[string][]string) string {
	if len(taxonomies) == 0 {
		return ""
	}

	names := make([]string, 0, len(taxonomies))
	for name := range taxonomies {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		terms := taxonomies[name]
		if len(terms) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", labelize(name), strings.Join(terms, ", "))
	}
	return strings.TrimSpace(b.String())
}

// formatCommerce renders the structured product block.
func formatCommerce(c *content.Commerce) string {
	var lines []string
	if c.Price != "" {
		lines = append(lines, "Price: $"+c.Price)
	}
	if c.RegularPrice != "" {
		lines = append(lines, "Regular Price: $"+c.RegularPrice)
	}
	if c.OnSale && c.SalePrice != "" {
		lines = append(lines, "Sale Price: $"+c.SalePrice)
	}
	if c.SKU != "" {
		lines = append(lines, "SKU: "+c.SKU)
	}
	if c.StockStatus != "" {
		lines = append(lines, "Stock Status: "+c.StockStatus)
	}
	if desc := strings.TrimSpace(StripHTML(c.ShortDescription)); desc != "" {
		lines = append(lines, "Short Description: "+desc)
	}
	if len(c.Attributes) > 0 {
		lines = append(lines, "", "Product Attributes:")
		for _, attr := range c.Attributes {
			if len(attr.Options) > 0 {
				lines = append(lines, attr.Name+": "+strings.Join(attr.Options, ", "))
			}
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// labelize turns a meta key into a readable label: underscores become spaces
// and the first letter is capitalized.
func labelize(key string) string {
	label := strings.ReplaceAll(strings.TrimPrefix(key, "_"), "_", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// collapseWhitespace squeezes runs of horizontal whitespace to one space and
// runs of 3+ newlines to 2.
func collapseWhitespace(s string) string {
	s = spacesRe.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	s = strings.Join(lines, "\n")
	s = linesRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
