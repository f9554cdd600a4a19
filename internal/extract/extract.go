// Package extract turns heterogeneous product-card markup into structured
// ProductEntry values. Every field has an ordered chain of extraction
// methods; the first method yielding a non-empty value wins, and a failure
// in one field never aborts the others.
package extract

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/searchforge/catalog-ranker/internal/models"
)

// glyphs that decorate SKU markup but carry no value.
var glyphRunes = []string{"✓", "☑", "✔"}

// labelPrefixes are stripped from SKU text, keeping only the trailing value.
var labelPrefixes = []string{"Vendor Part #:", "SKU:"}

// Config holds the per-site selectors the extractor works with. Supplied
// by the configuration collaborator; treated as opaque here.
type Config struct {
	LinkSelector      string
	TitleSelectors    []string
	SKUSelectors      []string
	PriceSelectors    []string
	QuantitySelectors []string
}

// Extractor extracts product fields from card HTML snapshots.
type Extractor struct {
	cfg     Config
	baseURL *url.URL
	logger  *slog.Logger
}

// New builds an Extractor. siteURL anchors relative links found in cards;
// an unparseable siteURL leaves links as-is.
func New(cfg Config, siteURL string, logger *slog.Logger) *Extractor {
	base, err := url.Parse(siteURL)
	if err != nil {
		base = nil
	}
	return &Extractor{
		cfg:     cfg,
		baseURL: base,
		logger:  logger.With("component", "extractor"),
	}
}

// EntryFromHTML extracts one ProductEntry from a card's HTML. The second
// return value is false when the card resolved neither title nor URL, in
// which case the entry must be discarded without raising an error.
func (e *Extractor) EntryFromHTML(cardHTML string) (models.ProductEntry, bool) {
	entry := models.NewProductEntry()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cardHTML))
	if err != nil {
		e.logger.Warn("unparseable card markup", "error", err)
		return entry, false
	}
	card := doc.Selection

	e.extractTitleAndURL(card, &entry)
	e.extractSKU(card, &entry)
	e.extractPrice(card, &entry)
	e.extractQuantity(card, &entry)

	return entry, entry.Resolved()
}

func (e *Extractor) extractTitleAndURL(card *goquery.Selection, entry *models.ProductEntry) {
	// Method 1: title sub-element inside the product link; the URL comes
	// from the nearest enclosing anchor.
	for _, titleSel := range e.cfg.TitleSelectors {
		title := card.Find(e.cfg.LinkSelector + " " + titleSel).First()
		if title.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(title.Text()); text != "" {
			entry.Title = text
		}
		if href, ok := title.Closest("a").Attr("href"); ok {
			entry.URL = e.absoluteURL(href)
		}
		if entry.Title != models.FieldMissing {
			return
		}
	}

	// Method 2: locate the link directly and search the title inside it.
	link := card.Find(e.cfg.LinkSelector).First()
	if link.Length() == 0 {
		return
	}
	if href, ok := link.Attr("href"); ok {
		entry.URL = e.absoluteURL(href)
	}
	for _, titleSel := range e.cfg.TitleSelectors {
		title := link.Find(titleSel).First()
		if title.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(title.Text()); text != "" {
			entry.Title = text
			return
		}
	}

	// Method 3: the link's own text.
	if text := strings.TrimSpace(link.Text()); text != "" {
		entry.Title = text
	}
}

func (e *Extractor) extractSKU(card *goquery.Selection, entry *models.ProductEntry) {
	var container *goquery.Selection
	for _, sel := range e.cfg.SKUSelectors {
		if found := card.Find(sel).First(); found.Length() > 0 {
			container = found
			break
		}
	}
	if container == nil {
		return
	}

	raw := skuFromContainer(container)
	if raw == "" {
		return
	}

	for _, prefix := range labelPrefixes {
		if at := strings.LastIndex(raw, prefix); at >= 0 {
			raw = strings.TrimSpace(raw[at+len(prefix):])
			break
		}
	}

	if raw != "" {
		entry.PartNumber = raw
	}
}

// skuFromContainer applies the SKU method chain: hidden input carrying the
// raw value, then concatenated visible value spans, then the container's
// own text with glyphs stripped.
func skuFromContainer(container *goquery.Selection) string {
	if hidden := container.Find("input[name='sku-id']").First(); hidden.Length() > 0 {
		if val, ok := hidden.Attr("value"); ok && strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}

	if valueSpan := container.Find("span.vendor-value").First(); valueSpan.Length() > 0 {
		var parts []string
		valueSpan.Find("span").Each(func(_ int, span *goquery.Selection) {
			if span.HasClass("d-none") {
				return
			}
			text := strings.TrimSpace(span.Text())
			if text == "" || containsGlyph(text) {
				return
			}
			parts = append(parts, text)
		})
		if len(parts) > 0 {
			return strings.Join(parts, "")
		}
	}

	return stripGlyphs(strings.TrimSpace(container.Text()))
}

func (e *Extractor) extractPrice(card *goquery.Selection, entry *models.ProductEntry) {
	for _, sel := range e.cfg.PriceSelectors {
		priceEl := card.Find(sel).First()
		if priceEl.Length() == 0 {
			continue
		}

		var price string
		if priceEl.HasClass("price-wrapper") {
			price = priceFromWrapper(priceEl)
		}
		if price == "" {
			price = strings.TrimSpace(priceEl.Text())
		}

		if price != "" {
			entry.Price = price
			return
		}
	}
}

// priceFromWrapper joins the first two non-parenthetical span texts of a
// composite price element, usually the currency and fraction parts.
func priceFromWrapper(wrapper *goquery.Selection) string {
	var parts []string
	wrapper.Find("span").Each(func(_ int, span *goquery.Selection) {
		if len(parts) >= 2 {
			return
		}
		text := strings.TrimSpace(span.Text())
		if text == "" || strings.HasPrefix(text, "(") || strings.HasSuffix(text, ")") {
			return
		}
		parts = append(parts, text)
	})
	return strings.Join(parts, "")
}

func (e *Extractor) extractQuantity(card *goquery.Selection, entry *models.ProductEntry) {
	// Quantity is optional; a card without it is not an error.
	for _, sel := range e.cfg.QuantitySelectors {
		qtyEl := card.Find(sel).First()
		if qtyEl.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(qtyEl.Text()); text != "" {
			entry.Quantity = text
			return
		}
	}
}

func (e *Extractor) absoluteURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return models.FieldMissing
	}
	if e.baseURL == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return e.baseURL.ResolveReference(ref).String()
}

func containsGlyph(text string) bool {
	for _, g := range glyphRunes {
		if strings.Contains(text, g) {
			return true
		}
	}
	return false
}

func stripGlyphs(text string) string {
	for _, g := range glyphRunes {
		text = strings.ReplaceAll(text, g, "")
	}
	return strings.TrimSpace(text)
}
