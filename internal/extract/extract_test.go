package extract

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchforge/catalog-ranker/internal/models"
)

func testExtractor() *Extractor {
	return New(Config{
		LinkSelector:      "a.link",
		TitleSelectors:    []string{"div.name.longName", "h3.name.longName"},
		SKUSelectors:      []string{"span.sku-text", "span.vendor-value-wrap"},
		PriceSelectors:    []string{"span.formatted-price", "div.price-wrapper"},
		QuantitySelectors: []string{"span.inventory-available"},
	}, "https://shop.example.com/", slog.Default())
}

func TestEntryFromHTMLFullCard(t *testing.T) {
	card := `
<div class="productlist">
  <a class="link" href="/products/bk608">
    <div class="name longName">Brake Kit BK608</div>
  </a>
  <span class="sku-text">SKU: BK608</span>
  <span class="formatted-price">$45.99</span>
  <span class="inventory-available">12</span>
</div>`

	entry, ok := testExtractor().EntryFromHTML(card)
	require.True(t, ok)
	assert.Equal(t, "Brake Kit BK608", entry.Title)
	assert.Equal(t, "https://shop.example.com/products/bk608", entry.URL)
	assert.Equal(t, "BK608", entry.PartNumber)
	assert.Equal(t, "$45.99", entry.Price)
	assert.Equal(t, "12", entry.Quantity)
}

func TestTitleFallsBackToLinkText(t *testing.T) {
	card := `
<div class="productlist">
  <a class="link" href="https://shop.example.com/products/g100">Gasket G-100</a>
</div>`

	entry, ok := testExtractor().EntryFromHTML(card)
	require.True(t, ok)
	assert.Equal(t, "Gasket G-100", entry.Title)
	assert.Equal(t, "https://shop.example.com/products/g100", entry.URL)
}

func TestURLResolvedFromTitleAncestorAnchor(t *testing.T) {
	card := `
<div class="productlist">
  <a class="link" href="/p/513188">
    <span><h3 class="name longName">Wheel Seal 513188</h3></span>
  </a>
</div>`

	entry, ok := testExtractor().EntryFromHTML(card)
	require.True(t, ok)
	assert.Equal(t, "Wheel Seal 513188", entry.Title)
	assert.Equal(t, "https://shop.example.com/p/513188", entry.URL)
}

func TestEntryDroppedWithoutTitleAndURL(t *testing.T) {
	card := `
<div class="productlist">
  <span class="sku-text">SKU: ORPHAN-1</span>
  <span class="formatted-price">$9.99</span>
</div>`

	entry, ok := testExtractor().EntryFromHTML(card)
	assert.False(t, ok)
	assert.Equal(t, models.FieldMissing, entry.Title)
	assert.Equal(t, models.FieldMissing, entry.URL)
	// Other fields still extract independently.
	assert.Equal(t, "ORPHAN-1", entry.PartNumber)
	assert.Equal(t, "$9.99", entry.Price)
}

func TestSKUFromHiddenInput(t *testing.T) {
	card := `
<div class="productlist">
  <a class="link" href="/p/1"><div class="name longName">Part</div></a>
  <span class="vendor-value-wrap">
    <input type="hidden" name="sku-id" value="HID-42"/>
    <span class="vendor-value"><span>visible junk</span></span>
  </span>
</div>`

	entry, ok := testExtractor().EntryFromHTML(card)
	require.True(t, ok)
	assert.Equal(t, "HID-42", entry.PartNumber)
}

func TestSKUConcatenatedFromValueSpans(t *testing.T) {
	card := `
<div class="productlist">
  <a class="link" href="/p/1"><div class="name longName">Part</div></a>
  <span class="vendor-value-wrap">
    <span class="vendor-value">
      <span>BK</span><span class="d-none">HIDDEN</span><span>608</span><span>✓</span>
    </span>
  </span>
</div>`

	entry, ok := testExtractor().EntryFromHTML(card)
	require.True(t, ok)
	assert.Equal(t, "BK608", entry.PartNumber)
}

func TestSKUVendorLabelPrefixStripped(t *testing.T) {
	card := `
<div class="productlist">
  <a class="link" href="/p/1"><div class="name longName">Part</div></a>
  <span class="sku-text">Vendor Part #: VP-77 ✔</span>
</div>`

	entry, ok := testExtractor().EntryFromHTML(card)
	require.True(t, ok)
	assert.Equal(t, "VP-77", entry.PartNumber)
}

func TestPriceFromWrapperSkipsParentheticalSpans(t *testing.T) {
	card := `
<div class="productlist">
  <a class="link" href="/p/1"><div class="name longName">Part</div></a>
  <div class="price-wrapper">
    <span>$24</span><span>.99</span><span>(each)</span>
  </div>
</div>`

	entry, ok := testExtractor().EntryFromHTML(card)
	require.True(t, ok)
	assert.Equal(t, "$24.99", entry.Price)
}

func TestQuantityAbsenceIsNotAnError(t *testing.T) {
	card := `
<div class="productlist">
  <a class="link" href="/p/1"><div class="name longName">Part</div></a>
</div>`

	entry, ok := testExtractor().EntryFromHTML(card)
	require.True(t, ok)
	assert.Equal(t, models.FieldMissing, entry.Quantity)
}
