package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectorRendering(t *testing.T) {
	tests := []struct {
		name     string
		locator  Locator
		expected string
	}{
		{"css passes through", Locator{Expr: "div.product-card", Mode: ModeCSS}, "div.product-card"},
		{"unset mode passes through", Locator{Expr: "#searchInput"}, "#searchInput"},
		{"xpath gets prefixed", Locator{Expr: `button[contains(@class, 'search')]`, Mode: ModeXPath}, `xpath=button[contains(@class, 'search')]`},
		{"rooted xpath left alone", Locator{Expr: `//button[normalize-space()="Search"]`, Mode: ModeXPath}, `//button[normalize-space()="Search"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.locator.Selector())
		})
	}
}

func TestSetConstructorsPreserveOrder(t *testing.T) {
	css := CSSSet("#searchInput", "input[type='search']", "input.search-input")
	assert.Len(t, css, 3)
	assert.Equal(t, "#searchInput", css[0].Expr)
	assert.Equal(t, ModeCSS, css[0].Mode)
	assert.Equal(t, "input.search-input", css[2].Expr)

	xpath := XPathSet(`//button[contains(@class, 'search-bar__button')]`, `//button[normalize-space()="Search"]`)
	assert.Len(t, xpath, 2)
	assert.Equal(t, ModeXPath, xpath[1].Mode)
}
