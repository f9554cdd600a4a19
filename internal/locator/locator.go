// Package locator resolves volatile page elements through ordered fallback
// locator sets. Order is a priority, not interchangeable: the first locator
// that matches a live element wins.
package locator

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// ErrNotFound signals that every locator in a set was tried and none
// matched. Locator failure is structural (the element is missing), not
// transient, so there are no retries across the full set.
var ErrNotFound = errors.New("no locator in set matched")

// Mode is the addressing mode of a locator expression.
type Mode string

const (
	// ModeCSS addresses elements by CSS selector.
	ModeCSS Mode = "css"
	// ModeXPath addresses elements structurally by XPath.
	ModeXPath Mode = "xpath"
)

// Locator is a single addressable expression.
type Locator struct {
	Expr string `yaml:"expr" json:"expr"`
	Mode Mode   `yaml:"mode,omitempty" json:"mode,omitempty"`
}

// Selector renders the expression in playwright's selector syntax.
func (l Locator) Selector() string {
	if l.Mode == ModeXPath && !strings.HasPrefix(l.Expr, "//") {
		return "xpath=" + l.Expr
	}
	return l.Expr
}

// Set is an ordered sequence of fallback locators.
type Set []Locator

// CSSSet builds a Set of plain CSS locators, preserving order.
func CSSSet(exprs ...string) Set {
	set := make(Set, len(exprs))
	for i, expr := range exprs {
		set[i] = Locator{Expr: expr, Mode: ModeCSS}
	}
	return set
}

// XPathSet builds a Set of XPath locators, preserving order.
func XPathSet(exprs ...string) Set {
	set := make(Set, len(exprs))
	for i, expr := range exprs {
		set[i] = Locator{Expr: expr, Mode: ModeXPath}
	}
	return set
}

// Options bound a single resolution pass.
type Options struct {
	// Interactable waits for the element to be visible and enabled, not
	// merely present in the DOM.
	Interactable bool
	// Timeout applies per locator, not to the whole set. It is kept short
	// relative to the page timeout so a handful of failing locators does
	// not exhaust the overall budget.
	Timeout time.Duration
}

// Resolver walks locator sets against live pages.
type Resolver struct {
	logger *slog.Logger
}

func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{logger: logger.With("component", "locator")}
}

// Resolve tries each locator against the whole page in order and returns
// the first live match, or ErrNotFound once the set is exhausted.
func (r *Resolver) Resolve(page playwright.Page, set Set, opts Options) (playwright.Locator, error) {
	return r.resolve(func(selector string) playwright.Locator {
		return page.Locator(selector)
	}, set, opts)
}

// ResolveAll waits for the first locator in the set with at least one live
// match and returns every element it addresses, in document order.
func (r *Resolver) ResolveAll(page playwright.Page, set Set, opts Options) ([]playwright.Locator, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	for _, loc := range set {
		candidate := page.Locator(loc.Selector())

		err := candidate.First().WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateAttached,
			Timeout: playwright.Float(float64(timeout.Milliseconds())),
		})
		if err != nil {
			continue
		}

		all, err := candidate.All()
		if err != nil || len(all) == 0 {
			continue
		}

		r.logger.Debug("locator matched", "expr", loc.Expr, "count", len(all))
		return all, nil
	}

	return nil, ErrNotFound
}

// ResolveWithin scopes resolution to a parent element.
func (r *Resolver) ResolveWithin(parent playwright.Locator, set Set, opts Options) (playwright.Locator, error) {
	return r.resolve(func(selector string) playwright.Locator {
		return parent.Locator(selector)
	}, set, opts)
}

func (r *Resolver) resolve(locate func(string) playwright.Locator, set Set, opts Options) (playwright.Locator, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	state := playwright.WaitForSelectorStateAttached
	if opts.Interactable {
		state = playwright.WaitForSelectorStateVisible
	}

	for _, loc := range set {
		candidate := locate(loc.Selector()).First()

		err := candidate.WaitFor(playwright.LocatorWaitForOptions{
			State:   state,
			Timeout: playwright.Float(float64(timeout.Milliseconds())),
		})
		if err != nil {
			continue
		}

		if opts.Interactable {
			enabled, err := candidate.IsEnabled()
			if err != nil || !enabled {
				continue
			}
		}

		r.logger.Debug("locator matched", "expr", loc.Expr, "mode", loc.Mode)
		return candidate, nil
	}

	return nil, ErrNotFound
}
