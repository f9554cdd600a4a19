// Package search drives one search round-trip against a catalog site:
// navigate, enter the query, submit, detect zero-match outcomes, and
// enumerate result cards through the field extractor.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/searchforge/catalog-ranker/internal/browser"
	"github.com/searchforge/catalog-ranker/internal/config"
	"github.com/searchforge/catalog-ranker/internal/extract"
	"github.com/searchforge/catalog-ranker/internal/locator"
	"github.com/searchforge/catalog-ranker/internal/models"
)

// State names the stages of the search round-trip, for telemetry.
type State string

const (
	StateInit           State = "init"
	StatePageLoaded     State = "page_loaded"
	StateInputEntered   State = "input_entered"
	StateSubmitted      State = "submitted"
	StateResultsChecked State = "results_checked"
	StateEnumerated     State = "enumerated"
	StateNoResults      State = "no_results"
	StateFailed         State = "failed"
)

// Executor runs search round-trips for one site. DOM state is shared
// mutable state, so only one query may be in flight per Executor.
type Executor struct {
	browser   *browser.Browser
	resolver  *locator.Resolver
	extractor *extract.Extractor
	cfg       config.ScrapingConfig
	targetURL string
	logger    *slog.Logger
}

func NewExecutor(b *browser.Browser, site config.SiteConfig, logger *slog.Logger) *Executor {
	extractorCfg := extract.Config{
		LinkSelector:      site.Scraping.ProductLink,
		TitleSelectors:    site.Scraping.ProductTitle,
		SKUSelectors:      site.Scraping.ProductSKU,
		PriceSelectors:    site.Scraping.ProductPrice,
		QuantitySelectors: site.Scraping.ProductQuantity,
	}

	return &Executor{
		browser:   b,
		resolver:  locator.NewResolver(logger),
		extractor: extract.New(extractorCfg, site.TargetURL, logger),
		cfg:       site.Scraping,
		targetURL: site.TargetURL,
		logger:    logger.With("component", "search"),
	}
}

// Run executes one query. Terminal outcomes NoResults and Failed both
// yield an empty entry list; they are distinguished so callers can tell a
// legitimate zero-match from a broken round-trip.
func (e *Executor) Run(ctx context.Context, query string) ([]models.ProductEntry, models.QueryOutcome, error) {
	log := e.logger.With("query", query)
	state := StateInit

	page, err := e.browser.NewPage()
	if err != nil {
		return nil, models.OutcomeFailed, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	if err := e.browser.Navigate(page, e.targetURL, e.cfg.PageLoadTimeout()); err != nil {
		log.Error("page load failed", "state", state, "error", err)
		return nil, models.OutcomeFailed, err
	}
	state = StatePageLoaded

	input, err := e.enterQuery(page, query)
	if err != nil {
		log.Error("search input failed", "state", state, "error", err)
		return nil, models.OutcomeFailed, err
	}
	state = StateInputEntered

	if err := e.submit(page, input); err != nil {
		log.Error("search submit failed", "state", state, "error", err)
		return nil, models.OutcomeFailed, err
	}
	state = StateSubmitted

	if err := sleepCtx(ctx, e.cfg.SettleDelay()); err != nil {
		return nil, models.OutcomeFailed, err
	}

	if e.noResultsShown(page) {
		log.Info("search returned no results", "state", StateNoResults)
		return nil, models.OutcomeNoResults, nil
	}
	state = StateResultsChecked

	cards, err := e.resolver.ResolveAll(page, e.cfg.ProductCard, locator.Options{
		Timeout: e.cfg.WaitTimeout(),
	})
	if err != nil {
		// The no-results banner can render after the card container
		// briefly existed in the DOM, so check again before failing.
		if e.noResultsShown(page) {
			log.Info("search returned no results", "state", StateNoResults)
			return nil, models.OutcomeNoResults, nil
		}
		if errors.Is(err, locator.ErrNotFound) {
			log.Error("no result cards found", "state", state)
			return nil, models.OutcomeFailed, fmt.Errorf("no result cards matched: %w", err)
		}
		return nil, models.OutcomeFailed, err
	}

	entries := e.enumerate(cards, log)
	log.Info("search enumerated", "state", StateEnumerated, "cards", len(cards), "entries", len(entries))
	return entries, models.OutcomeEnumerated, nil
}

func (e *Executor) enterQuery(page playwright.Page, query string) (playwright.Locator, error) {
	input, err := e.resolver.Resolve(page, e.cfg.SearchInput, locator.Options{
		Interactable: true,
		Timeout:      e.cfg.LocatorTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("search input not found: %w", err)
	}

	if err := input.Fill(query); err != nil {
		return nil, fmt.Errorf("failed to fill search input: %w", err)
	}

	return input, nil
}

// submit clicks the search control, falling back to a confirm keystroke on
// the input when no submit control resolves.
func (e *Executor) submit(page playwright.Page, input playwright.Locator) error {
	button, err := e.resolver.Resolve(page, e.cfg.SearchButton, locator.Options{
		Timeout: e.cfg.LocatorTimeout(),
	})
	if err == nil {
		clickErr := button.Click()
		if clickErr == nil {
			return nil
		}
		e.logger.Warn("search button click failed, falling back to keystroke", "error", clickErr)
	} else {
		e.logger.Debug("no search button resolved, falling back to keystroke")
	}

	if err := input.Press("Enter"); err != nil {
		return fmt.Errorf("confirm keystroke failed: %w", err)
	}
	return nil
}

// noResultsShown checks each configured indicator element; any visible one
// whose text contains a recognized zero-results phrase counts. Indicators
// are independent substring checks.
func (e *Executor) noResultsShown(page playwright.Page) bool {
	for _, loc := range e.cfg.NoResults {
		indicator := page.Locator(loc.Selector()).First()

		count, err := indicator.Count()
		if err != nil || count == 0 {
			continue
		}
		visible, err := indicator.IsVisible()
		if err != nil || !visible {
			continue
		}

		text, err := indicator.TextContent()
		if err != nil {
			continue
		}
		if ContainsZeroResultsPhrase(text) {
			e.logger.Debug("no-results indicator matched", "expr", loc.Expr)
			return true
		}
	}
	return false
}

func (e *Executor) enumerate(cards []playwright.Locator, log *slog.Logger) []models.ProductEntry {
	entries := make([]models.ProductEntry, 0, len(cards))

	for i, card := range cards {
		if i >= e.cfg.MaxResultsPerQuery {
			break
		}

		html, err := card.InnerHTML()
		if err != nil {
			log.Warn("failed to read card markup", "index", i, "error", err)
			continue
		}

		entry, ok := e.extractor.EntryFromHTML(html)
		if !ok {
			log.Debug("card skipped, no title or url", "index", i)
			continue
		}
		entries = append(entries, entry)
	}

	return entries
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
