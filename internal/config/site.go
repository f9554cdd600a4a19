package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/searchforge/catalog-ranker/internal/locator"
)

// SearchTask is one query to run against a site, with an optional shape
// override.
type SearchTask struct {
	Query      string `yaml:"query"`
	SearchType string `yaml:"search_type,omitempty"`
}

// ScrapingConfig supplies the locator sets and bounds for one site's
// search page. Locator order inside each set is a priority.
type ScrapingConfig struct {
	SearchInput  locator.Set `yaml:"search_input"`
	SearchButton locator.Set `yaml:"search_button"`
	ProductCard  locator.Set `yaml:"product_card"`
	NoResults    locator.Set `yaml:"no_results"`

	// Field selectors applied to each card's HTML snapshot.
	ProductLink     string   `yaml:"product_link"`
	ProductTitle    []string `yaml:"product_title"`
	ProductSKU      []string `yaml:"product_sku"`
	ProductPrice    []string `yaml:"product_price"`
	ProductQuantity []string `yaml:"product_quantity"`

	MaxResultsPerQuery int `yaml:"max_results_per_query"`
	LocatorTimeoutSecs int `yaml:"locator_timeout_secs"`
	WaitTimeoutSecs    int `yaml:"wait_timeout_secs"`
	PageLoadSecs       int `yaml:"page_load_timeout_secs"`
	SettleDelaySecs    int `yaml:"settle_delay_secs"`
}

func (s ScrapingConfig) LocatorTimeout() time.Duration {
	return secondsOr(s.LocatorTimeoutSecs, 5*time.Second)
}

func (s ScrapingConfig) WaitTimeout() time.Duration {
	return secondsOr(s.WaitTimeoutSecs, 10*time.Second)
}

func (s ScrapingConfig) PageLoadTimeout() time.Duration {
	return secondsOr(s.PageLoadSecs, 30*time.Second)
}

func (s ScrapingConfig) SettleDelay() time.Duration {
	return secondsOr(s.SettleDelaySecs, 2*time.Second)
}

// InferenceConfig configures the inference endpoint for a deployment.
type InferenceConfig struct {
	Endpoint    string `yaml:"endpoint"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
	BackoffSecs int    `yaml:"backoff_secs"`
}

func (i InferenceConfig) Timeout() time.Duration {
	return secondsOr(i.TimeoutSecs, 120*time.Second)
}

func (i InferenceConfig) Backoff() time.Duration {
	return secondsOr(i.BackoffSecs, time.Second)
}

// EvaluationConfig tunes the post-evaluation pass.
type EvaluationConfig struct {
	ApplyPostRanking bool `yaml:"apply_post_ranking"`
	DetailedAnalysis bool `yaml:"detailed_analysis"`
}

// OutputConfig names the report files a run writes.
type OutputConfig struct {
	ReportFile         string `yaml:"report_file"`
	DetailedReportFile string `yaml:"detailed_report_file"`
}

// SiteConfig is everything needed to run a batch against one site.
type SiteConfig struct {
	SiteName           string         `yaml:"site_name"`
	TargetURL          string         `yaml:"target_url"`
	SearchTasks        []SearchTask   `yaml:"search_tasks"`
	InventoryTestCases []SearchTask   `yaml:"inventory_test_cases"`
	Scraping           ScrapingConfig `yaml:"scraping"`
	Output             OutputConfig   `yaml:"output"`
}

// AllTasks returns the regular search tasks followed by the inventory test
// cases, in file order.
func (s SiteConfig) AllTasks() []SearchTask {
	tasks := make([]SearchTask, 0, len(s.SearchTasks)+len(s.InventoryTestCases))
	tasks = append(tasks, s.SearchTasks...)
	tasks = append(tasks, s.InventoryTestCases...)
	return tasks
}

// SitesFile is the on-disk shape of a site configuration file.
type SitesFile struct {
	Sites            map[string]SiteConfig `yaml:"site_configs"`
	Inference        InferenceConfig       `yaml:"inference"`
	Evaluation       EvaluationConfig      `yaml:"evaluation"`
	DelaySecs        int                   `yaml:"delay_between_searches_secs"`
	InterQueryMaxSec int                   `yaml:"delay_between_searches_max_secs"`
}

func (f SitesFile) DelayBetweenSearches() time.Duration {
	return secondsOr(f.DelaySecs, 2*time.Second)
}

func (f SitesFile) DelayBetweenSearchesMax() time.Duration {
	max := secondsOr(f.InterQueryMaxSec, 0)
	if min := f.DelayBetweenSearches(); max < min {
		return min
	}
	return max
}

// LoadSitesFile reads and decodes a YAML site configuration file.
func LoadSitesFile(path string) (*SitesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read site config: %w", err)
	}

	var file SitesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse site config: %w", err)
	}

	return &file, nil
}

// AvailableSites lists the configured site keys, sorted.
func (f *SitesFile) AvailableSites() []string {
	keys := make([]string, 0, len(f.Sites))
	for key := range f.Sites {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Site returns the configuration for one site key.
func (f *SitesFile) Site(key string) (SiteConfig, error) {
	site, ok := f.Sites[key]
	if !ok {
		return SiteConfig{}, fmt.Errorf("site %q not found, available: %v", key, f.AvailableSites())
	}
	return site, nil
}

// ValidateSite reports configuration problems for one site. An empty slice
// means the site is runnable.
func (f *SitesFile) ValidateSite(key string) []string {
	var errs []string

	site, err := f.Site(key)
	if err != nil {
		return []string{err.Error()}
	}

	if site.TargetURL == "" {
		errs = append(errs, "target_url is required")
	}
	if len(site.AllTasks()) == 0 {
		errs = append(errs, "search_tasks cannot be empty")
	}
	if len(site.Scraping.SearchInput) == 0 {
		errs = append(errs, "scraping.search_input cannot be empty")
	}
	if len(site.Scraping.ProductCard) == 0 {
		errs = append(errs, "scraping.product_card cannot be empty")
	}
	if site.Scraping.MaxResultsPerQuery <= 0 {
		errs = append(errs, "scraping.max_results_per_query must be positive")
	}
	if f.Inference.Endpoint == "" {
		errs = append(errs, "inference.endpoint is required")
	}
	if f.Inference.Model == "" {
		errs = append(errs, "inference.model is required")
	}

	return errs
}

func secondsOr(secs int, fallback time.Duration) time.Duration {
	if secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
