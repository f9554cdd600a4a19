package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/searchforge/catalog-ranker/internal/browser"
	"github.com/searchforge/catalog-ranker/internal/config"
	"github.com/searchforge/catalog-ranker/internal/database"
	"github.com/searchforge/catalog-ranker/internal/evaluate"
	"github.com/searchforge/catalog-ranker/internal/events"
	"github.com/searchforge/catalog-ranker/internal/inference"
	"github.com/searchforge/catalog-ranker/internal/pipeline"
	"github.com/searchforge/catalog-ranker/internal/report"
	"github.com/searchforge/catalog-ranker/internal/search"
	"github.com/searchforge/catalog-ranker/pkg/logger"
)

func main() {
	var (
		siteKey    = flag.String("site", "", "site configuration key to run")
		configPath = flag.String("config", "sites.yaml", "path to the site configuration file")
		listSites  = flag.Bool("list-sites", false, "list available site configurations and exit")
		validate   = flag.String("validate", "", "validate the configuration for a site and exit")
		model      = flag.String("model", "", "override the configured inference model")
		maxResults = flag.Int("max-results", 0, "override max results per query")
		headless   = flag.Bool("headless", true, "run the browser headless")
		outputFile = flag.String("output", "", "override the report file path")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	sites, err := config.LoadSitesFile(*configPath)
	if err != nil {
		log.Error("failed to load site configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}

	if *listSites {
		fmt.Println("Available site configurations:")
		for _, key := range sites.AvailableSites() {
			site, _ := sites.Site(key)
			fmt.Printf("  %s: %s (%s)\n", key, site.SiteName, site.TargetURL)
		}
		return
	}

	if *validate != "" {
		problems := sites.ValidateSite(*validate)
		if len(problems) == 0 {
			fmt.Printf("Configuration for %q is valid\n", *validate)
			return
		}
		fmt.Printf("Configuration for %q has problems:\n", *validate)
		for _, problem := range problems {
			fmt.Printf("  - %s\n", problem)
		}
		os.Exit(1)
	}

	if *siteKey == "" {
		fmt.Fprintln(os.Stderr, "usage: catalog-ranker -site <key> [-config sites.yaml]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if problems := sites.ValidateSite(*siteKey); len(problems) > 0 {
		log.Error("site configuration is not runnable", "site", *siteKey, "problems", problems)
		os.Exit(1)
	}

	site, err := sites.Site(*siteKey)
	if err != nil {
		log.Error("unknown site", "error", err)
		os.Exit(1)
	}

	inferenceCfg := sites.Inference
	if *model != "" {
		inferenceCfg.Model = *model
	}
	if *maxResults > 0 {
		site.Scraping.MaxResultsPerQuery = *maxResults
	}
	if *outputFile != "" {
		site.Output.ReportFile = *outputFile
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := browser.New(&browser.Options{
		Headless:       *headless,
		Timeout:        cfg.Browser.Timeout,
		UserAgent:      cfg.Browser.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		Locale:         cfg.Browser.Locale,
		ProxyServer:    cfg.Browser.ProxyServer,
	})
	if err != nil {
		log.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	client := inference.NewClient(inference.Options{
		Endpoint:    inferenceCfg.Endpoint,
		Model:       inferenceCfg.Model,
		Timeout:     inferenceCfg.Timeout(),
		MaxAttempts: inferenceCfg.MaxRetries,
		Backoff:     inferenceCfg.Backoff(),
	}, log)

	evaluator := evaluate.New(client, sites.Evaluation.ApplyPostRanking, log)
	executor := search.NewExecutor(b, site, log)

	p := pipeline.New(executor, evaluator, report.NewWriter(log), pipeline.Options{
		SiteKey:    *siteKey,
		Site:       site,
		Inference:  inferenceCfg,
		Evaluation: sites.Evaluation,
		DelayMin:   sites.DelayBetweenSearches(),
		DelayMax:   sites.DelayBetweenSearchesMax(),
	}, log)

	if cfg.Database.Enabled() {
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		p = p.WithStore(database.NewRunRepository(db))
	}

	if cfg.Redis.Enabled() {
		publisher := events.NewPublisher(cfg.Redis, log)
		defer publisher.Close()
		p = p.WithPublisher(publisher)
	}

	final, err := p.Run(ctx)
	if err != nil {
		log.Error("batch run failed", "error", err)
		os.Exit(1)
	}

	log.Info("batch run finished",
		"site", *siteKey,
		"queries", final.OverallSummary.TotalQueries,
		"successful", final.OverallSummary.SuccessfulQueries,
		"failed", final.OverallSummary.FailedQueries,
		"avg_relevancy", final.OverallSummary.AverageRelevancyScore)
}
