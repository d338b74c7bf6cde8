package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tene/catalog-import/internal/adminapi"
	"github.com/tene/catalog-import/internal/database"
	httpclient "github.com/tene/catalog-import/internal/http"
	"github.com/tene/catalog-import/internal/http/ratelimit"
	"github.com/tene/catalog-import/internal/images"
	"github.com/tene/catalog-import/internal/legacy"
	"github.com/tene/catalog-import/internal/metrics"
	"github.com/tene/catalog-import/internal/parsers/charset"
	"github.com/tene/catalog-import/internal/pipeline"
	"github.com/tene/catalog-import/internal/storage"
	"github.com/tene/catalog-import/internal/telemetry"
	"github.com/tene/catalog-import/internal/types"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"


var (
	skipCategories     bool
	skipBrands         bool
	skipProducts       bool
	skipImages         bool
	skipCategoryImages bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the catalog import",
	Long: `Import brands, categories, products and images from the legacy exports.

Stages run in order: brands, categories (with their images), products (with
category links), product images. A failed row never stops a stage; review the
log and re-run the stages that need it with the skip flags.`,
	Example: `  catalog-import run --base-url https://admin.example.com --token $ADMIN_TOKEN
  catalog-import run --skip-categories --rebuild-category-map
  catalog-import run --skip-brands --skip-categories --skip-products`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.String("base-url", "", "Admin API base URL")
	f.String("token", "", "Admin API bearer token")
	f.String("db-url", "", "Database URL")
	f.String("categories-csv", "", "Categories export (CSV or XLSX)")
	f.String("products-csv", "", "Products export (CSV or XLSX)")
	f.String("images-dir", "", "Directory or .zip archive holding product photos")
	f.String("encoding", "", "Input encoding: auto, utf-8, windows-1250, windows-1251, iso-8859-2")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	f.Bool("rebuild-category-map", false, "Match existing categories by slug when categories are skipped")
	f.BoolVar(&skipCategories, "skip-categories", false, "Skip category creation")
	f.BoolVar(&skipBrands, "skip-brands", false, "Skip brand import")
	f.BoolVar(&skipProducts, "skip-products", false, "Skip product import and product images")
	f.BoolVar(&skipImages, "skip-images", false, "Skip product image upload")
	f.BoolVar(&skipCategoryImages, "skip-category-images", false, "Skip category image upload")
}

// applyRunFlags copies explicitly set flags over the loaded config
func applyRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	strFlags := map[string]*string{
		"base-url":       &cfg.AdminAPI.BaseURL,
		"token":          &cfg.AdminAPI.Token,
		"db-url":         &cfg.Database.URL,
		"categories-csv": &cfg.Inputs.CategoriesCSV,
		"products-csv":   &cfg.Inputs.ProductsCSV,
		"images-dir":     &cfg.Inputs.ImagesDir,
		"encoding":       &cfg.Inputs.Encoding,
		"metrics-addr":   &cfg.Metrics.Addr,
	}
	for name, dst := range strFlags {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	if f.Changed("rebuild-category-map") {
		cfg.Categories.RebuildMapFromDB, _ = f.GetBool("rebuild-category-map")
	}
}

func runNeedsDatabase() bool {
	return !skipBrands || !skipProducts
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}()

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logger.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
	}
	defer database.Close()

	in, err := loadInputs()
	if err != nil {
		return err
	}

	deps, cleanup, err := buildDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := pipeline.Run(ctx, deps, in, pipeline.Options{
		SkipBrands:          skipBrands,
		SkipCategories:      skipCategories,
		SkipProducts:        skipProducts,
		SkipImages:          skipImages,
		SkipCategoryImages:  skipCategoryImages,
		RebuildCategoryMap:  cfg.Categories.RebuildMapFromDB,
		CategoryConcurrency: cfg.Concurrency.Categories,
		ImageConcurrency:    cfg.Concurrency.ProductImages,
		CategoryMaxPasses:   cfg.Categories.MaxPasses,
	})
	if err != nil {
		return err
	}

	if stats := database.Stats(); stats != nil {
		logger.Debug().
			Int64("acquires", stats.AcquireCount()).
			Dur("acquire_wait", stats.AcquireDuration()).
			Int32("max_conns", stats.MaxConns()).
			Msg("Database pool usage")
	}

	displayRunResult(result)
	return nil
}

func loadInputs() (pipeline.Inputs, error) {
	var in pipeline.Inputs

	enc, err := charset.ParseEncoding(cfg.Inputs.Encoding)
	if err != nil {
		return in, err
	}
	opts := legacy.Options{Encoding: enc}

	// products need the category rows for their link keys
	if !skipCategories || !skipProducts {
		rows, rowErrs, err := legacy.ReadCategories(cfg.Inputs.CategoriesCSV, opts)
		if err != nil {
			return in, fmt.Errorf("failed to read categories: %w", err)
		}
		for _, re := range rowErrs {
			logger.Warn().Int("line", re.Line).Str("field", re.Field).Str("value", re.Value).Msg("Skipping category row: " + re.Reason)
		}
		in.Categories = rows
		in.CategoryRowErrors = len(rowErrs)
		logger.Info().Int("rows", len(rows)).Int("invalid", len(rowErrs)).Str("path", cfg.Inputs.CategoriesCSV).Msg("Categories loaded")
	}

	if !skipBrands || !skipProducts {
		rows, err := legacy.ReadProducts(cfg.Inputs.ProductsCSV, opts)
		if err != nil {
			return in, fmt.Errorf("failed to read products: %w", err)
		}
		in.Products = rows
		logger.Info().Int("rows", len(rows)).Str("path", cfg.Inputs.ProductsCSV).Msg("Products loaded")
	}

	return in, nil
}

// buildDeps wires the collaborators; cleanup releases the image source
func buildDeps() (pipeline.Deps, func(), error) {
	var deps pipeline.Deps
	cleanup := func() {}

	if runNeedsDatabase() {
		deps.Store = database.NewStore(database.Pool())
	}

	// Admin and storage calls are never retried; a repeated create could duplicate a category.
	adminClient := httpclient.NewClient(httpclient.Options{
		Target:             "admin",
		Timeout:            cfg.AdminAPI.Timeout,
		UserAgent:          cfg.AdminAPI.UserAgent,
		InsecureSkipVerify: cfg.AdminAPI.InsecureSkipVerify,
		RateLimit:          ratelimit.DefaultConfig(),
	})
	storageClient := httpclient.NewClient(httpclient.Options{
		Target:             "storage",
		Timeout:            cfg.AdminAPI.Timeout,
		UserAgent:          cfg.AdminAPI.UserAgent,
		InsecureSkipVerify: cfg.AdminAPI.InsecureSkipVerify,
		RateLimit:          ratelimit.DefaultConfig(),
	})
	api := adminapi.New(cfg.AdminAPI.BaseURL, cfg.AdminAPI.Token, adminClient, storageClient)
	if !skipCategories {
		if cfg.AdminAPI.Token == "" {
			logger.Warn().Msg("Admin API token is empty, category creation will likely be rejected")
		}
		deps.API = api
	}

	var categorySource, productSource images.Source
	if !skipCategories && !skipCategoryImages {
		legacyClient := httpclient.NewClient(httpclient.Options{
			Target:    "legacy",
			Timeout:   cfg.LegacyImages.Timeout,
			UserAgent: cfg.AdminAPI.UserAgent,
			RateLimit: ratelimit.Config{
				RequestsPerSecond: cfg.LegacyImages.RequestsPerSecond,
				MaxRetries:        cfg.LegacyImages.MaxRetries,
				InitialBackoffMs:  cfg.LegacyImages.InitialBackoffMs,
				MaxBackoffMs:      cfg.LegacyImages.MaxBackoffMs,
			},
			Breaker: httpclient.BreakerConfig{
				Enabled:      cfg.LegacyImages.Breaker.Enabled,
				MinRequests:  cfg.LegacyImages.Breaker.MinRequests,
				FailureRatio: cfg.LegacyImages.Breaker.FailureRatio,
				OpenTimeout:  cfg.LegacyImages.Breaker.OpenTimeout,
			},
		})
		categorySource = images.NewHTTPSource(legacyClient, cfg.LegacyImages.BaseURL)
	}
	if !skipProducts && !skipImages {
		dir, err := storage.Open(cfg.Inputs.ImagesDir)
		if err != nil {
			return deps, cleanup, fmt.Errorf("image directory unusable (use --skip-images to continue without it): %w", err)
		}
		cleanup = func() { _ = dir.Close() }
		productSource = images.NewDirSource(dir)
	}
	if categorySource != nil || productSource != nil {
		deps.Images = images.NewUploader(api, categorySource, productSource)
	}

	return deps, cleanup, nil
}

func displayRunResult(r *types.RunResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "RUN ID\t%s\n\n", r.RunID)
	fmt.Fprintln(w, "STAGE\tRESULT")
	fmt.Fprintln(w, "-----\t------")

	if b := r.Brands; b != nil {
		fmt.Fprintf(w, "brands\tfound=%d inserted=%d failed=%d\n", b.Found, b.Inserted, b.Failed)
	} else {
		fmt.Fprintln(w, "brands\tskipped")
	}
	if c := r.Categories; c != nil {
		fmt.Fprintf(w, "categories\tcreated=%d failed=%d skipped=%d passes=%d\n", c.Created, c.Failed, c.Skipped, c.Passes)
		fmt.Fprintf(w, "category images\tuploaded=%d failed=%d\n", c.ImagesUploaded, c.ImagesFailed)
	} else {
		fmt.Fprintln(w, "categories\tskipped")
	}
	if p := r.Products; p != nil {
		fmt.Fprintf(w, "products\ttotal=%d inserted=%d skipped=%d\n", p.Total, p.Inserted, p.Skipped)
		fmt.Fprintf(w, "product links\tlinked=%d unlinked=%d failed=%d\n", p.Linked, p.Unlinked, p.LinkFailed)
	} else {
		fmt.Fprintln(w, "products\tskipped")
	}
	if i := r.Images; i != nil {
		fmt.Fprintf(w, "product images\ttotal=%d uploaded=%d failed=%d\n", i.Total, i.Uploaded, i.Failed)
	} else {
		fmt.Fprintln(w, "product images\tskipped")
	}
	fmt.Fprintf(w, "category map\t%d entries\n", len(r.CategoryMap))

	w.Flush()
}

