package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tene/catalog-import/internal/legacy"
	"github.com/tene/catalog-import/internal/parsers/charset"
	"github.com/tene/catalog-import/internal/pipeline"
	"github.com/tene/catalog-import/internal/storage"
	"github.com/tene/catalog-import/internal/types"
)

var (
	inspectCategories string
	inspectProducts   string
	inspectImagesDir  string
	inspectEncoding   string
	inspectOutput     string
)

var errNoInputs = errors.New("nothing to inspect: pass --categories-csv and/or --products-csv")

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Summarize the legacy exports without importing",
	Long: `Parse the categories and products exports and report what a run would see:
tree shape, rows that would be skipped, brands, and photos missing from the
image directory. Nothing is sent to the admin API or the database.`,
	Example: `  catalog-import inspect --categories-csv categories.csv --products-csv products.csv
  catalog-import inspect --products-csv products.xlsx --images-dir ./photos --output json`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectCategories, "categories-csv", "", "Categories export (defaults to inputs.categories_csv)")
	inspectCmd.Flags().StringVar(&inspectProducts, "products-csv", "", "Products export (defaults to inputs.products_csv)")
	inspectCmd.Flags().StringVar(&inspectImagesDir, "images-dir", "", "Directory or .zip archive holding product photos (defaults to inputs.images_dir)")
	inspectCmd.Flags().StringVar(&inspectEncoding, "encoding", "", "Input encoding (defaults to inputs.encoding)")
	inspectCmd.Flags().StringVarP(&inspectOutput, "output", "o", "table", "Output format: table or json")
}

func runInspect(cmd *cobra.Command, args []string) error {
	if inspectOutput != "table" && inspectOutput != "json" {
		return fmt.Errorf("invalid output format %q: must be table or json", inspectOutput)
	}

	if cfg != nil {
		inspectCategories = orDefault(inspectCategories, cfg.Inputs.CategoriesCSV)
		inspectProducts = orDefault(inspectProducts, cfg.Inputs.ProductsCSV)
		inspectImagesDir = orDefault(inspectImagesDir, cfg.Inputs.ImagesDir)
		inspectEncoding = orDefault(inspectEncoding, cfg.Inputs.Encoding)
	}
	if inspectCategories == "" && inspectProducts == "" {
		return errNoInputs
	}

	enc, err := charset.ParseEncoding(inspectEncoding)
	if err != nil {
		return err
	}
	opts := legacy.Options{Encoding: enc}

	report := &pipeline.InspectReport{}
	var categories []types.LegacyCategoryRow

	if inspectCategories != "" {
		rows, rowErrs, err := legacy.ReadCategories(inspectCategories, opts)
		if err != nil {
			return fmt.Errorf("failed to read categories: %w", err)
		}
		for _, re := range rowErrs {
			logger.Warn().Int("line", re.Line).Str("field", re.Field).Str("value", re.Value).Msg("Invalid category row: " + re.Reason)
		}
		categories = rows
		report.Categories = pipeline.InspectCategories(rows, len(rowErrs))
	}

	if inspectProducts != "" {
		rows, err := legacy.ReadProducts(inspectProducts, opts)
		if err != nil {
			return fmt.Errorf("failed to read products: %w", err)
		}

		var images storage.Reader
		if inspectImagesDir != "" {
			opened, err := storage.Open(inspectImagesDir)
			if err != nil {
				logger.Warn().Err(err).Str("path", inspectImagesDir).Msg("Image directory unusable, photo check skipped")
			} else {
				defer opened.Close()
				images = opened
			}
		}

		report.Products, err = pipeline.InspectProducts(context.Background(), rows, categories, images)
		if err != nil {
			return fmt.Errorf("failed to inspect products: %w", err)
		}
	}

	if inspectOutput == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	displayInspectReport(report)
	return nil
}

func displayInspectReport(r *pipeline.InspectReport) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)

	if c := r.Categories; c != nil {
		fmt.Fprintln(w, "CATEGORIES\t")
		fmt.Fprintf(w, "rows\t%d\n", c.Rows)
		fmt.Fprintf(w, "invalid rows\t%d\n", c.InvalidRows)
		fmt.Fprintf(w, "roots\t%d\n", c.Roots)
		fmt.Fprintf(w, "children\t%d\n", c.Children)
		fmt.Fprintf(w, "missing parent\t%d\n", c.MissingParent)
		fmt.Fprintf(w, "max depth\t%d\n", c.MaxDepth)
		fmt.Fprintf(w, "with photos\t%d\n", c.WithPhotos)
		fmt.Fprintf(w, "link keys\t%d\n", c.LinkKeys)
		fmt.Fprintln(w, "\t")
	}

	if p := r.Products; p != nil {
		fmt.Fprintln(w, "PRODUCTS\t")
		fmt.Fprintf(w, "rows\t%d\n", p.Rows)
		fmt.Fprintf(w, "unresolvable ids\t%d\n", p.UnresolvableIDs)
		fmt.Fprintf(w, "empty names\t%d\n", p.EmptyNames)
		fmt.Fprintf(w, "brands\t%d\n", p.Brands)
		fmt.Fprintf(w, "with photos\t%d\n", p.WithPhotos)
		if p.MissingPhotos < 0 {
			fmt.Fprintln(w, "missing photos\tnot checked")
		} else {
			fmt.Fprintf(w, "missing photos\t%d\n", p.MissingPhotos)
		}
		fmt.Fprintf(w, "linkable\t%d\n", p.Linkable)
		if p.UnreferencedImages >= 0 {
			fmt.Fprintf(w, "unreferenced images\t%d\n", p.UnreferencedImages)
			for _, k := range p.UnreferencedKeys {
				fmt.Fprintf(w, "  %s\t\n", k)
			}
		}
	}

	w.Flush()
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
