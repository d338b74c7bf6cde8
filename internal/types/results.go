package types

import "strings"

// BrandsResult summarizes the brand phase
type BrandsResult struct {
	Found    int
	Inserted int
	Failed   int
}

// CategoriesResult summarizes the category phase
type CategoriesResult struct {
	Created        int
	Failed         int
	Skipped        int
	ImagesUploaded int
	ImagesFailed   int
	Passes         int
}

// ProductsResult summarizes the product phase
type ProductsResult struct {
	Total      int
	Inserted   int
	Skipped    int
	Linked     int
	Unlinked   int
	LinkFailed int
}

// ImagesResult summarizes the product image pass
type ImagesResult struct {
	Total    int
	Uploaded int
	Failed   int
}

// RunResult is everything a run reports back to the CLI
type RunResult struct {
	RunID      string
	Brands     *BrandsResult
	Categories *CategoriesResult
	Products   *ProductsResult
	Images     *ImagesResult
	// CategoryMap is the old -> new category id mapping that was used for linking
	CategoryMap map[int32]int32
}

func trimSpace(s string) string {
	return strings.TrimSpace(s)
}
