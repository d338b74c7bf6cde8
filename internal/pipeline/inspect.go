package pipeline

import (
	"context"
	"path"
	"strings"

	"github.com/tene/catalog-import/internal/normalize"
	"github.com/tene/catalog-import/internal/storage"
	"github.com/tene/catalog-import/internal/types"
)

// CategoryStats describes a categories export
type CategoryStats struct {
	Rows          int `json:"rows"`
	InvalidRows   int `json:"invalidRows"`
	Roots         int `json:"roots"`
	Children      int `json:"children"`
	MissingParent int `json:"missingParent"`
	// MaxDepth counts roots as depth 1; rows in a parent cycle are not counted
	MaxDepth   int `json:"maxDepth"`
	WithPhotos int `json:"withPhotos"`
	LinkKeys   int `json:"linkKeys"`
}

// ProductStats describes a products export
type ProductStats struct {
	Rows            int `json:"rows"`
	UnresolvableIDs int `json:"unresolvableIds"`
	EmptyNames      int `json:"emptyNames"`
	Brands          int `json:"brands"`
	WithPhotos      int `json:"withPhotos"`
	// MissingPhotos is -1 when no image directory was given
	MissingPhotos int `json:"missingPhotos"`
	Linkable      int `json:"linkable"`
	// UnreferencedImages counts image files no product row names; -1 without an image directory
	UnreferencedImages int      `json:"unreferencedImages"`
	UnreferencedKeys   []string `json:"unreferencedKeys,omitempty"`
}

// InspectReport summarizes the inputs of a run without side effects
type InspectReport struct {
	Categories *CategoryStats `json:"categories,omitempty"`
	Products   *ProductStats  `json:"products,omitempty"`
}

// InspectCategories summarizes category rows; invalid is the number of rows
// dropped while reading
func InspectCategories(rows []types.LegacyCategoryRow, invalid int) *CategoryStats {
	stats := &CategoryStats{Rows: len(rows) + invalid, InvalidRows: invalid}

	parents := make(map[int32]int32, len(rows))
	for _, r := range rows {
		parents[r.ID] = r.ParentID
	}

	for _, r := range rows {
		if r.IsRoot() {
			stats.Roots++
		} else {
			stats.Children++
			if _, ok := parents[r.ParentID]; !ok {
				stats.MissingParent++
			}
		}
		if r.Photo != "" {
			stats.WithPhotos++
		}
		if r.LinkCat != "" && r.LinkCat != "0" {
			stats.LinkKeys++
		}
		if d := depth(r.ID, parents); d > stats.MaxDepth {
			stats.MaxDepth = d
		}
	}
	return stats
}

// depth walks up to a root; 0 means the chain is broken or cyclic
func depth(id int32, parents map[int32]int32) int {
	seen := make(map[int32]bool)
	d := 0
	for {
		parent, ok := parents[id]
		if !ok || seen[id] {
			return 0
		}
		seen[id] = true
		d++
		if parent == 0 {
			return d
		}
		id = parent
	}
}

// InspectProducts summarizes product rows. images may be nil.
func InspectProducts(ctx context.Context, rows []types.LegacyProductRow, categories []types.LegacyCategoryRow, images storage.Reader) (*ProductStats, error) {
	stats := &ProductStats{
		Rows:               len(rows),
		Brands:             len(CollectBrands(rows)),
		MissingPhotos:      -1,
		UnreferencedImages: -1,
	}
	if images != nil {
		stats.MissingPhotos = 0
	}

	referenced := make(map[string]bool)
	for _, r := range rows {
		if r.Photo != "" {
			referenced[imageKey(r.Photo)] = true
		}
	}

	linkCats := make(map[string]bool)
	for _, c := range categories {
		if c.LinkCat != "" && c.LinkCat != "0" {
			linkCats[c.LinkCat] = true
		}
	}

	for _, r := range rows {
		if _, err := normalize.ParseProductID(r.Code, r.ID); err != nil {
			stats.UnresolvableIDs++
			continue
		}
		if r.Title == "" {
			stats.EmptyNames++
		}
		for _, k := range r.CategoryKeys() {
			if linkCats[k] {
				stats.Linkable++
				break
			}
		}
		if r.Photo == "" {
			continue
		}
		stats.WithPhotos++
		if images != nil {
			ok, err := images.Exists(ctx, r.Photo)
			if err != nil {
				return nil, err
			}
			if !ok {
				stats.MissingPhotos++
			}
		}
	}

	if images != nil {
		keys, err := images.List(ctx)
		if err != nil {
			return nil, err
		}
		stats.UnreferencedImages = 0
		for _, k := range keys {
			if !referenced[k] {
				stats.UnreferencedImages++
				stats.UnreferencedKeys = append(stats.UnreferencedKeys, k)
			}
		}
	}
	return stats, nil
}

// imageKey puts a photo name in the form storage keys are listed in
func imageKey(photo string) string {
	return strings.TrimPrefix(path.Clean("/"+photo), "/")
}
