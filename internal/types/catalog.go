package types

// Record is one data row of a tabular export keyed by its (lower-cased) header
type Record map[string]string

// NewRecord zips headers and values into a Record. The first occurrence of a
// duplicate header wins; columns missing from a short row are "".
func NewRecord(headers, values []string) Record {
	rec := make(Record, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		if _, dup := rec[h]; dup {
			continue
		}
		if i < len(values) {
			rec[h] = values[i]
		} else {
			rec[h] = ""
		}
	}
	return rec
}

// Get returns the trimmed value of a column, or "" when the column is absent
func (r Record) Get(column string) string {
	return trimSpace(r[column])
}

// LegacyCategoryRow is a row of the legacy categories export
type LegacyCategoryRow struct {
	RowNumber     int    `json:"rowNumber"`
	ID            int32  `json:"id"`
	ParentID      int32  `json:"parentId"` // 0 = root
	Title         string `json:"title"`
	Seo           string `json:"seo,omitempty"` // slug override
	SeoBottomText string `json:"seoBottomText,omitempty"`
	Sort          int32  `json:"sort"`
	Photo         string `json:"photo,omitempty"`
	LinkCat       string `json:"linkCat,omitempty"`
}

// IsRoot reports whether the row sits at the top of the tree
func (r LegacyCategoryRow) IsRoot() bool {
	return r.ParentID == 0
}

// LegacyProductRow is a row of the legacy products export.
// Numeric columns are kept as raw strings; they are normalized during import.
type LegacyProductRow struct {
	RowNumber       int    `json:"rowNumber"`
	ID              string `json:"id"`
	Code            string `json:"code"`
	Title           string `json:"title"`
	Text            string `json:"text,omitempty"`
	Price           string `json:"price"`
	SalePercent     string `json:"salePercent"`
	Stock           string `json:"stock"`
	Brand           string `json:"brand"` // old brand id, "0" = none
	BrandTitle      string `json:"brandTitle"`
	GuaranteeAmount string `json:"guaranteeAmount"`
	GuaranteeType   string `json:"guaranteeType"` // "0" none, "1" years, otherwise months
	Active          string `json:"active"`
	Photo           string `json:"photo,omitempty"`
	Color           string `json:"color,omitempty"`
	Category        string `json:"category"`
	Middle          string `json:"middle"`
	Parent          string `json:"parent"`
}

// CategoryKeys returns the join keys in the order they are tried against the link-cat map
func (r LegacyProductRow) CategoryKeys() []string {
	return []string{r.Category, r.Middle, r.Parent}
}

// Brand is a destination brand; the id is carried over from the legacy system
type Brand struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}

// Product is a destination product row
type Product struct {
	ID          int32   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Discount    float64 `json:"discount"`
	Quantity    int32   `json:"quantity"`
	BrandID     *int32  `json:"brandId,omitempty"`
	Warranty    *string `json:"warranty,omitempty"`
	Enabled     bool    `json:"enabled"`
}

// CategoryPayload is the body of POST /admin/categories
type CategoryPayload struct {
	Name         string  `json:"name"`
	Slug         string  `json:"slug"`
	Description  *string `json:"description"`
	DisplayOrder int32   `json:"display_order"`
	ParentID     *int32  `json:"parent_id"`
	Enabled      bool    `json:"enabled"`
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Int32Ptr returns a pointer to v
func Int32Ptr(v int32) *int32 {
	return &v
}
