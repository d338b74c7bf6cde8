package legacy

import (
	"fmt"
	"strconv"

	"github.com/tene/catalog-import/internal/types"
)

// RowError is a row-level data error; the row is skipped
type RowError struct {
	Line   int
	Field  string
	Value  string
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %s %q: %s", e.Line, e.Field, e.Value, e.Reason)
}

// Categories converts a categories export into typed rows, in file order.
// Rows with an unusable id or parent_id are returned as RowErrors.
func Categories(t *Table) ([]types.LegacyCategoryRow, []*RowError, error) {
	if err := t.requireColumns("id", "parent_id", "title"); err != nil {
		return nil, nil, err
	}

	rows := make([]types.LegacyCategoryRow, 0, len(t.Records))
	var rowErrs []*RowError

	for i, rec := range t.Records {
		line := lineAt(t, i)

		id, err := parseInt32(rec.Get("id"))
		if err != nil {
			rowErrs = append(rowErrs, &RowError{Line: line, Field: "id", Value: rec.Get("id"), Reason: err.Error()})
			continue
		}
		parentID, err := parseInt32(rec.Get("parent_id"))
		if err != nil {
			rowErrs = append(rowErrs, &RowError{Line: line, Field: "parent_id", Value: rec.Get("parent_id"), Reason: err.Error()})
			continue
		}
		// sort is cosmetic; a bad value falls back to 0
		sort, _ := parseInt32(rec.Get("sort"))

		rows = append(rows, types.LegacyCategoryRow{
			RowNumber:     line,
			ID:            id,
			ParentID:      parentID,
			Title:         rec.Get("title"),
			Seo:           rec.Get("seo"),
			SeoBottomText: rec.Get("seo_bottom_text"),
			Sort:          sort,
			Photo:         rec.Get("photo"),
			LinkCat:       rec.Get("link_cat"),
		})
	}

	return rows, rowErrs, nil
}

// Products converts a products export into typed rows, in file order.
// Values stay raw strings; validation happens during import.
func Products(t *Table) ([]types.LegacyProductRow, error) {
	if err := t.requireColumns("id", "code", "title"); err != nil {
		return nil, err
	}

	rows := make([]types.LegacyProductRow, 0, len(t.Records))
	for i, rec := range t.Records {
		rows = append(rows, types.LegacyProductRow{
			RowNumber:       lineAt(t, i),
			ID:              rec.Get("id"),
			Code:            rec.Get("code"),
			Title:           rec.Get("title"),
			Text:            rec.Get("text"),
			Price:           rec.Get("price"),
			SalePercent:     rec.Get("sale_percent"),
			Stock:           rec.Get("stock"),
			Brand:           rec.Get("brand"),
			BrandTitle:      rec.Get("brand_title"),
			GuaranteeAmount: rec.Get("guarantee_amount"),
			GuaranteeType:   rec.Get("guarantee_type"),
			Active:          rec.Get("active"),
			Photo:           rec.Get("photo"),
			Color:           rec.Get("color"),
			Category:        rec.Get("category"),
			Middle:          rec.Get("middle"),
			Parent:          rec.Get("parent"),
		})
	}
	return rows, nil
}

// ReadCategories reads and converts a categories export
func ReadCategories(path string, opts Options) ([]types.LegacyCategoryRow, []*RowError, error) {
	t, err := ReadFile(path, opts)
	if err != nil {
		return nil, nil, err
	}
	return Categories(t)
}

// ReadProducts reads and converts a products export
func ReadProducts(path string, opts Options) ([]types.LegacyProductRow, error) {
	t, err := ReadFile(path, opts)
	if err != nil {
		return nil, err
	}
	return Products(t)
}

func lineAt(t *Table, i int) int {
	if i < len(t.Lines) {
		return t.Lines[i]
	}
	return i + 2
}

func parseInt32(s string) (int32, error) {
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	return int32(v), nil
}
