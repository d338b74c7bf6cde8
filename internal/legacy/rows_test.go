package legacy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadCategories(t *testing.T) {
	path := writeFile(t, "categories.csv",
		"id,parent_id,title,seo,seo_bottom_text,sort,photo,link_cat\n"+
			"10,0, Electronics ,,Everything that beeps,1,elec.jpg,5\n"+
			"11,10,Phones,mobile,,x,,6\n"+
			"abc,0,Broken,,,,,\n"+
			"12,,Orphan,,,,,\n")

	rows, rowErrs, err := ReadCategories(path, Options{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, rowErrs, 2)

	assert.Equal(t, int32(10), rows[0].ID)
	assert.True(t, rows[0].IsRoot())
	assert.Equal(t, "Electronics", rows[0].Title)
	assert.Equal(t, "Everything that beeps", rows[0].SeoBottomText)
	assert.Equal(t, int32(1), rows[0].Sort)
	assert.Equal(t, "elec.jpg", rows[0].Photo)
	assert.Equal(t, "5", rows[0].LinkCat)
	assert.Equal(t, 2, rows[0].RowNumber)

	assert.Equal(t, int32(10), rows[1].ParentID)
	assert.Equal(t, "mobile", rows[1].Seo)
	assert.Equal(t, int32(0), rows[1].Sort, "unparseable sort falls back to 0")

	assert.Equal(t, "id", rowErrs[0].Field)
	assert.Equal(t, 4, rowErrs[0].Line)
	assert.Equal(t, "parent_id", rowErrs[1].Field)
	assert.Contains(t, rowErrs[1].Error(), "line 5")
}

func TestReadCategoriesMissingColumns(t *testing.T) {
	path := writeFile(t, "categories.csv", "id,name\n1,Phones\n")

	_, _, err := ReadCategories(path, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parent_id")
	assert.Contains(t, err.Error(), "title")
}

func TestReadProducts(t *testing.T) {
	path := writeFile(t, "news.csv",
		"id;code;title;text;price;sale_percent;stock;brand;brand_title;guarantee_amount;guarantee_type;active;photo;color;category;middle;parent\n"+
			"5;ALT-117371;Phone X;\"Line one\nLine two\";289..99;10;3;7;Acme;2;1;1;x.png;#FF0000;77;0;5\n")

	rows, err := ReadProducts(path, Options{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	p := rows[0]
	assert.Equal(t, "5", p.ID)
	assert.Equal(t, "ALT-117371", p.Code)
	assert.Equal(t, "Line one\nLine two", p.Text)
	assert.Equal(t, "289..99", p.Price)
	assert.Equal(t, "Acme", p.BrandTitle)
	assert.Equal(t, []string{"77", "0", "5"}, p.CategoryKeys())
}

func TestReadFileXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"ID", "Parent_ID", "Title"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"1", "0", "Root"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "categories.xlsx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	rows, rowErrs, err := ReadCategories(path, Options{})
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, rows, 1)
	assert.Equal(t, "Root", rows[0].Title)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv"), Options{})
	assert.Error(t, err)
}
