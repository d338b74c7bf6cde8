package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRecordDuplicateHeader(t *testing.T) {
	rec := NewRecord([]string{"id", "id", "title"}, []string{"1", "2"})
	assert.Equal(t, "1", rec["id"])
	assert.Equal(t, "", rec["title"])
	assert.Equal(t, "", rec.Get("missing"))
}

func TestRecordGetTrims(t *testing.T) {
	rec := Record{"title": "  Phones \t"}
	assert.Equal(t, "Phones", rec.Get("title"))
}
