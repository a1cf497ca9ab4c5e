package access_test

import (
	"testing"

	"github.com/straye-as/crm-api/internal/access"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "widget pro", access.NormalizeKey("  Widget   Pro "))
	assert.Equal(t, "widget pro", access.NormalizeKey("WIDGET\tpro"))
	assert.Equal(t, "", access.NormalizeKey("   "))
}

func TestPriceBookIndexKey(t *testing.T) {
	a := access.PriceBookIndexKey("Widget Pro", "NOK")
	b := access.PriceBookIndexKey("  widget   pro", " nok ")
	c := access.PriceBookIndexKey("Widget Pro", "EUR")
	d := access.PriceBookIndexKey("Widget", "Pro NOK")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
}

func TestSplitDocPath(t *testing.T) {
	col, id := access.SplitDocPath("public/customers/abc")
	assert.Equal(t, "public/customers", col)
	assert.Equal(t, "abc", id)

	col, id = access.SplitDocPath(access.UserPath("u1"))
	assert.Equal(t, "users", col)
	assert.Equal(t, "u1", id)
}
