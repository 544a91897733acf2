package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractHrefs(t *testing.T) {
	html := `<html><head></head><body>
		<a href="/p/shoe-1">Shoe</a>
		<a href="https://shop.test/category/men">Men</a>
		<a href="#top">Top</a>
		<a href="javascript:void(0)">JS</a>
		<a href="mailto:help@shop.test">Mail</a>
		<a>No href</a>
		<a href="item/42?color=red">Relative</a>
	</body></html>`

	hrefs, err := ExtractHrefs(html, "https://shop.test/listing/")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://shop.test/p/shoe-1",
		"https://shop.test/category/men",
		"https://shop.test/listing/item/42?color=red",
	}, hrefs)
}

func TestExtractHrefs_BaseElementViaBaseURI(t *testing.T) {
	// document.baseURI already reflects <base href>, so resolution uses it as given
	html := `<html><head><base href="https://cdn.shop.test/"></head><body><a href="dp/1">x</a></body></html>`

	hrefs, err := ExtractHrefs(html, "https://cdn.shop.test/")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.shop.test/dp/1"}, hrefs)
}

func TestExtractHrefs_InvalidBase(t *testing.T) {
	_, err := ExtractHrefs("<html></html>", "://bad")
	assert.Error(t, err)
}

func TestWaitName(t *testing.T) {
	assert.Equal(t, "domcontentloaded", waitName(""))
	assert.Equal(t, "load", waitName(WaitLoad))
}
