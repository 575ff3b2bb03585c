package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/scrape"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
<title> Product Catalog </title>
<meta name="description" content="all the products">
<meta property="og:site_name" content="Catalog">
<meta name="empty" content="">
</head>
<body>
<h1>Catalog</h1>
<h2>Electronics</h2>
<h2>Books</h2>
<p>Welcome   to the
catalog.</p>
<a href="/widgets" title="widget page">Widgets</a>
<a href="https://other.example/ext">External</a>
<a href="/no-text"></a>
<img src="/logo.png" alt="logo">
<img alt="missing src">
<table>
<tr><th>Name</th><th>Price</th></tr>
<tr><td>Widget</td><td>9.99</td></tr>
<tr><td>Gadget</td><td>19.99</td></tr>
</table>
<form action="/search" method="post">
<input name="q" type="text" placeholder="query" required>
<select name="sort"></select>
</form>
<ul><li>alpha</li><li>beta</li></ul>
<ol><li>first</li></ol>
<ul></ul>
</body>
</html>`

func TestParseExtractsStructure(t *testing.T) {
	t.Parallel()

	p := New()
	doc := p.Parse(scrape.RawPage{
		URL:      "https://shop.example/catalog",
		FinalURL: "https://shop.example/catalog",
		Body:     []byte(samplePage),
	})

	assert.Equal(t, "https://shop.example/catalog", doc.URL)
	assert.Equal(t, "Product Catalog", doc.Title)
	assert.Contains(t, doc.Text, "Welcome to the catalog.")

	assert.Equal(t, "all the products", doc.Meta["description"])
	assert.Equal(t, "Catalog", doc.Meta["og:site_name"])
	assert.NotContains(t, doc.Meta, "empty")

	require.Len(t, doc.Links, 2)
	assert.Equal(t, "Widgets", doc.Links[0].Text)
	assert.Equal(t, "https://shop.example/widgets", doc.Links[0].Href)
	assert.Equal(t, "widget page", doc.Links[0].Title)
	assert.Equal(t, "https://other.example/ext", doc.Links[1].Href)

	require.Len(t, doc.Images, 1)
	assert.Equal(t, "https://shop.example/logo.png", doc.Images[0].Src)
	assert.Equal(t, "logo", doc.Images[0].Alt)

	assert.Equal(t, []string{"Catalog"}, doc.Headings["h1"])
	assert.Equal(t, []string{"Electronics", "Books"}, doc.Headings["h2"])
	assert.Empty(t, doc.Headings["h6"])

	require.Len(t, doc.Tables, 1)
	assert.Equal(t, []string{"Name", "Price"}, doc.Tables[0].Headers)
	require.Len(t, doc.Tables[0].Rows, 2)
	assert.Equal(t, []string{"Widget", "9.99"}, doc.Tables[0].Rows[0])

	require.Len(t, doc.Forms, 1)
	assert.Equal(t, "/search", doc.Forms[0].Action)
	assert.Equal(t, "POST", doc.Forms[0].Method)
	require.Len(t, doc.Forms[0].Inputs, 2)
	assert.Equal(t, "q", doc.Forms[0].Inputs[0].Name)
	assert.True(t, doc.Forms[0].Inputs[0].Required)
	assert.False(t, doc.Forms[0].Inputs[1].Required)

	require.Len(t, doc.Lists, 2)
	assert.Equal(t, "ul", doc.Lists[0].Type)
	assert.Equal(t, []string{"alpha", "beta"}, doc.Lists[0].Items)
	assert.Equal(t, "ol", doc.Lists[1].Type)
}

func TestParseCapsCollections(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 150; i++ {
		fmt.Fprintf(&b, `<a href="/p/%d">link %d</a>`, i, i)
	}
	for i := 0; i < 80; i++ {
		fmt.Fprintf(&b, `<img src="/img/%d.png">`, i)
	}
	b.WriteString("<ul>")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "<li>item %d</li>", i)
	}
	b.WriteString("</ul>")
	b.WriteString("<table><tr><th>h</th></tr>")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "<tr><td>row %d</td></tr>", i)
	}
	b.WriteString("</table>")
	b.WriteString("</body></html>")

	doc := New().Parse(scrape.RawPage{URL: "https://example.com", Body: []byte(b.String())})

	assert.Len(t, doc.Links, maxLinks)
	assert.Len(t, doc.Images, maxImages)
	require.Len(t, doc.Lists, 1)
	assert.Len(t, doc.Lists[0].Items, maxListItems)
	require.Len(t, doc.Tables, 1)
	assert.Len(t, doc.Tables[0].Rows, maxTableRows)
}

func TestParseDefaultFormMethod(t *testing.T) {
	t.Parallel()

	doc := New().Parse(scrape.RawPage{
		URL:  "https://example.com",
		Body: []byte(`<html><body><form action="/go"><input name="a"></form></body></html>`),
	})
	require.Len(t, doc.Forms, 1)
	assert.Equal(t, "GET", doc.Forms[0].Method)
}

func TestParseMalformedInputDegrades(t *testing.T) {
	t.Parallel()

	doc := New().Parse(scrape.RawPage{
		URL:  "https://example.com",
		Body: []byte{0xff, 0xfe, 0x00},
	})
	assert.Equal(t, "https://example.com", doc.URL)
	assert.NotNil(t, doc.Meta)
	assert.NotNil(t, doc.Headings)
}

func TestParseResolvesAgainstFinalURL(t *testing.T) {
	t.Parallel()

	doc := New().Parse(scrape.RawPage{
		URL:      "https://example.com/start",
		FinalURL: "https://moved.example/landing/",
		Body:     []byte(`<html><body><a href="next">Next</a></body></html>`),
	})
	require.Len(t, doc.Links, 1)
	assert.Equal(t, "https://moved.example/landing/next", doc.Links[0].Href)
}

func TestParseSkipsNonNavigableLinks(t *testing.T) {
	t.Parallel()

	doc := New().Parse(scrape.RawPage{
		URL: "https://example.com",
		Body: []byte(`<html><body>
			<a href="javascript:void(0)">Click</a>
			<a href="mailto:sales@example.com">Mail</a>
			<a href="tel:+15551234567">Call</a>
			<a href="data:text/plain,hi">Data</a>
			<a href="/catalog">Catalog</a>
		</body></html>`),
	})
	require.Len(t, doc.Links, 1)
	assert.Equal(t, "https://example.com/catalog", doc.Links[0].Href)
}

func TestStats(t *testing.T) {
	t.Parallel()

	stats := Stats(scrape.NormalizedDocument{
		Text:   "hello world",
		Links:  make([]scrape.Link, 3),
		Images: make([]scrape.Image, 2),
		Tables: make([]scrape.Table, 1),
	})
	assert.Equal(t, scrape.DocumentStats{
		ContentLength: 11,
		LinksFound:    3,
		ImagesFound:   2,
		TablesFound:   1,
		FormsFound:    0,
	}, stats)
}
