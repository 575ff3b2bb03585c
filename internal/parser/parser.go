// Package parser turns raw HTML into a normalized structural document.
package parser

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/scrape"
)

// Collection caps keep payloads bounded on link farms and generated pages.
const (
	maxLinks     = 100
	maxImages    = 50
	maxTables    = 10
	maxTableRows = 20
	maxForms     = 5
	maxLists     = 10
	maxListItems = 20
)

// Structural extracts titles, text, links, images, headings, tables,
// forms and lists from fetched HTML. It never fails: pages that cannot
// be parsed as HTML degrade to an empty document carrying the page URL.
type Structural struct{}

// New creates a Structural parser.
func New() *Structural {
	return &Structural{}
}

// Parse builds a NormalizedDocument from a fetched page. Relative link
// and image URLs are resolved against the page's final URL.
func (p *Structural) Parse(page scrape.RawPage) scrape.NormalizedDocument {
	result := scrape.NormalizedDocument{
		URL:      page.URL,
		Meta:     map[string]string{},
		Headings: map[string][]string{},
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return result
	}

	base := baseURL(page)

	result.Title = strings.TrimSpace(doc.Find("title").First().Text())
	result.Text = collapseWhitespace(doc.Find("body").Text())
	if result.Text == "" {
		result.Text = collapseWhitespace(doc.Text())
	}
	result.Meta = extractMeta(doc)
	result.Links = extractLinks(doc, base)
	result.Images = extractImages(doc, base)
	result.Headings = extractHeadings(doc)
	result.Tables = extractTables(doc)
	result.Forms = extractForms(doc)
	result.Lists = extractLists(doc)

	return result
}

// Stats summarizes a parsed document for job metadata.
func Stats(doc scrape.NormalizedDocument) scrape.DocumentStats {
	return scrape.DocumentStats{
		ContentLength: len(doc.Text),
		LinksFound:    len(doc.Links),
		ImagesFound:   len(doc.Images),
		TablesFound:   len(doc.Tables),
		FormsFound:    len(doc.Forms),
	}
}

func baseURL(page scrape.RawPage) *url.URL {
	raw := page.FinalURL
	if raw == "" {
		raw = page.URL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return base
}

func extractMeta(doc *goquery.Document) map[string]string {
	meta := map[string]string{}
	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		name, _ := sel.Attr("name")
		if name == "" {
			name, _ = sel.Attr("property")
		}
		content, _ := sel.Attr("content")
		if name != "" && content != "" {
			meta[name] = content
		}
	})
	return meta
}

func extractLinks(doc *goquery.Document, base *url.URL) []scrape.Link {
	var links []scrape.Link
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		text := strings.TrimSpace(sel.Text())
		if href == "" || text == "" || skippedScheme(href) {
			return true
		}
		title, _ := sel.Attr("title")
		links = append(links, scrape.Link{
			Text:  text,
			Href:  resolveURL(base, href),
			Title: title,
		})
		return len(links) < maxLinks
	})
	return links
}

func extractImages(doc *goquery.Document, base *url.URL) []scrape.Image {
	var images []scrape.Image
	doc.Find("img").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		if src == "" {
			return true
		}
		alt, _ := sel.Attr("alt")
		title, _ := sel.Attr("title")
		images = append(images, scrape.Image{
			Src:   resolveURL(base, src),
			Alt:   alt,
			Title: title,
		})
		return len(images) < maxImages
	})
	return images
}

func extractHeadings(doc *goquery.Document) map[string][]string {
	headings := map[string][]string{}
	for _, tag := range []string{"h1", "h2", "h3", "h4", "h5", "h6"} {
		var values []string
		doc.Find(tag).Each(func(_ int, sel *goquery.Selection) {
			values = append(values, strings.TrimSpace(sel.Text()))
		})
		headings[tag] = values
	}
	return headings
}

func extractTables(doc *goquery.Document) []scrape.Table {
	var tables []scrape.Table
	doc.Find("table").EachWithBreak(func(_ int, tableSel *goquery.Selection) bool {
		rowSel := tableSel.Find("tr")

		var headers []string
		rowSel.First().Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, strings.TrimSpace(cell.Text()))
		})

		var rows [][]string
		rowSel.Each(func(i int, row *goquery.Selection) {
			if i == 0 || len(rows) >= maxTableRows {
				return
			}
			var cells []string
			row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(cell.Text()))
			})
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
		})

		if len(headers) > 0 || len(rows) > 0 {
			tables = append(tables, scrape.Table{Headers: headers, Rows: rows})
		}
		return len(tables) < maxTables
	})
	return tables
}

func extractForms(doc *goquery.Document) []scrape.Form {
	var forms []scrape.Form
	doc.Find("form").EachWithBreak(func(_ int, formSel *goquery.Selection) bool {
		var inputs []scrape.FormInput
		formSel.Find("input, select, textarea").Each(func(_ int, inputSel *goquery.Selection) {
			name, _ := inputSel.Attr("name")
			inputType, _ := inputSel.Attr("type")
			placeholder, _ := inputSel.Attr("placeholder")
			_, required := inputSel.Attr("required")
			inputs = append(inputs, scrape.FormInput{
				Name:        name,
				Type:        inputType,
				Placeholder: placeholder,
				Required:    required,
			})
		})

		action, _ := formSel.Attr("action")
		method, ok := formSel.Attr("method")
		if !ok || method == "" {
			method = "GET"
		}
		forms = append(forms, scrape.Form{
			Action: action,
			Method: strings.ToUpper(method),
			Inputs: inputs,
		})
		return len(forms) < maxForms
	})
	return forms
}

func extractLists(doc *goquery.Document) []scrape.ItemList {
	var lists []scrape.ItemList
	doc.Find("ul, ol").EachWithBreak(func(_ int, listSel *goquery.Selection) bool {
		var items []string
		listSel.Find("li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
			items = append(items, strings.TrimSpace(li.Text()))
			return len(items) < maxListItems
		})
		if len(items) > 0 {
			lists = append(lists, scrape.ItemList{
				Type:  goquery.NodeName(listSel),
				Items: items,
			})
		}
		return len(lists) < maxLists
	})
	return lists
}

// skippedScheme filters non-navigable anchors.
func skippedScheme(href string) bool {
	lower := strings.ToLower(strings.TrimSpace(href))
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func resolveURL(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
