// Package export renders extraction results into client-facing formats.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/beevik/etree"

	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/scrape"
)

// Exporter implements scrape.Exporter. Rendering is total over
// well-formed results; only unknown formats return an error.
type Exporter struct{}

// New creates an Exporter.
func New() *Exporter {
	return &Exporter{}
}

// Render produces an artifact for the requested format.
func (e *Exporter) Render(result scrape.ExtractionResult, format scrape.Format) (scrape.Artifact, error) {
	var (
		body        string
		contentType string
		err         error
	)
	switch format {
	case scrape.FormatJSON:
		body, err = renderJSON(result)
		contentType = "application/json"
	case scrape.FormatCSV:
		body, err = renderCSV(result)
		contentType = "text/csv"
	case scrape.FormatXML:
		body, err = renderXML(result)
		contentType = "application/xml"
	case scrape.FormatDashboard:
		body, err = renderDashboard(result)
		contentType = "text/html"
	default:
		return scrape.Artifact{}, fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return scrape.Artifact{}, fmt.Errorf("render %s: %w", format, err)
	}
	return scrape.Artifact{Format: format, ContentType: contentType, Body: body}, nil
}

// payload flattens an ExtractionResult into the document exports render.
func payload(result scrape.ExtractionResult) map[string]any {
	doc := map[string]any{}
	for key, value := range result.Data {
		doc[key] = value
	}
	if len(result.Entities) > 0 {
		doc["entities"] = result.Entities
	}
	if result.RawText != "" {
		doc["raw_text"] = result.RawText
	}
	doc["confidence"] = result.Confidence
	return doc
}

func renderJSON(result scrape.ExtractionResult) (string, error) {
	data, err := json.MarshalIndent(payload(result), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// renderCSV emits the first array-of-objects sub-structure as rows, or a
// single-row flattening of the top level when no tabular data exists.
func renderCSV(result scrape.ExtractionResult) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if rows, ok := tabularRows(result.Data); ok {
		header := unionKeys(rows)
		if err := w.Write(header); err != nil {
			return "", err
		}
		for _, row := range rows {
			record := make([]string, len(header))
			for i, key := range header {
				if value, ok := row[key]; ok {
					record[i] = cellValue(value)
				}
			}
			if err := w.Write(record); err != nil {
				return "", err
			}
		}
	} else {
		doc := payload(result)
		header := sortedKeys(doc)
		record := make([]string, len(header))
		for i, key := range header {
			record[i] = cellValue(doc[key])
		}
		if err := w.Write(header); err != nil {
			return "", err
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}

	w.Flush()
	return buf.String(), w.Error()
}

// tabularRows finds the first array-of-objects value, scanning keys in
// sorted order so output is deterministic.
func tabularRows(data map[string]any) ([]map[string]any, bool) {
	for _, key := range sortedKeys(data) {
		items, ok := data[key].([]any)
		if !ok || len(items) == 0 {
			continue
		}
		rows := make([]map[string]any, 0, len(items))
		for _, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				rows = nil
				break
			}
			rows = append(rows, obj)
		}
		if rows != nil {
			return rows, true
		}
	}
	return nil, false
}

func unionKeys(rows []map[string]any) []string {
	seen := map[string]struct{}{}
	for _, row := range rows {
		for key := range row {
			seen[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// cellValue renders scalars plainly and nested structures as compact JSON.
func cellValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool, float64, int, int64:
		return fmt.Sprint(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

func renderXML(result scrape.ExtractionResult) (string, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("scraped_data")
	writeXMLMap(root, payload(result))
	doc.Indent(2)
	return doc.WriteToString()
}

func writeXMLMap(parent *etree.Element, data map[string]any) {
	for _, key := range sortedKeys(data) {
		child := parent.CreateElement(xmlName(key))
		writeXMLValue(child, data[key])
	}
}

func writeXMLValue(el *etree.Element, value any) {
	switch v := value.(type) {
	case map[string]any:
		writeXMLMap(el, v)
	case map[string][]string:
		for _, key := range sortedKeysOf(v) {
			child := el.CreateElement(xmlName(key))
			writeXMLValue(child, v[key])
		}
	case []string:
		for _, item := range v {
			el.CreateElement("item").SetText(item)
		}
	case []any:
		for _, item := range v {
			writeXMLValue(el.CreateElement("item"), item)
		}
	case nil:
	default:
		el.SetText(fmt.Sprint(v))
	}
}

// xmlName sanitizes a free-form key into a legal XML element name.
func xmlName(key string) string {
	name := strings.ReplaceAll(strings.TrimSpace(key), " ", "_")
	if name == "" {
		return "_"
	}
	var b strings.Builder
	for i, r := range name {
		valid := r == '_' || r == '-' || r == '.' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9')
		if !valid {
			b.WriteRune('_')
			continue
		}
		if i == 0 && !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			b.WriteRune('_')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysOf(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
