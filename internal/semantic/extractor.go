// Package semantic turns parsed documents into instruction-shaped results
// via an external reasoning service.
package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/scrape"
)

// contentBudget bounds how much page text is embedded in a prompt.
const contentBudget = 6000

// Confidence assigned to parsed versus degraded results.
const (
	confidenceParsed   = 8.0
	confidenceDegraded = 4.0
)

// Extractor implements scrape.SemanticExtractor on top of a
// CompletionService. Unparseable responses degrade to a raw-text result;
// only service failures are surfaced as errors.
type Extractor struct {
	svc    scrape.CompletionService
	logger *zap.Logger
}

// New creates an Extractor.
func New(svc scrape.CompletionService, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{svc: svc, logger: logger}
}

// Extract asks the reasoning service to apply the instruction to the
// document text and shapes the reply into an ExtractionResult.
func (e *Extractor) Extract(
	ctx context.Context,
	doc scrape.NormalizedDocument,
	instruction string,
	opts scrape.ExtractOptions,
) (scrape.ExtractionResult, error) {
	prompt := buildPrompt(doc, instruction, opts)

	reply, err := e.svc.Complete(ctx, prompt)
	if err != nil {
		return scrape.ExtractionResult{}, fmt.Errorf("completion service: %w", err)
	}

	data, ok := parsePayload(reply)
	if !ok {
		e.logger.Warn("reasoning reply not parseable, degrading to raw text",
			zap.String("url", doc.URL))
		return scrape.ExtractionResult{
			Kind:       scrape.KindUnstructured,
			Data:       map[string]any{},
			RawText:    reply,
			Confidence: confidenceDegraded,
			Degraded:   true,
		}, nil
	}

	result := scrape.ExtractionResult{
		Kind:       classifyKind(data),
		Data:       data,
		Confidence: confidenceParsed,
	}

	if opts.StructuredExtraction {
		entities := e.extractEntities(ctx, doc, instruction)
		if len(entities) > 0 {
			result.Entities = entities
			if result.Kind == scrape.KindFreeform {
				result.Kind = scrape.KindEntities
			}
		}
	}

	return result, nil
}

// extractEntities runs the secondary categorization pass. Failures here
// never fail the job; the primary result stands on its own.
func (e *Extractor) extractEntities(
	ctx context.Context,
	doc scrape.NormalizedDocument,
	instruction string,
) map[string][]string {
	reply, err := e.svc.Complete(ctx, buildEntityPrompt(doc, instruction))
	if err != nil {
		e.logger.Warn("entity pass failed", zap.String("url", doc.URL), zap.Error(err))
		return nil
	}
	raw, ok := parsePayload(reply)
	if !ok {
		e.logger.Warn("entity reply not parseable", zap.String("url", doc.URL))
		return nil
	}

	entities := map[string][]string{}
	for category, value := range raw {
		items, ok := value.([]any)
		if !ok {
			continue
		}
		var names []string
		for _, item := range items {
			if s, ok := item.(string); ok && s != "" {
				names = append(names, s)
			}
		}
		if len(names) > 0 {
			entities[category] = names
		}
	}
	return entities
}

func buildPrompt(doc scrape.NormalizedDocument, instruction string, opts scrape.ExtractOptions) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Extract information based on this instruction: %q\n\n", instruction)
	fmt.Fprintf(&sb, "From website: %s\n", doc.URL)
	fmt.Fprintf(&sb, "Content: %s\n\n", truncate(doc.Text, contentBudget))
	sb.WriteString("Based on the user's instruction, extract the relevant information in JSON format.\n")
	sb.WriteString("Focus on what the user specifically requested.\n")
	sb.WriteString("Structure your response appropriately for the type of data requested.\n")
	if opts.StrictSchema {
		sb.WriteString("Emit only the fields the instruction asks for, with no additional keys.\n")
	}
	sb.WriteString("\nReturn only valid JSON.")
	return sb.String()
}

func buildEntityPrompt(doc scrape.NormalizedDocument, instruction string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Identify the named entities relevant to this instruction: %q\n\n", instruction)
	fmt.Fprintf(&sb, "From website: %s\n", doc.URL)
	fmt.Fprintf(&sb, "Content: %s\n\n", truncate(doc.Text, contentBudget))
	sb.WriteString("Group the entities by category. Respond with a JSON object whose keys\n")
	sb.WriteString("are category names and whose values are arrays of entity strings.\n")
	sb.WriteString("\nReturn only valid JSON.")
	return sb.String()
}

// parsePayload pulls a JSON object out of a model reply: a fenced json
// block first, then the outermost brace slice, then the whole text.
func parsePayload(reply string) (map[string]any, bool) {
	for _, candidate := range payloadCandidates(reply) {
		var data map[string]any
		if err := json.Unmarshal([]byte(candidate), &data); err == nil {
			return data, true
		}
	}
	return nil, false
}

func payloadCandidates(reply string) []string {
	var candidates []string
	if _, after, found := strings.Cut(reply, "```json"); found {
		if fenced, _, ok := strings.Cut(after, "```"); ok {
			candidates = append(candidates, strings.TrimSpace(fenced))
		}
	}
	if start, end := strings.Index(reply, "{"), strings.LastIndex(reply, "}"); start >= 0 && end > start {
		candidates = append(candidates, reply[start:end+1])
	}
	candidates = append(candidates, strings.TrimSpace(reply))
	return candidates
}

// classifyKind tags the payload shape so export logic stays total.
func classifyKind(data map[string]any) scrape.ResultKind {
	for _, value := range data {
		items, ok := value.([]any)
		if !ok || len(items) == 0 {
			continue
		}
		allObjects := true
		for _, item := range items {
			if _, ok := item.(map[string]any); !ok {
				allObjects = false
				break
			}
		}
		if allObjects {
			return scrape.KindTabular
		}
	}
	return scrape.KindFreeform
}

// truncate cuts s to at most n bytes, backing off to a rune boundary so
// the prompt never carries a split multi-byte sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
