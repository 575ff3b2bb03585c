package semantic

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/scrape"
)

type fakeCompletion struct {
	replies []string
	errs    []error
	prompts []string
}

func (f *fakeCompletion) Complete(_ context.Context, prompt string) (string, error) {
	call := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	var err error
	if call < len(f.errs) {
		err = f.errs[call]
	}
	reply := ""
	if call < len(f.replies) {
		reply = f.replies[call]
	}
	return reply, err
}

func testDoc() scrape.NormalizedDocument {
	return scrape.NormalizedDocument{
		URL:  "https://shop.example/products",
		Text: "Widget $9.99 Gadget $19.99",
	}
}

func TestExtractParsesFencedJSON(t *testing.T) {
	t.Parallel()

	svc := &fakeCompletion{replies: []string{
		"Here you go:\n```json\n{\"products\": [{\"name\": \"Widget\", \"price\": \"9.99\"}]}\n```",
	}}
	e := New(svc, zap.NewNop())

	result, err := e.Extract(context.Background(), testDoc(), "extract product prices", scrape.ExtractOptions{})
	require.NoError(t, err)
	assert.Equal(t, scrape.KindTabular, result.Kind)
	assert.Equal(t, confidenceParsed, result.Confidence)
	assert.False(t, result.Degraded)
	require.Contains(t, result.Data, "products")

	require.Len(t, svc.prompts, 1)
	assert.Contains(t, svc.prompts[0], "extract product prices")
	assert.Contains(t, svc.prompts[0], "https://shop.example/products")
}

func TestExtractBraceSliceFallback(t *testing.T) {
	t.Parallel()

	svc := &fakeCompletion{replies: []string{
		`Sure! The result is {"title": "Widget Shop"} as requested.`,
	}}
	e := New(svc, zap.NewNop())

	result, err := e.Extract(context.Background(), testDoc(), "get the title", scrape.ExtractOptions{})
	require.NoError(t, err)
	assert.Equal(t, scrape.KindFreeform, result.Kind)
	assert.Equal(t, "Widget Shop", result.Data["title"])
}

func TestExtractDegradesOnUnparseableReply(t *testing.T) {
	t.Parallel()

	svc := &fakeCompletion{replies: []string{"I could not find any structured data on this page."}}
	e := New(svc, zap.NewNop())

	result, err := e.Extract(context.Background(), testDoc(), "extract prices", scrape.ExtractOptions{})
	require.NoError(t, err)
	assert.Equal(t, scrape.KindUnstructured, result.Kind)
	assert.True(t, result.Degraded)
	assert.Equal(t, confidenceDegraded, result.Confidence)
	assert.Contains(t, result.RawText, "could not find")
	assert.Empty(t, result.Data)
}

func TestExtractServiceErrorAborts(t *testing.T) {
	t.Parallel()

	svc := &fakeCompletion{errs: []error{errors.New("quota exceeded")}}
	e := New(svc, zap.NewNop())

	_, err := e.Extract(context.Background(), testDoc(), "extract prices", scrape.ExtractOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestExtractStructuredAddsEntities(t *testing.T) {
	t.Parallel()

	svc := &fakeCompletion{replies: []string{
		`{"summary": "two products"}`,
		`{"products": ["Widget", "Gadget"], "currencies": ["USD"], "junk": 42}`,
	}}
	e := New(svc, zap.NewNop())

	result, err := e.Extract(context.Background(), testDoc(), "extract products",
		scrape.ExtractOptions{StructuredExtraction: true})
	require.NoError(t, err)
	require.Len(t, svc.prompts, 2)
	assert.Contains(t, svc.prompts[1], "entities")
	assert.Equal(t, scrape.KindEntities, result.Kind)
	assert.Equal(t, []string{"Widget", "Gadget"}, result.Entities["products"])
	assert.NotContains(t, result.Entities, "junk")
}

func TestExtractEntityPassFailureIsSilent(t *testing.T) {
	t.Parallel()

	svc := &fakeCompletion{
		replies: []string{`{"summary": "ok"}`, ""},
		errs:    []error{nil, errors.New("timeout")},
	}
	e := New(svc, zap.NewNop())

	result, err := e.Extract(context.Background(), testDoc(), "extract",
		scrape.ExtractOptions{StructuredExtraction: true})
	require.NoError(t, err)
	assert.Equal(t, scrape.KindFreeform, result.Kind)
	assert.Nil(t, result.Entities)
}

func TestPromptTruncatesContent(t *testing.T) {
	t.Parallel()

	doc := testDoc()
	doc.Text = ""
	baseline := strings.Count(buildPrompt(doc, "summarize", scrape.ExtractOptions{}), "x")

	doc.Text = strings.Repeat("x", contentBudget+500)
	prompt := buildPrompt(doc, "summarize", scrape.ExtractOptions{})
	assert.Equal(t, contentBudget, strings.Count(prompt, "x")-baseline)
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	t.Parallel()

	// Multi-byte runes land across the cut point for most budgets.
	s := strings.Repeat("é", 100)
	for _, n := range []int{0, 1, 3, 50, 99, len(s)} {
		got := truncate(s, n)
		if !utf8.ValidString(got) {
			t.Fatalf("truncate(%d) produced invalid UTF-8: %q", n, got)
		}
		if len(got) > n {
			t.Fatalf("truncate(%d) returned %d bytes", n, len(got))
		}
	}
}

func TestPromptStrictSchemaDirective(t *testing.T) {
	t.Parallel()

	loose := buildPrompt(testDoc(), "summarize", scrape.ExtractOptions{})
	strict := buildPrompt(testDoc(), "summarize", scrape.ExtractOptions{StrictSchema: true})
	assert.NotContains(t, loose, "no additional keys")
	assert.Contains(t, strict, "no additional keys")
}

func TestClassifyKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data map[string]any
		want scrape.ResultKind
	}{
		{
			name: "array of objects is tabular",
			data: map[string]any{"rows": []any{map[string]any{"a": 1.0}}},
			want: scrape.KindTabular,
		},
		{
			name: "array of strings stays freeform",
			data: map[string]any{"names": []any{"a", "b"}},
			want: scrape.KindFreeform,
		},
		{
			name: "scalar payload is freeform",
			data: map[string]any{"title": "x"},
			want: scrape.KindFreeform,
		},
		{
			name: "empty array does not count",
			data: map[string]any{"rows": []any{}},
			want: scrape.KindFreeform,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyKind(tc.data); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
