package export

import (
	"encoding/json"
	"strings"
	"text/template"

	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/scrape"
)

// dashboardTemplate is a self-contained HTML shell that charts the
// extraction payload with Chart.js loaded from a CDN.
var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Extraction Dashboard</title>
<script src="https://cdn.jsdelivr.net/npm/chart.js@4"></script>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; color: #1f2430; }
h1 { font-size: 1.4rem; }
.meta { color: #6b7280; margin-bottom: 1.5rem; }
pre { background: #f3f4f6; padding: 1rem; border-radius: 6px; overflow-x: auto; }
canvas { max-width: 720px; }
</style>
</head>
<body>
<h1>Extraction Dashboard</h1>
<p class="meta">kind: {{.Kind}} &middot; confidence: {{.Confidence}}</p>
<canvas id="chart"></canvas>
<h2>Raw result</h2>
<pre id="raw"></pre>
<script>
const result = {{.PayloadJSON}};
document.getElementById("raw").textContent = JSON.stringify(result, null, 2);

// Chart numeric leaf values when present, else field counts per key.
const labels = [];
const values = [];
for (const [key, value] of Object.entries(result)) {
  if (typeof value === "number") {
    labels.push(key);
    values.push(value);
  } else if (Array.isArray(value)) {
    labels.push(key);
    values.push(value.length);
  }
}
if (labels.length > 0) {
  new Chart(document.getElementById("chart"), {
    type: "bar",
    data: {
      labels: labels,
      datasets: [{ label: "extracted values", data: values }]
    },
    options: { responsive: true, plugins: { legend: { display: false } } }
  });
}
</script>
</body>
</html>
`))

type dashboardData struct {
	Kind        scrape.ResultKind
	Confidence  float64
	PayloadJSON string
}

func renderDashboard(result scrape.ExtractionResult) (string, error) {
	data, err := json.Marshal(payload(result))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	err = dashboardTemplate.Execute(&b, dashboardData{
		Kind:        result.Kind,
		Confidence:  result.Confidence,
		PayloadJSON: string(data),
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
