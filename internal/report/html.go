package report

import (
	"html/template"
	"io"

	"github.com/juststeveking/readycheck/internal/check"
	"github.com/juststeveking/readycheck/internal/score"
)

var htmlFuncs = template.FuncMap{
	"verdict":  Verdict,
	"status":   Status,
	"duration": FormatDuration,
	"latency":  formatLatency,
	"findings": findings,
	"title":    title,
	"pct":      func(f float64) float64 { return f * 100 },
	"class": func(s check.Status) string {
		switch s {
		case check.StatusPass:
			return "pass"
		case check.StatusFail:
			return "fail"
		case check.StatusWarn:
			return "warn"
		}
		return "error"
	},
	"catclass": func(s score.CategoryStatus) string {
		switch s {
		case score.StatusReady:
			return "pass"
		case score.StatusNeedsAttention:
			return "warn"
		case score.StatusNotReady:
			return "fail"
		}
		return "error"
	},
}

var htmlTemplate = template.Must(template.New("report").Funcs(htmlFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Readiness report · {{.Target}}</title>
<style>
body { font-family: system-ui, sans-serif; background: #16161e; color: #c0caf5; margin: 2rem; }
h1, h2 { color: #04D9FF; }
table { border-collapse: collapse; width: 100%; margin-bottom: 1.5rem; }
th, td { text-align: left; padding: .4rem .6rem; border-bottom: 1px solid #24283b; }
.pass { color: #00FF94; } .fail { color: #FF0055; font-weight: bold; }
.warn { color: #FFD700; } .error { color: #565f89; font-weight: bold; }
.muted { color: #565f89; }
</style>
</head>
<body>
<h1>Readiness report: {{.Target}}</h1>
<p class="{{if .Ready}}pass{{else}}fail{{end}}"><strong>{{verdict .Report}}</strong>
{{if .Scored}} · {{printf "%.1f" .OverallScore}}/100 · grade {{.Grade}} · threshold {{printf "%.0f" .PassThreshold}}{{end}}</p>
<p class="muted">run {{.RunID}} · {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}} · took {{duration .Duration}}</p>

<h2>Categories</h2>
<table>
<tr><th>Category</th><th>Score</th><th>Status</th><th>Pass</th><th>Fail</th><th>Warn</th><th>Error</th></tr>
{{range .Categories}}<tr><td>{{.Category}}</td><td>{{if .Scored}}{{printf "%.1f" .Score}}{{else}}-{{end}}</td><td class="{{catclass .Status}}">{{status .Status}}</td><td>{{.PassCount}}</td><td>{{.FailCount}}</td><td>{{.WarnCount}}</td><td>{{.ErrorCount}}</td></tr>
{{end}}</table>

{{if .CriticalFailures}}<h2>Critical failures</h2>
<ul>{{range .CriticalFailures}}<li class="fail">{{.Category}}/{{.Name}}: {{.Message}}</li>{{end}}</ul>
{{end}}
{{with .Load}}<h2>Load run</h2>
<p>{{.TotalRequests}} requests in {{duration .Elapsed}} · {{printf "%.1f" .ThroughputRPS}} req/s · error rate {{printf "%.2f" (pct .ErrorRate)}}%
· avg {{latency .LatencyAvgMS}} · p95 {{latency .LatencyP95MS}} · p99 {{latency .LatencyP99MS}}</p>
{{end}}
{{range .Categories}}{{$items := findings .}}{{if $items}}<h2>{{title .Category}}</h2>
<table>
<tr><th>Check</th><th>Status</th><th>Message</th><th>Remediation Advice</th></tr>
{{range $items}}<tr><td>{{.Name}}</td><td class="{{class .Status}}">{{.Status.Symbol}} {{.Status}}</td><td>{{.Message}}</td><td><i>{{.Remediation}}</i></td></tr>
{{end}}</table>
{{end}}{{end}}
</body>
</html>
`))

// WriteHTML renders doc as a standalone HTML page.
func WriteHTML(w io.Writer, doc Document) error {
	return htmlTemplate.Execute(w, doc)
}
