// Package report renders the inventory snapshot as a standalone HTML page.
package report

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/0xDTC/0xGodaddy/internal/record"
)

type Data struct {
	GeneratedAt  time.Time
	Records      []record.Record
	Availability map[record.Source]bool
}

type Renderer struct {
	path string
	tpl  *template.Template
}

func New(path string) *Renderer {
	return &Renderer{
		path: path,
		tpl:  template.Must(template.New("inventory").Parse(pageTemplate)),
	}
}

type providerStatus struct {
	Name      string
	Available bool
}

type row struct {
	Domain    string
	Subdomain string
	Type      string
	Data      string
	Source    string
	FirstSeen string
	Removed   bool
}

type page struct {
	Generated string
	Providers []providerStatus
	Domains   int
	Total     int
	Active    int
	Removed   int
	Rows      []row
}

// Path reports where the rendered document lands.
func (r *Renderer) Path() string {
	return r.path
}

// Render writes the report, replacing any previous one wholesale.
func (r *Renderer) Render(data Data) error {
	records := make([]record.Record, len(data.Records))
	copy(records, data.Records)
	record.Sort(records)

	view := page{
		Generated: data.GeneratedAt.Format("2006-01-02 15:04:05 MST"),
		Total:     len(records),
	}

	for source, available := range data.Availability {
		view.Providers = append(view.Providers, providerStatus{
			Name:      string(source),
			Available: available,
		})
	}
	sort.Slice(view.Providers, func(i, j int) bool {
		return view.Providers[i].Name < view.Providers[j].Name
	})

	domains := make(map[string]struct{})
	for _, rec := range records {
		domains[rec.Domain] = struct{}{}
		sub := rec.Subdomain
		if sub == "" {
			sub = "@"
		}
		removed := rec.Status == record.StatusRemoved
		if removed {
			view.Removed++
		} else {
			view.Active++
		}
		view.Rows = append(view.Rows, row{
			Domain:    rec.Domain,
			Subdomain: sub,
			Type:      rec.Type,
			Data:      rec.Data,
			Source:    string(rec.Source),
			FirstSeen: rec.DiscoveryDate,
			Removed:   removed,
		})
	}

	view.Domains = len(domains)

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}

	tmp := r.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := r.tpl.Execute(f, view); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("render report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace report: %w", err)
	}
	return nil
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>DNS Inventory</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 2rem; color: #1c1c1e; }
h1 { margin-bottom: 0.25rem; }
.meta { color: #666; margin-bottom: 1rem; }
.providers span { margin-right: 1rem; }
.ok { color: #0a7d33; }
.down { color: #b3261e; }
input#search { padding: 0.4rem; width: 20rem; margin: 1rem 0; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 0.4rem 0.6rem; border-bottom: 1px solid #ddd; font-size: 0.9rem; }
th { background: #f2f2f4; }
tr.removed td { color: #999; text-decoration: line-through; }
</style>
</head>
<body>
<h1>DNS Inventory</h1>
<p class="meta">Generated {{.Generated}} &middot; {{.Domains}} domains &middot; {{.Total}} records ({{.Active}} active, {{.Removed}} removed)</p>
<p class="providers">
{{- range .Providers}}
<span>{{.Name}}: {{if .Available}}<b class="ok">reachable</b>{{else}}<b class="down">unreachable</b>{{end}}</span>
{{- end}}
</p>
<input id="search" type="text" placeholder="Filter records..." onkeyup="filterRows()">
<table>
<thead>
<tr><th>Domain</th><th>Subdomain</th><th>Type</th><th>Data</th><th>Source</th><th>First Seen</th><th>Status</th></tr>
</thead>
<tbody id="records">
{{- range .Rows}}
<tr{{if .Removed}} class="removed"{{end}}>
<td>{{.Domain}}</td><td>{{.Subdomain}}</td><td>{{.Type}}</td><td>{{.Data}}</td><td>{{.Source}}</td><td>{{.FirstSeen}}</td><td>{{if .Removed}}removed{{else}}active{{end}}</td>
</tr>
{{- end}}
</tbody>
</table>
<script>
function filterRows() {
  var q = document.getElementById("search").value.toLowerCase();
  var rows = document.getElementById("records").rows;
  for (var i = 0; i < rows.length; i++) {
    rows[i].style.display = rows[i].textContent.toLowerCase().indexOf(q) >= 0 ? "" : "none";
  }
}
</script>
</body>
</html>
`
