// Package views renders the HTML pages of the data preparation UI as templ
// components.
package views

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/prep/internal/dataset"
	"github.com/JonMunkholm/prep/internal/ops"
	"github.com/JonMunkholm/prep/internal/session"
)

// SessionPage is everything the session page shows.
type SessionPage struct {
	Summary    session.Summary
	Preview    *dataset.Frame
	History    []session.Entry
	Operations []ops.Info
	Roles      *session.Roles
	Warnings   []string
}

// errWriter remembers the first write error so components can write freely
// and report once.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func esc(s string) string { return templ.EscapeString(s) }

// Layout wraps body in the page chrome.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		ew.printf(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		ew.printf(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		ew.printf(`<title>%s</title></head><body><header><a href="/">prep</a></header><main>`, esc(title))
		if ew.err != nil {
			return ew.err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		ew.printf(`</main></body></html>`)
		return ew.err
	})
}

// Landing lists live sessions and offers the upload form.
func Landing(sessions []session.Summary, maxSize int64) templ.Component {
	return Layout("Data preparation", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		ew.printf(`<section><h1>Upload a CSV file</h1>`)
		ew.printf(`<form action="/sessions" method="post" enctype="multipart/form-data">`)
		ew.printf(`<input type="file" name="file" accept=".csv,.tsv,.txt" required>`)
		ew.printf(`<label>Delimiter <select name="delimiter">`)
		for _, d := range []string{"comma", "tab", "semicolon", "pipe"} {
			ew.printf(`<option value="%s">%s</option>`, d, d)
		}
		ew.printf(`</select></label>`)
		ew.printf(`<label><input type="checkbox" name="no_header" value="true"> First row is data</label>`)
		ew.printf(`<button type="submit">Upload</button>`)
		ew.printf(`<p>Maximum size: %s MB</p></form></section>`, strconv.FormatInt(maxSize/(1024*1024), 10))

		ew.printf(`<section><h2>Sessions</h2>`)
		if len(sessions) == 0 {
			ew.printf(`<p>No active sessions.</p>`)
		} else {
			ew.printf(`<table><thead><tr><th>File</th><th>State</th><th>Rows</th><th>Columns</th><th>Steps</th><th>Last used</th></tr></thead><tbody>`)
			for _, s := range sessions {
				ew.printf(`<tr><td><a href="/sessions/%s">%s</a></td><td>%s</td><td>%d</td><td>%d</td><td>%d</td><td>%s</td></tr>`,
					s.ID, esc(s.Source.Name), s.State, s.Rows, s.Columns, s.Steps, s.LastUsed.Format("15:04:05"))
			}
			ew.printf(`</tbody></table>`)
		}
		ew.printf(`</section>`)
		return ew.err
	}))
}

// Session renders one session: its preview, operations and history.
func Session(p SessionPage) templ.Component {
	return Layout(p.Summary.Source.Name, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		s := p.Summary
		ew.printf(`<section><h1>%s</h1><p>%s, %d rows, %d columns, encoding %s</p>`,
			esc(s.Source.Name), s.State, s.Rows, s.Columns, esc(s.Source.Encoding))
		ew.printf(`<p><a href="/api/sessions/%s/export?format=csv">Download CSV</a> `, s.ID)
		ew.printf(`<a href="/api/sessions/%s/export?format=xlsx">Download XLSX</a> `, s.ID)
		ew.printf(`<a href="/api/sessions/%s/report">Report</a></p></section>`, s.ID)
		if ew.err != nil {
			return ew.err
		}

		if p.Preview != nil {
			if err := PreviewTable(p.Preview).Render(ctx, w); err != nil {
				return err
			}
		}

		if p.Roles != nil {
			ew.printf(`<section><h2>Roles</h2><p>Target: %s</p><p>Features: `, esc(p.Roles.Target))
			for i, f := range p.Roles.Features {
				if i > 0 {
					ew.printf(", ")
				}
				ew.printf("%s", esc(f))
			}
			ew.printf(`</p>`)
			for _, warn := range p.Warnings {
				ew.printf(`<p class="warning">%s</p>`, esc(warn))
			}
			ew.printf(`</section>`)
		}

		ew.printf(`<section><h2>Operations</h2><ul>`)
		for _, op := range p.Operations {
			ew.printf(`<li><code>%s</code> %s`, esc(op.Key), esc(op.Label))
			if len(op.Methods) > 0 {
				ew.printf(` <small>(`)
				for i, m := range op.Methods {
					if i > 0 {
						ew.printf(", ")
					}
					ew.printf("%s", esc(m))
				}
				ew.printf(`)</small>`)
			}
			ew.printf(`</li>`)
		}
		ew.printf(`</ul></section>`)

		ew.printf(`<section><h2>History</h2><ol>`)
		for _, e := range p.History {
			label := e.Action
			if e.Request != nil {
				label = e.Request.String()
			}
			ew.printf(`<li>%s: %d to %d rows, missing %+d</li>`, esc(label), e.RowsBefore, e.RowsAfter, e.MissingDelta)
		}
		ew.printf(`</ol></section>`)
		return ew.err
	}))
}

// PreviewTable renders the rows of f. Nulls show as an empty cell.
func PreviewTable(f *dataset.Frame) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		ew.printf(`<table class="preview"><thead><tr>`)
		for _, c := range f.Columns {
			ew.printf(`<th>%s<br><small>%s</small></th>`, esc(c.Name), c.Kind)
		}
		ew.printf(`</tr></thead><tbody>`)
		for _, rec := range f.Records() {
			ew.printf(`<tr>`)
			for _, cell := range rec {
				ew.printf(`<td>%s</td>`, esc(cell))
			}
			ew.printf(`</tr>`)
		}
		ew.printf(`</tbody></table>`)
		return ew.err
	})
}

// ErrorAlert is the fragment HTMX swaps in when a request fails.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		ew.printf(`<div class="alert alert-error" role="alert"><strong>%s</strong>`, esc(message))
		if action != "" {
			ew.printf(`<p>%s</p>`, esc(action))
		}
		ew.printf(`<small>Code: %s</small></div>`, esc(code))
		return ew.err
	})
}
