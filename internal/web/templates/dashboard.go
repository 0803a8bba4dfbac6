package templates

import (
	"context"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/sheetseal/internal/core"
)

// DashboardData is everything the landing page shows.
type DashboardData struct {
	Conversions []core.ConversionRecord
	Stats       map[core.ConversionStatus]int64
	Limiter     core.LimiterStatus
	Encodings   []string
	SheetName   string
	Signing     bool
	Result      *core.ConvertResult
	Error       *core.UserMessage
}

// Dashboard renders the upload form, the last result and recent conversions.
func Dashboard(d DashboardData) templ.Component {
	return page("Convert", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}

		if d.Error != nil {
			h.render(ctx, ErrorAlert(d.Error.Message, d.Error.Action, d.Error.Code))
		}
		if d.Result != nil {
			h.render(ctx, ConvertResult(*d.Result))
		}

		h.raw(`<section><h2>Convert a CSV</h2>`)
		h.raw(`<form method="post" action="/convert" enctype="multipart/form-data">`)
		h.raw(`<p><input type="file" name="file" accept=".csv,text/csv" required></p>`)
		h.raw(`<p><label>Sheet <input name="sheet" maxlength="31" value="`)
		h.text(d.SheetName)
		h.raw(`"></label> <label>Encoding <select name="encoding">`)
		for _, enc := range d.Encodings {
			h.raw(`<option`)
			if enc == "utf-8" {
				h.raw(` selected`)
			}
			h.raw(`>`)
			h.text(enc)
			h.raw(`</option>`)
		}
		h.raw(`</select></label> <label>Password <input type="password" name="password" autocomplete="new-password"></label></p>`)
		h.raw(`<p><button type="submit">Convert</button>`)
		if d.Signing {
			h.raw(` <span class="muted">documents are signed</span>`)
		}
		h.raw(`</p></form></section>`)

		h.raw(`<section><h2>Recent conversions</h2><p class="muted">`)
		h.rawf(`verified %d · mismatch %d · failed %d · active %d/%d`,
			d.Stats[core.StatusVerified], d.Stats[core.StatusMismatch], d.Stats[core.StatusFailed],
			d.Limiter.Active, d.Limiter.MaxConcurrent)
		h.raw(`</p>`)
		h.render(ctx, ConversionTable(d.Conversions))
		h.raw(`</section>`)
		return h.err
	}))
}

// ConversionTable lists ledger rows newest first.
func ConversionTable(rows []core.ConversionRecord) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		if len(rows) == 0 {
			h.raw(`<p class="muted">No conversions yet.</p>`)
			return h.err
		}
		h.raw(`<table><thead><tr><th>When</th><th>File</th><th>Status</th><th>Rows</th><th>Fingerprint</th><th></th></tr></thead><tbody>`)
		for _, rec := range rows {
			id := rec.ID.String()
			h.raw(`<tr><td>`)
			h.text(rec.CreatedAt.Format(time.DateTime))
			h.raw(`</td><td>`)
			h.text(rec.FileName)
			h.raw(`</td><td class="` + statusClass(string(rec.Status)) + `">`)
			h.text(string(rec.Status))
			h.rawf(`</td><td>%d</td><td><code>`, rec.Rows)
			h.text(shortFingerprint(rec.SourceFingerprint))
			h.raw(`</code></td><td><a href="/conversions/`)
			h.text(id)
			h.raw(`">details</a>`)
			if rec.DocumentCID != "" {
				h.raw(` · <a href="/api/conversions/`)
				h.text(id)
				h.raw(`/document">xlsx</a>`)
			}
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table>`)
		return h.err
	})
}

// ConvertResult summarizes a verified conversion.
func ConvertResult(res core.ConvertResult) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		id := res.ID.String()
		h.raw(`<section><h2 class="ok">Verified</h2><table>`)
		h.raw(`<tr><th>File</th><td>`)
		h.text(res.FileName)
		h.raw(`</td></tr><tr><th>Fingerprint</th><td><code>`)
		h.text(string(res.Fingerprint))
		h.rawf(`</code></td></tr><tr><th>Rows / cells</th><td>%d / %d</td></tr>`, res.Rows, res.Cells)
		h.raw(`<tr><th>Encrypted</th><td>` + yesNo(res.Encrypted) + `</td></tr>`)
		h.raw(`<tr><th>Watermarked</th><td>` + yesNo(res.Watermarked) + `</td></tr>`)
		if res.Signature != nil {
			h.raw(`<tr><th>Signature</th><td>`)
			h.text(res.Signature.Algorithm + " / " + res.Signature.HashAlg)
			h.raw(`</td></tr>`)
		}
		h.raw(`</table>`)
		if res.DocumentCID != "" {
			h.raw(`<p><a href="/api/conversions/`)
			h.text(id)
			h.raw(`/document">Download workbook</a></p>`)
		}
		h.raw(`</section>`)
		return h.err
	})
}
