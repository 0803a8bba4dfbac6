package templates

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/sheetseal/internal/core"
)

// ConversionPage shows one ledger row in full.
func ConversionPage(rec core.ConversionRecord) templ.Component {
	return page(rec.FileName, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		id := rec.ID.String()

		h.raw(`<section><h2>`)
		h.text(rec.FileName)
		h.raw(` <span class="` + statusClass(string(rec.Status)) + `">`)
		h.text(string(rec.Status))
		h.raw(`</span></h2><table>`)

		row := func(label, value string) {
			h.raw(`<tr><th>`)
			h.text(label)
			h.raw(`</th><td>`)
			h.text(value)
			h.raw(`</td></tr>`)
		}
		code := func(label, value string) {
			if value == "" {
				return
			}
			h.raw(`<tr><th>`)
			h.text(label)
			h.raw(`</th><td><code>`)
			h.text(value)
			h.raw(`</code></td></tr>`)
		}

		row("ID", id)
		row("Created", rec.CreatedAt.Format(time.RFC3339))
		row("Sheet", rec.SheetName)
		row("Encoding", rec.Encoding)
		h.rawf(`<tr><th>Size</th><td>%d bytes, %d rows, %d cells</td></tr>`, rec.BytesRead, rec.Rows, rec.Cells)
		code("Source fingerprint", rec.SourceFingerprint)
		if rec.ResultFingerprint != rec.SourceFingerprint {
			code("Workbook fingerprint", rec.ResultFingerprint)
		}
		code("Document CID", rec.DocumentCID)
		code("Signature CID", rec.SignatureCID)
		row("Encrypted", yesNo(rec.Encrypted))
		row("Watermarked", yesNo(rec.Watermarked))
		if rec.Error != "" {
			row("Error", rec.Error)
		}
		row("Duration", rec.Duration.String())
		h.raw(`</table>`)

		if rec.DocumentCID != "" {
			h.raw(`<p><a href="/api/conversions/`)
			h.text(id)
			h.raw(`/document">Download workbook</a>`)
			if rec.SignatureCID != "" {
				h.raw(` · <a href="/api/conversions/`)
				h.text(id)
				h.raw(`/signature">Signature envelope</a>`)
			}
			h.raw(`</p>`)
		}
		h.raw(`</section>`)
		return h.err
	}))
}

// ErrorAlert renders a user-facing error fragment.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="alert" role="alert"><strong>`)
		h.text(message)
		h.raw(`</strong>`)
		if action != "" {
			h.raw(`<br>`)
			h.text(action)
		}
		h.raw(` <span class="muted">(`)
		h.text(code)
		h.raw(`)</span></div>`)
		return h.err
	})
}

// ErrorPage is a full page around ErrorAlert.
func ErrorPage(msg core.UserMessage, status int) templ.Component {
	return page(http.StatusText(status), templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section>`)
		h.render(ctx, ErrorAlert(msg.Message, msg.Action, msg.Code))
		h.raw(`<p><a href="/">Back</a></p></section>`)
		return h.err
	}))
}
