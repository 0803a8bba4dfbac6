// Package templates renders the server's HTML pages as templ components.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// htmlWriter accumulates the first write error so components can render
// without checking every call.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *htmlWriter) rawf(format string, args ...any) {
	h.raw(fmt.Sprintf(format, args...))
}

// text writes s HTML-escaped.
func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) render(ctx context.Context, c templ.Component) {
	if h.err != nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

const styles = `body{font-family:system-ui,sans-serif;margin:0;background:#f6f7f9;color:#1f2933}
header{background:#1f2933;color:#fff;padding:12px 24px}
main{max-width:1100px;margin:24px auto;padding:0 24px}
section{background:#fff;border:1px solid #d9dee4;border-radius:6px;padding:16px 20px;margin-bottom:20px}
table{border-collapse:collapse;width:100%;font-size:14px}
th,td{text-align:left;padding:6px 8px;border-bottom:1px solid #e4e7eb}
code{font-size:12px;word-break:break-all}
.alert{border-left:4px solid #c53030;background:#fff5f5;padding:10px 14px}
.ok{color:#276749}.bad{color:#c53030}.muted{color:#7b8794}`

// page wraps body in the shared layout.
func page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(` · sheetseal</title><style>` + styles + `</style></head><body>`)
		h.raw(`<header><a href="/" style="color:#fff;text-decoration:none"><strong>sheetseal</strong></a>`)
		h.raw(` <span class="muted">verified CSV to XLSX</span></header><main>`)
		h.render(ctx, body)
		h.raw(`</main></body></html>`)
		return h.err
	})
}

// shortFingerprint trims a fingerprint for table cells.
func shortFingerprint(fp string) string {
	if len(fp) <= 16 {
		return fp
	}
	return fp[:16] + "…"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func statusClass(status string) string {
	switch strings.ToLower(status) {
	case "verified":
		return "ok"
	case "mismatch", "failed":
		return "bad"
	default:
		return "muted"
	}
}
