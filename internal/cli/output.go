package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// printer renders command results as an aligned table or as indented JSON.
type printer struct {
	json bool
	w    io.Writer
}

func newPrinter(format string, w io.Writer) (*printer, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return &printer{w: w}, nil
	case "json":
		return &printer{json: true, w: w}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q, expected text or json", format)
	}
}

// table prints rows under header in text mode and v in JSON mode.
func (p *printer) table(v any, header []string, rows [][]string) error {
	if p.json {
		return p.value(v)
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

// fields prints key/value pairs in text mode and v in JSON mode.
func (p *printer) fields(v any, kv ...string) error {
	if p.json {
		return p.value(v)
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(tw, "%s:\t%s\n", kv[i], kv[i+1])
	}
	return tw.Flush()
}

// message prints a confirmation line, or {"message": msg} in JSON mode.
func (p *printer) message(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if p.json {
		return p.value(map[string]string{"message": msg})
	}
	_, err := fmt.Fprintln(p.w, msg)
	return err
}

// text prints a raw block. JSON mode wraps it as {"key": s}.
func (p *printer) text(key, s string) error {
	if p.json {
		return p.value(map[string]string{key: s})
	}
	_, err := fmt.Fprintln(p.w, s)
	return err
}

func (p *printer) value(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}

func boolMark(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
