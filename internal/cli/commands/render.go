package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapconnect/internal/config"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Renderer writes command output in the selected format.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	format string
}

// NewRenderer resolves format against out. "auto" becomes table on a
// terminal and json otherwise.
func NewRenderer(out, errOut io.Writer, format string) *Renderer {
	return NewRendererWithTTY(out, errOut, isTerminal(out), format)
}

// NewRendererWithTTY is NewRenderer with the terminal check supplied.
func NewRendererWithTTY(out, errOut io.Writer, tty bool, format string) *Renderer {
	if format == "" || format == config.OutputAuto {
		format = config.OutputJSON
		if tty {
			format = config.OutputTable
		}
	}
	return &Renderer{out: out, errOut: errOut, format: format}
}

// Format is the resolved output format.
func (r *Renderer) Format() string {
	return r.format
}

// Out returns the primary writer.
func (r *Renderer) Out() io.Writer {
	return r.out
}

// Errorf writes a message to the error stream.
func (r *Renderer) Errorf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.errOut, format, args...)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// YAML writes v as YAML.
func (r *Renderer) YAML(v any) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// newTable returns a go-pretty writer mirrored to the renderer's output.
func (r *Renderer) newTable(header ...string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	row := make(table.Row, len(header))
	for i, h := range header {
		row[i] = h
	}
	t.AppendHeader(row)
	return t
}

// Rows renders data with the given column order as a table or CSV.
// Columns not listed are appended in name order.
func (r *Renderer) Rows(cols []string, data []map[string]any) error {
	cols = withExtraColumns(cols, data)
	if r.format == config.OutputCSV {
		return r.writeCSV(cols, data)
	}

	if len(data) == 0 {
		_, _ = fmt.Fprintln(r.out, "(0 rows)")
		return nil
	}
	t := r.newTable(cols...)
	for _, rec := range data {
		row := make(table.Row, len(cols))
		for i, col := range cols {
			row[i] = formatValue(rec[col])
		}
		t.AppendRow(row)
	}
	t.Render()
	_, _ = fmt.Fprintf(r.out, "(%d rows)\n", len(data))
	return nil
}

// writeCSV writes RFC 4180 records; NULL is an empty field.
func (r *Renderer) writeCSV(cols []string, data []map[string]any) error {
	w := csv.NewWriter(r.out)
	if err := w.Write(cols); err != nil {
		return err
	}
	record := make([]string, len(cols))
	for _, rec := range data {
		for i, col := range cols {
			record[i] = ""
			if v := rec[col]; v != nil {
				record[i] = fmt.Sprintf("%v", v)
			}
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func withExtraColumns(cols []string, data []map[string]any) []string {
	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[c] = true
	}
	var extra []string
	for _, rec := range data {
		for k := range rec {
			if !known[k] {
				known[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(append([]string{}, cols...), extra...)
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
