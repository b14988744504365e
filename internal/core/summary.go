package core

// summary.go renders the human-readable tables shown after a build and
// in the dataset listing.

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderSummary writes a per-dataset summary table for a finished run.
func RenderSummary(w io.Writer, res *RunResult) {
	t := newTable()
	t.AppendHeader(table.Row{"Dataset", "Rows", "Items", "Fetched", "Duration"})

	totalRows := 0
	for _, ds := range res.Datasets {
		fetched := ""
		if ds.Fetched {
			fetched = "yes"
		}
		t.AppendRow(table.Row{ds.Key, ds.Rows, ds.Items, fetched, ds.Duration.Round(time.Millisecond)})
		totalRows += ds.Rows
	}
	t.AppendFooter(table.Row{"total", totalRows, res.Items, "", res.Duration.Round(time.Millisecond)})

	fmt.Fprintln(w, t.Render())
}

// RenderDatasets writes the registry listing as a table.
func RenderDatasets(w io.Writer, infos []DatasetInfo) {
	t := newTable()
	t.AppendHeader(table.Row{"Key", "Group", "Label", "Source"})

	for _, info := range infos {
		source := info.SourceURL
		if source == "" {
			source = "(local only)"
		}
		t.AppendRow(table.Row{info.Key, info.Group, info.Label, source})
	}

	fmt.Fprintln(w, t.Render())
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Format = table.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	}
	t.Style().Options.DrawBorder = false
	return t
}

func (s *Service) renderSummary(res *RunResult) {
	if s.summary == nil {
		return
	}
	RenderSummary(s.summary, res)
}
