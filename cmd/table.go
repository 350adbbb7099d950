package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/jjenkins/althingi/internal/model"
)

// renderTable renders rows under headers. Columns listed in numeric are
// right aligned.
func renderTable(title string, headers []string, rows [][]string, numeric ...int) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if title != "" {
		tw.SetTitle(title)
	}

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	right := make(map[int]bool, len(numeric))
	for _, n := range numeric {
		right[n] = true
	}
	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if right[i] {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func formatDate(t time.Time, valid bool) string {
	if !valid {
		return "-"
	}
	return t.Format("2006-01-02")
}

// renderRunStats renders one row per stage run
func renderRunStats(results []*model.RunStats) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			string(r.Stage),
			strconv.Itoa(r.Total),
			strconv.Itoa(r.Created),
			strconv.Itoa(r.Updated),
			strconv.Itoa(r.Unchanged),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Missing),
			strconv.Itoa(r.NotFound),
			r.Duration().Round(time.Millisecond).String(),
		})
	}
	title := "Import summary"
	if len(results) > 0 {
		title = fmt.Sprintf("Import summary, session %d", results[0].Session)
	}
	return renderTable(title,
		[]string{"Stage", "Total", "Created", "Updated", "Unchanged", "Skipped", "Failed", "Missing", "Not found", "Duration"},
		rows, 1, 2, 3, 4, 5, 6, 7, 8, 9)
}
