package main

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/byteowlz/subtxt/internal/captions"
	"github.com/byteowlz/subtxt/internal/prompt"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// renderTracks lists every track with its formats; the Usable column marks
// tracks the pipeline can download and reduce.
func renderTracks(tracks captions.TrackSet) string {
	usable := tracks.Usable()
	var rows [][]string
	for track := range tracks.All() {
		formats := make([]string, len(track.Formats))
		for i, f := range track.Formats {
			formats[i] = string(f)
		}
		name := track.Name
		if name == "" {
			name = prompt.LanguageName(track.Language)
		}
		_, ok := usable.Track(track.Language)
		rows = append(rows, []string{
			track.Language,
			name,
			strings.Join(formats, ", "),
			yesNo(track.Automatic),
			yesNo(ok),
		})
	}
	return renderTable(
		[]string{"Code", "Name", "Formats", "Auto", "Usable"},
		rows,
		nil,
	)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
