package extract

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// SumColumnOnSecondPage extracts the table on the document's second page
// (a fixed convention of this quiz format), finds the column matching the
// given name case-insensitively, and sums its numeric cells. Thousands
// separators are tolerated and unparseable cells skipped. Returns false when
// the document has fewer than two pages, no table, or no matching column.
func SumColumnOnSecondPage(data []byte, column string) (sum float64, ok bool) {
	// The pdf package panics on some malformed inputs; treat those as
	// "no usable table" like any other unreadable document.
	defer func() {
		if r := recover(); r != nil {
			sum, ok = 0, false
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, false
	}
	if r.NumPage() < 2 {
		return 0, false
	}
	page := r.Page(2)
	if page.V.IsNull() {
		return 0, false
	}
	rows, err := page.GetTextByRow()
	if err != nil {
		return 0, false
	}

	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, 0, len(row.Content))
		for _, word := range row.Content {
			if s := strings.TrimSpace(word.S); s != "" {
				cells = append(cells, s)
			}
		}
		if len(cells) > 0 {
			table = append(table, cells)
		}
	}
	return sumTableColumn(table, column)
}

// sumTableColumn treats the first row as headers, matches column
// case-insensitively, and sums parseable numeric cells below it.
func sumTableColumn(table [][]string, column string) (float64, bool) {
	if len(table) < 2 {
		return 0, false
	}
	idx := -1
	for i, header := range table[0] {
		if strings.EqualFold(strings.TrimSpace(header), column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, false
	}
	var sum float64
	for _, row := range table[1:] {
		if idx >= len(row) {
			continue
		}
		cell := strings.TrimSpace(strings.ReplaceAll(row[idx], ",", ""))
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			continue
		}
		sum += v
	}
	return sum, true
}
