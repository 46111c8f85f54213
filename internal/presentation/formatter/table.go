package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/halfmoor/go-screentime-monitor/internal/util"
)

type TableFormatter struct {
	w io.Writer
}

func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{w: w}
}

func (f *TableFormatter) Format(r *Report) error {
	if len(r.Sessions) > 0 {
		if err := f.formatSessions(r); err != nil {
			return err
		}
	}
	if len(r.Usage) > 0 {
		if err := f.formatUsage(r); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(f.w, "\nTotal: %s\n", r.Total)
	return err
}

func (f *TableFormatter) formatSessions(r *Report) error {
	headers := []string{"App", "Start", "End", "Duration", "Pauses", "Prompts"}
	rows := make([][]string, 0, len(r.Sessions))
	for _, s := range r.Sessions {
		end := s.End
		if s.Active {
			end = "active"
		}
		rows = append(rows, []string{
			s.Package, s.Start, end, s.Duration,
			fmt.Sprintf("%d", s.Pauses), fmt.Sprintf("%d", s.Suggestions),
		})
	}
	return f.printTable(headers, rows)
}

func (f *TableFormatter) formatUsage(r *Report) error {
	headers := []string{"App", "Usage", "Sessions"}
	rows := make([][]string, 0, len(r.Usage))
	for _, u := range r.Usage {
		rows = append(rows, []string{u.Package, u.Duration, fmt.Sprintf("%d", u.Sessions)})
	}
	return f.printTable(headers, rows)
}

func (f *TableFormatter) printTable(headers []string, rows [][]string) error {
	widths := columnWidths(headers, rows)

	if err := f.printBorder(widths, "┌", "┬", "┐"); err != nil {
		return err
	}
	if err := f.printRow(headers, widths); err != nil {
		return err
	}
	if err := f.printBorder(widths, "├", "┼", "┤"); err != nil {
		return err
	}
	for _, row := range rows {
		if err := f.printRow(row, widths); err != nil {
			return err
		}
	}
	return f.printBorder(widths, "└", "┴", "┘")
}

func (f *TableFormatter) printBorder(widths []int, left, mid, right string) error {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("─", w+2)
	}
	_, err := fmt.Fprintln(f.w, left+strings.Join(parts, mid)+right)
	return err
}

func (f *TableFormatter) printRow(cells []string, widths []int) error {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		pad := widths[i] - util.GetDisplayWidth(cell)
		if pad < 0 {
			pad = 0
		}
		parts[i] = " " + cell + strings.Repeat(" ", pad) + " "
	}
	_, err := fmt.Fprintln(f.w, "│"+strings.Join(parts, "│")+"│")
	return err
}

func columnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = util.GetDisplayWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := util.GetDisplayWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}
