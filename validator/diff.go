package validator

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/shibukawa/sqldoctest"
)

var (
	sectionFmt  = color.New(color.FgBlue).SprintFunc()
	testNameFmt = color.New(color.Bold).SprintFunc()
	errorFmt    = color.New(color.FgRed).SprintFunc()
	rowCountFmt = color.New(color.Faint).SprintfFunc()
	removedFmt  = color.New(color.FgMagenta).SprintfFunc()
	addedFmt    = color.New(color.FgYellow).SprintfFunc()
)

// Render writes a human-readable explanation of the failure: the expected
// and received tables side by side, then a combined cell-level diff.
func (f *Failure) Render(w io.Writer, test *sqldoctest.Test) {
	if f.Kind == KindQueryError {
		fmt.Fprintf(w, "%s failed due to %s:\n%v\n\n", testNameFmt(test.Header), errorFmt("error"), f.Err)
		return
	}

	fmt.Fprintf(w, "%s failed with:\n\n", testNameFmt(test.Header))

	fmt.Fprintf(w, "%s\n%s\n%s\n",
		sectionFmt("Expected"),
		StringifyTable(test.Output),
		rowCountFmt("(%d rows)", len(test.Output)))
	fmt.Fprintf(w, "%s\n%s\n%s\n",
		sectionFmt("Received"),
		StringifyTable(f.Received),
		rowCountFmt("(%d rows)", len(f.Received)))

	renderDiff(w, test.Output, f.Received)
}

// StringifyTable renders a row table as column-aligned text, one line per
// row, cells right-aligned and separated by " | ". An empty table renders
// as a "---" placeholder.
func StringifyTable(table [][]string) string {
	if len(table) == 0 {
		return "---"
	}

	widths := columnWidths(table, nil, func(left, _ string) int {
		return len(left)
	})

	var out strings.Builder

	for _, row := range table {
		for i, value := range row {
			if i != 0 {
				out.WriteString(" | ")
			}

			fmt.Fprintf(&out, "%*s", widths[i], value)
		}

		out.WriteByte('\n')
	}

	return strings.TrimSuffix(out.String(), "\n")
}

// renderDiff writes the combined diff view: equal cells plain and
// right-aligned, differing cells as a colored -expected+received pair.
// Missing rows and cells are treated as empty strings so tables of unequal
// shape still line up.
func renderDiff(w io.Writer, left, right [][]string) {
	fmt.Fprintln(w, sectionFmt("Diff"))

	widths := columnWidths(left, right, func(l, r string) int {
		if l == r {
			return len(l)
		}

		return len(l) + len(r) + 2
	})

	numRows := max(len(left), len(right))

	for i := range numRows {
		leftRow := rowAt(left, i)
		rightRow := rowAt(right, i)

		for j := range max(len(leftRow), len(rightRow)) {
			if j != 0 {
				fmt.Fprint(w, " | ")
			}

			l := cellAt(leftRow, j)
			r := cellAt(rightRow, j)

			if l == r {
				fmt.Fprintf(w, "%*s", widths[j], l)
			} else {
				padding := widths[j] - (len(l) + len(r) + 2)
				fmt.Fprintf(w, "%*s%s%s", padding, "", removedFmt("-%s", l), addedFmt("+%s", r))
			}
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
}

// columnWidths computes per-column display widths across both tables using
// cellWidth to measure one cell position. right may be nil.
func columnWidths(left, right [][]string, cellWidth func(l, r string) int) []int {
	var widths []int

	numRows := max(len(left), len(right))

	for i := range numRows {
		leftRow := rowAt(left, i)
		rightRow := rowAt(right, i)

		cols := max(len(leftRow), len(rightRow))
		for len(widths) < cols {
			widths = append(widths, 0)
		}

		for j := range cols {
			widths[j] = max(widths[j], cellWidth(cellAt(leftRow, j), cellAt(rightRow, j)))
		}
	}

	return widths
}

func rowAt(table [][]string, i int) []string {
	if i < len(table) {
		return table[i]
	}

	return nil
}

func cellAt(row []string, j int) string {
	if j < len(row) {
		return row[j]
	}

	return ""
}
