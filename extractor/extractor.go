// Package extractor turns raw source text into ordered test specifications.
//
// Two delimiter conventions are supported: marker-delimited blocks embedded
// in source files (everything between a start marker and the nearest end
// marker) and whole-file documentation mode where the entire file is one
// spec block. Within a block the grammar is a minimal heading/fenced-code
// subset: heading lines build a composite test name, fenced code blocks
// carry the query text and the expected output table.
package extractor

import (
	"path/filepath"
	"strings"

	"github.com/shibukawa/sqldoctest"
)

// ExtractFile extracts all tests from one source file. Files with a
// documentation extension (.md) are treated as a single spec block;
// everything else is scanned for marker-delimited blocks.
//
// Extraction errors are collected, never raised mid-file: the returned
// TestFile always contains every test that could be extracted.
func ExtractFile(name, contents, startMarker, endMarker string) (sqldoctest.TestFile, []error) {
	if strings.EqualFold(filepath.Ext(name), ".md") {
		return ExtractDocument(name, contents), nil
	}

	return ExtractMarked(name, contents, startMarker, endMarker)
}

// ExtractDocument extracts tests from documentation-format content where the
// whole file is one spec block. Malformed constructs are silently skipped.
func ExtractDocument(name, contents string) sqldoctest.TestFile {
	tests, _ := extractTests(contents, 0)
	return sqldoctest.NewTestFile(name, tests)
}

// ExtractMarked extracts tests from every marker-delimited spec block in
// contents. Line numbers are reported relative to the whole file, not the
// containing block. A start marker without a matching end marker and an
// output block without a pending query block are extraction errors.
func ExtractMarked(name, contents, startMarker, endMarker string) (sqldoctest.TestFile, []error) {
	var (
		tests []sqldoctest.Test
		errs  []error
	)

	for _, block := range findMarkedBlocks(contents, startMarker, endMarker, &errs, name) {
		blockTests, blockErrs := extractTests(block.body, block.lineOffset)
		tests = append(tests, blockTests...)

		for _, err := range blockErrs {
			errs = append(errs, locateError(name, err))
		}
	}

	return sqldoctest.NewTestFile(name, tests), errs
}

type markedBlock struct {
	body string
	// lineOffset is the 0-based line of the file on which the block starts,
	// added to in-block line numbers to produce file-absolute diagnostics.
	lineOffset int
}

// findMarkedBlocks locates every start-marker occurrence and captures the
// text up to the nearest end marker. Unmatched start markers are recorded
// as errors and skipped.
func findMarkedBlocks(contents, startMarker, endMarker string, errs *[]error, name string) []markedBlock {
	var blocks []markedBlock

	offset := 0
	for {
		idx := strings.Index(contents[offset:], startMarker)
		if idx < 0 {
			break
		}

		start := offset + idx
		bodyStart := start + len(startMarker)

		end := strings.Index(contents[bodyStart:], endMarker)
		if end < 0 {
			*errs = append(*errs, locatedError{
				name: name,
				line: strings.Count(contents[:start], "\n") + 1,
				err:  sqldoctest.ErrUnmatchedStartMarker,
			})

			break
		}

		blocks = append(blocks, markedBlock{
			body:       contents[bodyStart : bodyStart+end],
			lineOffset: strings.Count(contents[:bodyStart], "\n"),
		})

		offset = bodyStart + end + len(endMarker)
	}

	return blocks
}

// extractTests runs the block scanner over one spec block, maintaining the
// heading stack and the pending test awaiting its output block.
func extractTests(s string, lineOffset int) ([]sqldoctest.Test, []error) {
	var (
		tests []sqldoctest.Test
		errs  []error
	)

	// Index 0 is the empty root so heading level N lands at index N.
	headingStack := []string{""}

	var pending *sqldoctest.Test

	finalizePending := func() {
		if pending != nil {
			// No output block seen: nothing to check.
			pending.IgnoreOutput = true
			tests = append(tests, *pending)
			pending = nil
		}
	}

	scanner := newBlockScanner(s)
	for {
		event, ok := scanner.next()
		if !ok {
			break
		}

		switch ev := event.(type) {
		case heading:
			if ev.level < len(headingStack) {
				headingStack = headingStack[:ev.level]
			}

			headingStack = append(headingStack, "`"+ev.text+"`")

		case codeBlock:
			switch kind := parseBlockAttributes(ev.attributes); kind.class {
			case classSQL:
				finalizePending()

				pending = &sqldoctest.Test{
					Line:          lineOffset + ev.startLine,
					Header:        strings.Join(headingStack, ""),
					Text:          ev.contents,
					Transactional: !kind.stateful,
					IgnoreOutput:  kind.ignoreOutput,
				}

			case classOutput:
				if pending == nil {
					errs = append(errs, locatedError{
						line: lineOffset + ev.startLine,
						err:  sqldoctest.ErrOrphanOutputBlock,
					})

					continue
				}

				// An attached output block wins over an earlier
				// ignore-output attribute on the query block.
				pending.Output = parseOutputTable(ev.contents)
				pending.IgnoreOutput = false
				tests = append(tests, *pending)
				pending = nil

			case classOther:
				continue
			}
		}
	}

	finalizePending()

	return tests, errs
}

type blockClass int

const (
	classOther blockClass = iota
	classSQL
	classOutput
)

type blockKind struct {
	class        blockClass
	ignoreOutput bool
	stateful     bool
}

// parseBlockAttributes classifies the comma-separated attribute tokens that
// follow a fence marker. Tokens are case-insensitive; unrecognized tokens
// (such as precision specifications, which are not supported) are ignored.
// The ignore token overrides everything else.
func parseBlockAttributes(attrs string) blockKind {
	var kind blockKind

	ignored := false

	for _, token := range strings.Split(attrs, ",") {
		switch strings.ToLower(strings.TrimSpace(token)) {
		case "sql":
			kind.class = classSQL
		case "output":
			kind.class = classOutput
		case "ignore":
			ignored = true
		case "ignore-output":
			kind.ignoreOutput = true
		case "stateful", "non-transactional":
			kind.stateful = true
		}
	}

	if ignored {
		return blockKind{class: classOther}
	}

	return kind
}

// parseOutputTable parses an output block body into a row table. The first
// two lines are the column-name row and the separator row; every remaining
// line is split on the column separator with cells trimmed. An empty body
// means zero rows expected.
func parseOutputTable(body string) [][]string {
	lines := strings.Split(body, "\n")
	if len(lines) <= 2 {
		return nil
	}

	rows := make([][]string, 0, len(lines)-2)

	for _, line := range lines[2:] {
		cells := strings.Split(line, "|")
		row := make([]string, len(cells))

		for i, cell := range cells {
			row[i] = strings.TrimSpace(cell)
		}

		rows = append(rows, row)
	}

	return rows
}
