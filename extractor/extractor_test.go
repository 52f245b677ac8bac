package extractor

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shibukawa/sqldoctest"
)

const testContents = "\n" +
	"# Test Parsing\n" +
	"```SQL\n" +
	"select * from foo\n" +
	"```\n" +
	"```output\n" +
	"```\n" +
	"\n" +
	"```SQL\n" +
	"select * from multiline;\n" +
	"select * from multiline;\n" +
	"```\n" +
	"```output\n" +
	" ?column?\n" +
	"----------\n" +
	"    value\n" +
	"```\n" +
	"\n" +
	"## ignored\n" +
	"```SQL,ignore\n" +
	"select * from foo\n" +
	"```\n" +
	"\n" +
	"## non-transactional\n" +
	"```SQL,non-transactional\n" +
	"select * from bar\n" +
	"```\n" +
	"```output, precision(1: 3)\n" +
	" a | b\n" +
	"---+---\n" +
	" 1 | 2\n" +
	"```\n" +
	"\n" +
	"## indented\n" +
	"\n" +
	"    ```SQL\n" +
	"    select indented;\n" +
	"  select keeps_whitespace;\n" +
	"    ```\n" +
	"    ```output\n" +
	"     ???\n" +
	"    -----\n" +
	"    a | b\n" +
	"    ```\n" +
	"\n" +
	"## no output\n" +
	"```SQL,ignore-output\n" +
	"select * from baz\n" +
	"```\n" +
	"\n" +
	"## end by header\n" +
	"```SQL\n" +
	"select * from quz\n" +
	"```\n" +
	"\n" +
	"## end by file\n" +
	"```SQL\n" +
	"select * from qat\n" +
	"```\n"

func TestBlockScannerEvents(t *testing.T) {
	scanner := newBlockScanner(testContents)

	var events []event

	for {
		ev, ok := scanner.next()
		if !ok {
			break
		}

		events = append(events, ev)
	}

	expected := []event{
		heading{level: 1, text: "Test Parsing"},
		codeBlock{startLine: 3, attributes: "SQL", contents: "select * from foo"},
		codeBlock{startLine: 6, attributes: "output", contents: ""},
		codeBlock{startLine: 9, attributes: "SQL", contents: "select * from multiline;\nselect * from multiline;"},
		codeBlock{startLine: 13, attributes: "output", contents: " ?column?\n----------\n    value"},
		heading{level: 2, text: "ignored"},
		codeBlock{startLine: 20, attributes: "SQL,ignore", contents: "select * from foo"},
		heading{level: 2, text: "non-transactional"},
		codeBlock{startLine: 25, attributes: "SQL,non-transactional", contents: "select * from bar"},
		codeBlock{startLine: 28, attributes: "output, precision(1: 3)", contents: " a | b\n---+---\n 1 | 2"},
		heading{level: 2, text: "indented"},
		codeBlock{startLine: 36, attributes: "SQL", contents: "select indented;\n  select keeps_whitespace;"},
		codeBlock{startLine: 40, attributes: "output", contents: " ???\n-----\na | b"},
		heading{level: 2, text: "no output"},
		codeBlock{startLine: 47, attributes: "SQL,ignore-output", contents: "select * from baz"},
		heading{level: 2, text: "end by header"},
		codeBlock{startLine: 52, attributes: "SQL", contents: "select * from quz"},
		heading{level: 2, text: "end by file"},
		codeBlock{startLine: 57, attributes: "SQL", contents: "select * from qat"},
	}

	assert.Equal(t, expected, events)
}

func TestExtractDocument(t *testing.T) {
	file := ExtractDocument("doc.md", testContents)

	expected := sqldoctest.TestFile{
		Name:      "doc.md",
		Stateless: false,
		Tests: []sqldoctest.Test{
			{
				Line:          3,
				Header:        "`Test Parsing`",
				Text:          "select * from foo",
				Transactional: true,
			},
			{
				Line:          9,
				Header:        "`Test Parsing`",
				Text:          "select * from multiline;\nselect * from multiline;",
				Output:        [][]string{{"value"}},
				Transactional: true,
			},
			{
				Line:          25,
				Header:        "`Test Parsing``non-transactional`",
				Text:          "select * from bar",
				Output:        [][]string{{"1", "2"}},
				Transactional: false,
			},
			{
				Line:          36,
				Header:        "`Test Parsing``indented`",
				Text:          "select indented;\n  select keeps_whitespace;",
				Output:        [][]string{{"a", "b"}},
				Transactional: true,
			},
			{
				Line:          47,
				Header:        "`Test Parsing``no output`",
				Text:          "select * from baz",
				Transactional: true,
				IgnoreOutput:  true,
			},
			{
				Line:          52,
				Header:        "`Test Parsing``end by header`",
				Text:          "select * from quz",
				Transactional: true,
				IgnoreOutput:  true,
			},
			{
				Line:          57,
				Header:        "`Test Parsing``end by file`",
				Text:          "select * from qat",
				Transactional: true,
				IgnoreOutput:  true,
			},
		},
	}

	assert.Equal(t, expected, file)
}

func TestHeadingStackReplacesSiblings(t *testing.T) {
	contents := "# A\n" +
		"```SQL\nselect 1;\n```\n" +
		"## B\n" +
		"```SQL\nselect 2;\n```\n" +
		"## C\n" +
		"```SQL\nselect 3;\n```\n"

	file := ExtractDocument("doc.md", contents)

	headers := make([]string, 0, len(file.Tests))
	for _, test := range file.Tests {
		headers = append(headers, test.Header)
	}

	assert.Equal(t, []string{"`A`", "`A``B`", "`A``C`"}, headers)
}

func TestDeepHeadingThenShallow(t *testing.T) {
	contents := "# A\n## B\n### C\n" +
		"```SQL\nselect 1;\n```\n" +
		"## D\n" +
		"```SQL\nselect 2;\n```\n"

	file := ExtractDocument("doc.md", contents)

	assert.Equal(t, "`A``B``C`", file.Tests[0].Header)
	assert.Equal(t, "`A``D`", file.Tests[1].Header)
}

func TestIgnoreOverridesEverything(t *testing.T) {
	contents := "```SQL,ignore,non-transactional,ignore-output\nselect 1;\n```\n"

	file := ExtractDocument("doc.md", contents)

	assert.Equal(t, 0, len(file.Tests))
	assert.True(t, file.Stateless)
}

func TestOutputBlockOverridesIgnoreOutput(t *testing.T) {
	contents := "```SQL,ignore-output\nselect 1;\n```\n" +
		"```output\n a\n---\n 1\n```\n"

	file := ExtractDocument("doc.md", contents)

	assert.Equal(t, 1, len(file.Tests))
	assert.False(t, file.Tests[0].IgnoreOutput)
	assert.Equal(t, [][]string{{"1"}}, file.Tests[0].Output)
}

func TestPendingTestFinalizedBeforeNextQuery(t *testing.T) {
	contents := "```SQL\nselect 1;\n```\n" +
		"```SQL\nselect 2;\n```\n" +
		"```output\n a\n---\n 2\n```\n"

	file := ExtractDocument("doc.md", contents)

	assert.Equal(t, 2, len(file.Tests))
	assert.True(t, file.Tests[0].IgnoreOutput)
	assert.Equal(t, 0, len(file.Tests[0].Output))
	assert.False(t, file.Tests[1].IgnoreOutput)
	assert.Equal(t, [][]string{{"2"}}, file.Tests[1].Output)
}

func TestExtractMarkedAbsoluteLines(t *testing.T) {
	contents := "int main(void) {}\n" +
		"/*--[sql-tests]\n" +
		"# T\n" +
		"```SQL\n" +
		"select 1;\n" +
		"```\n" +
		"```output\n" +
		" a\n" +
		"---\n" +
		" 1\n" +
		"```\n" +
		"*/\n"

	file, errs := ExtractMarked("main.c", contents, "/*--[sql-tests]", "*/")

	assert.Equal(t, 0, len(errs))
	assert.Equal(t, 1, len(file.Tests))
	assert.Equal(t, 4, file.Tests[0].Line)
	assert.Equal(t, "`T`", file.Tests[0].Header)
	assert.Equal(t, [][]string{{"1"}}, file.Tests[0].Output)
}

func TestExtractMarkedMultipleBlocks(t *testing.T) {
	contents := "/*--[sql-tests]\n# A\n```SQL\nselect 1;\n```\n*/\n" +
		"code();\n" +
		"/*--[sql-tests]\n# B\n```SQL\nselect 2;\n```\n*/\n"

	file, errs := ExtractMarked("lib.c", contents, "/*--[sql-tests]", "*/")

	assert.Equal(t, 0, len(errs))
	assert.Equal(t, 2, len(file.Tests))
	assert.Equal(t, "`A`", file.Tests[0].Header)
	assert.Equal(t, "`B`", file.Tests[1].Header)
}

func TestUnmatchedStartMarker(t *testing.T) {
	contents := "/*--[sql-tests]\n# T\n```SQL\nselect 1;\n```\n"

	file, errs := ExtractMarked("broken.c", contents, "/*--[sql-tests]", "*/")

	assert.Equal(t, 0, len(file.Tests))
	assert.Equal(t, 1, len(errs))
	assert.IsError(t, errs[0], sqldoctest.ErrUnmatchedStartMarker)
}

func TestOrphanOutputBlockIsError(t *testing.T) {
	contents := "/*--[sql-tests]\n```output\n a\n---\n 1\n```\n*/\n"

	file, errs := ExtractMarked("orphan.c", contents, "/*--[sql-tests]", "*/")

	assert.Equal(t, 0, len(file.Tests))
	assert.Equal(t, 1, len(errs))
	assert.IsError(t, errs[0], sqldoctest.ErrOrphanOutputBlock)
}

func TestOrphanOutputBlockSkippedInDocuments(t *testing.T) {
	contents := "```output\n a\n---\n 1\n```\n"

	file := ExtractDocument("doc.md", contents)

	assert.Equal(t, 0, len(file.Tests))
}

func TestExtractFileSelectsModeByExtension(t *testing.T) {
	doc := "# T\n```SQL\nselect 1;\n```\n"

	file, errs := ExtractFile("doc.md", doc, "/*--[sql-tests]", "*/")
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, 1, len(file.Tests))

	// The same content in a source file has no markers, so no tests.
	file, errs = ExtractFile("prog.c", doc, "/*--[sql-tests]", "*/")
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, 0, len(file.Tests))
}

func TestParseOutputTable(t *testing.T) {
	assert.Equal(t, 0, len(parseOutputTable("")))
	assert.Equal(t, [][]string{{"1", "2"}}, parseOutputTable(" a | b\n---+---\n 1 | 2"))
	assert.Equal(t,
		[][]string{{"1"}, {"2"}, {"3"}},
		parseOutputTable(" a\n---\n 1\n 2\n 3"))
}

func TestStatelessConjunction(t *testing.T) {
	contents := "```SQL\nselect 1;\n```\n" +
		"```SQL,stateful\ncreate table t (a int);\n```\n"

	file := ExtractDocument("doc.md", contents)

	assert.False(t, file.Stateless)
	assert.True(t, file.Tests[0].Transactional)
	assert.False(t, file.Tests[1].Transactional)
}
