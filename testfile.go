package sqldoctest

// Test is one executable unit extracted from a spec block: a query plus the
// table of rows it is expected to produce.
type Test struct {
	// Line is the 1-based line in the source file where the query block opens.
	Line int
	// Header is the composite name built from all enclosing headings,
	// root to leaf, each wrapped in backquotes, no separator.
	Header string
	// Text is the raw query text. It may contain multiple statements and is
	// handed to the engine verbatim.
	Text string
	// Output is the expected result table. An empty table means zero rows
	// are expected.
	Output [][]string
	// Transactional tests run inside a transaction that is always rolled
	// back. Non-transactional tests commit and may mutate state visible to
	// later tests in the same file.
	Transactional bool
	// IgnoreOutput skips result validation entirely.
	IgnoreOutput bool
}

// TestFile is the ordered collection of tests extracted from one source file.
type TestFile struct {
	Name      string
	Stateless bool
	Tests     []Test
}

// NewTestFile builds a TestFile from extracted tests. The file is stateless
// exactly when every contained test is transactional; a single
// non-transactional test forces strict in-order execution against a
// dedicated database.
func NewTestFile(name string, tests []Test) TestFile {
	stateless := true
	for _, t := range tests {
		stateless = stateless && t.Transactional
	}

	return TestFile{
		Name:      name,
		Stateless: stateless,
		Tests:     tests,
	}
}
