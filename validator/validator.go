// Package validator compares actual query output against a test's expected
// result table, classifies mismatches, and renders human-readable diffs.
package validator

import (
	"fmt"

	"github.com/shibukawa/sqldoctest"
)

// Kind represents the classification of a test failure.
type Kind int

const (
	// KindQueryError represents an engine-level error; the test never
	// produced rows.
	KindQueryError Kind = iota
	// KindWrongNumberOfRows represents a row-count mismatch.
	KindWrongNumberOfRows
	// KindMismatchedValues represents a cell-value mismatch with equal
	// row counts.
	KindMismatchedValues
)

// String returns a short label used in reports.
func (k Kind) String() string {
	switch k {
	case KindQueryError:
		return "query error"
	case KindWrongNumberOfRows:
		return "wrong number of rows"
	case KindMismatchedValues:
		return "mismatched values"
	default:
		return "unknown failure"
	}
}

// Failure describes why a test did not pass. Received always holds the rows
// the engine actually returned, except for query errors where no rows exist.
type Failure struct {
	Kind     Kind
	Err      error
	Received [][]string
	// Expected and Found are row counts, set for KindWrongNumberOfRows.
	Expected int
	Found    int
}

// QueryFailure wraps an engine error as a Failure.
func QueryFailure(err error) *Failure {
	return &Failure{Kind: KindQueryError, Err: err}
}

// Error implements the error interface so failures can travel as errors
// where convenient.
func (f *Failure) Error() string {
	switch f.Kind {
	case KindQueryError:
		return fmt.Sprintf("query error: %v", f.Err)
	case KindWrongNumberOfRows:
		return fmt.Sprintf("wrong number of rows: expected %d, found %d", f.Expected, f.Found)
	case KindMismatchedValues:
		return "mismatched values"
	default:
		return "unknown failure"
	}
}

// Unwrap returns the underlying engine error, if any.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Validate compares received rows against the test's expected output and
// returns nil when the test passes. Comparison is exact string equality per
// cell; validation is skipped entirely for ignore-output tests.
func Validate(received [][]string, test *sqldoctest.Test) *Failure {
	if test.IgnoreOutput {
		return nil
	}

	if len(test.Output) != len(received) {
		return &Failure{
			Kind:     KindWrongNumberOfRows,
			Received: received,
			Expected: len(test.Output),
			Found:    len(received),
		}
	}

	for i, expectedRow := range test.Output {
		receivedRow := received[i]

		if len(expectedRow) != len(receivedRow) {
			return &Failure{Kind: KindMismatchedValues, Received: received}
		}

		for j, expected := range expectedRow {
			if expected != receivedRow[j] {
				return &Failure{Kind: KindMismatchedValues, Received: received}
			}
		}
	}

	return nil
}
