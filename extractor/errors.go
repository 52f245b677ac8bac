package extractor

import "fmt"

// locatedError attaches a source position to an extraction error so all
// collected errors can be reported together before any test runs.
type locatedError struct {
	name string
	line int
	err  error
}

func (e locatedError) Error() string {
	if e.name == "" {
		return fmt.Sprintf("line %d: %v", e.line, e.err)
	}

	return fmt.Sprintf("%s:%d: %v", e.name, e.line, e.err)
}

func (e locatedError) Unwrap() error {
	return e.err
}

// locateError stamps the file name onto errors collected while scanning a
// single block, which only knows line numbers.
func locateError(name string, err error) error {
	if le, ok := err.(locatedError); ok && le.name == "" {
		le.name = name
		return le
	}

	return err
}
