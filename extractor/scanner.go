package extractor

import "strings"

// event is either a heading or a codeBlock.
type event interface{ isEvent() }

type heading struct {
	level int
	text  string
}

type codeBlock struct {
	// startLine is the 1-based line of the opening fence within the block.
	startLine  int
	attributes string
	contents   string
}

func (heading) isEvent()   {}
func (codeBlock) isEvent() {}

// blockScanner scans a spec block line by line, emitting heading and fenced
// code block events and skipping everything else.
type blockScanner struct {
	lines   []string
	pos     int
	lineNum int
}

func newBlockScanner(s string) *blockScanner {
	lines := strings.Split(s, "\n")

	// A trailing newline is a line terminator, not an extra empty line.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	return &blockScanner{lines: lines}
}

func (s *blockScanner) next() (event, bool) {
	for s.pos < len(s.lines) {
		line := s.lines[s.pos]
		s.pos++
		s.lineNum++

		trimmed := strings.TrimLeft(line, " \t")

		switch {
		case strings.HasPrefix(trimmed, "#"):
			level := 0
			for level < len(trimmed) && trimmed[level] == '#' {
				level++
			}

			return heading{
				level: level,
				text:  strings.TrimLeft(trimmed[level:], " \t"),
			}, true

		case strings.HasPrefix(trimmed, "```"):
			return s.scanFencedBlock(line, trimmed), true
		}
	}

	return nil, false
}

// scanFencedBlock consumes a fenced code block. The fence is the run of
// backticks opening the block; the same run closes it. Indentation in front
// of the opening fence is stripped from every body line, so examples nested
// inside indented documentation keep their own relative indentation.
func (s *blockScanner) scanFencedBlock(line, trimmed string) codeBlock {
	fenceLen := 0
	for fenceLen < len(trimmed) && trimmed[fenceLen] == '`' {
		fenceLen++
	}

	fence := trimmed[:fenceLen]
	indent := line[:strings.Index(line, "```")]
	startLine := s.lineNum
	attributes := strings.TrimLeft(trimmed[fenceLen:], " \t")

	var body []string

	for s.pos < len(s.lines) {
		bodyLine := s.lines[s.pos]
		s.pos++
		s.lineNum++

		if strings.HasPrefix(strings.TrimLeft(bodyLine, " \t"), fence) {
			break
		}

		body = append(body, stripIndent(bodyLine, indent))
	}

	return codeBlock{
		startLine:  startLine,
		attributes: attributes,
		contents:   strings.Join(body, "\n"),
	}
}

// stripIndent removes every leading repetition of indent from line.
func stripIndent(line, indent string) string {
	if indent == "" {
		return line
	}

	for strings.HasPrefix(line, indent) {
		line = line[len(indent):]
	}

	return line
}
