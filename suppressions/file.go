// ABOUTME: Line-oriented suppression file reader
// ABOUTME: Parses block-delimited suppressions with comment handling

package suppressions

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseError reports a line that could not be interpreted, such as content
// outside a suppression block.
type ParseError struct {
	File string
	Line int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %d: expected beginning of suppression", e.File, e.Line)
}

// UnexpectedEOFError reports a suppression block left open at end of file
type UnexpectedEOFError struct {
	File string
	Line int
}

func (e *UnexpectedEOFError) Error() string {
	return fmt.Sprintf("%s: %d: unexpected end-of-file", e.File, e.Line)
}

// ReadSuppressionsFromFile loads all suppressions from the named file
func ReadSuppressionsFromFile(path string) ([]*Suppression, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSuppressions(f, path)
}

// ReadSuppressions parses suppressions from r. name is used in error
// messages, typically the file name.
//
// Blank lines and lines starting with "#" are ignored everywhere. A block
// opens at a line starting with "{" and closes at a line starting with "}";
// inside a block the first line is the description, the second the class
// pattern, and the rest are frame patterns. A line starting with "..." is
// normalized to the ellipsis token.
func ReadSuppressions(r io.Reader, name string) ([]*Suppression, error) {
	var result []*Suppression

	var description, className string
	var frames []string
	haveDescription := false
	haveClassName := false
	inBlock := false

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "#"):
			continue
		case strings.HasPrefix(line, "{"):
			inBlock = true
		case strings.HasPrefix(line, "}"):
			result = append(result, New(description, className, frames))
			description, className, frames = "", "", nil
			haveDescription, haveClassName = false, false
			inBlock = false
		case !inBlock:
			return nil, &ParseError{File: name, Line: lineNo}
		case !haveDescription:
			description = line
			haveDescription = true
		case !haveClassName:
			className = line
			haveClassName = true
		case strings.HasPrefix(line, ellipsis):
			frames = append(frames, ellipsis)
		default:
			frames = append(frames, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if inBlock {
		return nil, &UnexpectedEOFError{File: name, Line: lineNo}
	}
	return result, nil
}
