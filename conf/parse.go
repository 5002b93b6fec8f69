package conf

import "fmt"

// ParseError describes where parsing the config file failed.
// Line numbers are 1-based.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse config file %s: %s on line %d", e.Path, e.Msg, e.Line)
}

/*
parse scans the key/value config format:

	# I'm a comment until newline
	somekey="some.value;9?
	I can contain spaces, tabs, newlines
	"uglyplacedkey="I'm valid too"

	wellplacedkey=""
	/ I'm also a comment until newline

Rules:
  - space and tab between entries are ignored, newlines only bump the
    line counter used in errors
  - '#' or '/' as the first non-whitespace character starts a comment
    that runs to end of line
  - a key is everything up to a literal '=', a newline or EOF before
    that is an error
  - the character after '=' must be '"', the value is everything up to
    the next '"' and may contain newlines
  - if the same key appears more than once, the first occurrence wins
*/
func parse(d []byte, path string) (map[string]string, error) {
	m := map[string]string{}
	line := 1
	i := 0
	n := len(d)
	for i < n {
		c := d[i]
		if c == '\n' {
			line++
			i++
			continue
		}
		if c == ' ' || c == '\t' || c == '\r' {
			i++
			continue
		}
		if c == '#' || c == '/' {
			for i < n && d[i] != '\n' {
				i++
			}
			continue
		}

		// key: at least one character, everything up to '='
		keyStart := i
		for {
			i++
			if i >= n || d[i] == '\n' {
				return nil, &ParseError{Path: path, Line: line, Msg: "unexpected EOF or newline in key"}
			}
			if d[i] == '=' {
				break
			}
		}
		key := string(d[keyStart:i])
		i++

		// '=' must be followed by '"'
		if i >= n || d[i] != '"' {
			return nil, &ParseError{Path: path, Line: line, Msg: `expected '"' after '='`}
		}
		i++

		// value: everything up to the closing '"', newlines included
		valStart := i
		for {
			if i >= n {
				return nil, &ParseError{Path: path, Line: line, Msg: "unexpected EOF in value"}
			}
			if d[i] == '"' {
				break
			}
			if d[i] == '\n' {
				line++
			}
			i++
		}
		val := string(d[valStart:i])
		i++

		// first key wins, later duplicates are parsed but discarded
		if _, ok := m[key]; !ok {
			m[key] = val
		}
	}
	return m, nil
}

const (
	headerComment = "# Manual changes to this file may be overwritten\n" +
		"# Use the config hook API for live updates\n"
	footerComment = "# End of config\n"
)

// serialize writes one key="value" line per entry between a fixed
// header and footer comment. Entry order follows map iteration order,
// i.e. it is unspecified.
func serialize(m map[string]string) []byte {
	var buf []byte
	buf = append(buf, headerComment...)
	for k, v := range m {
		buf = append(buf, k...)
		buf = append(buf, '=', '"')
		buf = append(buf, v...)
		buf = append(buf, '"', '\n')
	}
	buf = append(buf, footerComment...)
	return buf
}
