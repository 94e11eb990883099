package cmdline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

var (
	// ErrUnterminated is returned for a line with an open quote or bracket.
	ErrUnterminated = errors.New("unterminated string or list")
	// ErrMissingArgument is returned when a typed read finds no token.
	ErrMissingArgument = errors.New("missing argument")
	// ErrNotAList is returned by List when the next token is not bracketed.
	ErrNotAList = errors.New("argument is not a list")
)

// Split breaks a line into tokens separated by whitespace. Text between
// double quotes or square brackets is kept together with its delimiters;
// brackets do not nest. A line starting with '#' has no tokens.
func Split(line string) ([]string, error) {
	line = strings.TrimSpace(line)
	if IsComment(line) {
		return nil, nil
	}

	var (
		tokens []string
		start  = -1
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		if start < 0 {
			if isSpace(c) {
				continue
			}
			start = i
		}
		switch {
		case c == '"' || c == '[':
			closing := byte('"')
			if c == '[' {
				closing = ']'
			}
			end := strings.IndexByte(line[i+1:], closing)
			if end < 0 {
				return nil, fmt.Errorf("%w: %s", ErrUnterminated, line[start:])
			}
			i += end + 1
		case isSpace(c):
			tokens = append(tokens, line[start:i])
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, line[start:])
	}
	return tokens, nil
}

// IsComment reports whether line is a '#' comment.
func IsComment(line string) bool {
	return strings.HasPrefix(strings.TrimLeftFunc(line, unicode.IsSpace), "#")
}

func isSpace(c byte) bool { return c <= ' ' }

// Args is a cursor over the tokens of a command line.
type Args struct {
	tokens []string
}

// Parse splits line into Args.
func Parse(line string) (*Args, error) {
	tokens, err := Split(line)
	if err != nil {
		return nil, err
	}
	return NewArgs(tokens), nil
}

// NewArgs wraps tokens that were already split, such as os.Args.
func NewArgs(tokens []string) *Args {
	return &Args{tokens: tokens}
}

func (a *Args) Len() int { return len(a.tokens) }

func (a *Args) Empty() bool { return len(a.tokens) == 0 }

// Peek returns the next token without consuming it, or "" when empty.
func (a *Args) Peek() string {
	if a.Empty() {
		return ""
	}
	return a.tokens[0]
}

// Pop consumes and returns the next token, or "" when empty.
func (a *Args) Pop() string {
	tok := a.Peek()
	if !a.Empty() {
		a.tokens = a.tokens[1:]
	}
	return tok
}

// Rest returns the unconsumed tokens.
func (a *Args) Rest() []string {
	return a.tokens
}

// HasString reports whether the next token is a quoted string.
func (a *Args) HasString() bool {
	return isDelimited(a.Peek(), '"', '"')
}

// HasList reports whether the next token is a bracketed list.
func (a *Args) HasList() bool {
	return isDelimited(a.Peek(), '[', ']')
}

// HasInt reports whether the next token parses as an integer.
func (a *Args) HasInt() bool {
	_, err := strconv.Atoi(a.Peek())
	return err == nil
}

// HasFloat reports whether the next token parses as a number.
func (a *Args) HasFloat() bool {
	_, err := strconv.ParseFloat(a.Peek(), 64)
	return err == nil
}

// String consumes the next token and strips its quotes, if any.
func (a *Args) String() (string, error) {
	if a.Empty() {
		return "", ErrMissingArgument
	}
	return Unquote(a.Pop()), nil
}

// List consumes a bracketed token and returns its elements as Args.
func (a *Args) List() (*Args, error) {
	if a.Empty() {
		return nil, ErrMissingArgument
	}
	if !a.HasList() {
		return nil, fmt.Errorf("%w: %q", ErrNotAList, a.Peek())
	}
	tok := a.Pop()
	return Parse(tok[1 : len(tok)-1])
}

func (a *Args) Int() (int, error) {
	if a.Empty() {
		return 0, ErrMissingArgument
	}
	tok := a.Pop()
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", tok)
	}
	return n, nil
}

func (a *Args) Float() (float64, error) {
	if a.Empty() {
		return 0, ErrMissingArgument
	}
	tok := a.Pop()
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", tok)
	}
	return f, nil
}

func (a *Args) Bool() (bool, error) {
	if a.Empty() {
		return false, ErrMissingArgument
	}
	tok := a.Pop()
	b, err := strconv.ParseBool(tok)
	if err != nil {
		return false, fmt.Errorf("%q is not a boolean", tok)
	}
	return b, nil
}

// Ints consumes a list of integers.
func (a *Args) Ints() ([]int, error) {
	list, err := a.List()
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, list.Len())
	for !list.Empty() {
		n, err := list.Int()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Floats consumes a list of numbers.
func (a *Args) Floats() ([]float64, error) {
	list, err := a.List()
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, list.Len())
	for !list.Empty() {
		f, err := list.Float()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func isDelimited(tok string, open, closing byte) bool {
	return len(tok) >= 2 && tok[0] == open && tok[len(tok)-1] == closing
}

// Unquote strips the quotes of a quoted token and returns any other token
// unchanged.
func Unquote(tok string) string {
	if isDelimited(tok, '"', '"') {
		return tok[1 : len(tok)-1]
	}
	return tok
}
