package commands

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/google/shlex"
)

// ErrInvalidCharacter is returned for a # anywhere in a line. shlex would read it as the start of a
// comment and drop the rest of the line.
var ErrInvalidCharacter = errors.New("invalid character '#'")

// Token is one word of a command line. Numeric tokens carry their parsed value.
type Token struct {
	Text    string
	Value   float64
	Numeric bool
}

// Tokenize splits a line into tokens without modifying it. NAN and INF are words, not numbers.
func Tokenize(line string) ([]Token, error) {
	if strings.ContainsRune(line, '#') {
		return nil, ErrInvalidCharacter
	}
	words, err := shlex.Split(line)
	if err != nil {
		return nil, err
	}

	tokens := make([]Token, 0, len(words))
	for _, w := range words {
		t := Token{Text: w}
		if v, err := strconv.ParseFloat(w, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			t.Value = v
			t.Numeric = true
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}

// Args are the tokens following the command name
type Args []Token

// Float returns argument i if it is numeric
func (a Args) Float(i int) (float64, bool) {
	if i >= len(a) || !a[i].Numeric {
		return 0, false
	}
	return a[i].Value, true
}

// Int returns argument i truncated to an integer if it is numeric and fits in 32 bits
func (a Args) Int(i int) (int, bool) {
	v, ok := a.Float(i)
	if !ok || v > math.MaxInt32 || v < math.MinInt32 {
		return 0, false
	}
	return int(v), true
}

// Word returns the text of argument i
func (a Args) Word(i int) (string, bool) {
	if i >= len(a) {
		return "", false
	}
	return a[i].Text, true
}

// Has reports whether any argument equals flag
func (a Args) Has(flag string) bool {
	for _, t := range a {
		if t.Text == flag {
			return true
		}
	}
	return false
}

// Floats returns the first n arguments if all of them are numeric
func (a Args) Floats(n int) ([]float64, bool) {
	if len(a) < n {
		return nil, false
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v, ok := a.Float(i)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
