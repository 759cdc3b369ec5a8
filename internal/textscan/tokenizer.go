// Package textscan provides the pull-based tokenizer and bounded-history
// scanner used to walk raw bulletin text.
package textscan

import "regexp"

// Kind identifies the lexical class of a Token.
type Kind int

const (
	Text Kind = iota
	Whitespace
	Newline
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Whitespace:
		return "whitespace"
	case Newline:
		return "newline"
	default:
		return "unknown"
	}
}

// Token is one lexical unit. Separator tokens carry the matched separator
// text as their value.
type Token struct {
	Kind  Kind
	Value string
}

// IsNewline reports whether the token is a line break.
func (t Token) IsNewline() bool { return t.Kind == Newline }

// Options controls which separator tokens the Tokenizer surfaces.
type Options struct {
	IncludeNewline    bool
	IncludeWhitespace bool
}

// separator matches one line break or a run of horizontal whitespace.
var separator = regexp.MustCompile(`(\r?\n)|[ \t]+`)

// Tokenizer splits a string into tokens on demand. It is single-pass:
// once Next reports the end of input it keeps doing so.
type Tokenizer struct {
	text    string
	pos     int
	opts    Options
	pending *Token
}

// NewTokenizer creates a Tokenizer over text.
func NewTokenizer(text string, opts Options) *Tokenizer {
	return &Tokenizer{text: text, opts: opts}
}

// Next returns the next token, or false once the input is exhausted.
func (t *Tokenizer) Next() (Token, bool) {
	for {
		if t.pending != nil {
			tok := *t.pending
			t.pending = nil
			return tok, true
		}
		if t.pos >= len(t.text) {
			return Token{}, false
		}

		loc := separator.FindStringSubmatchIndex(t.text[t.pos:])
		if loc == nil {
			tok := Token{Kind: Text, Value: t.text[t.pos:]}
			t.pos = len(t.text)
			return tok, true
		}

		start, end := t.pos+loc[0], t.pos+loc[1]
		text := t.text[t.pos:start]
		sep, include := t.separatorToken(loc[2] >= 0, t.text[start:end])
		t.pos = end

		switch {
		case text != "" && include:
			t.pending = &sep
			return Token{Kind: Text, Value: text}, true
		case text != "":
			return Token{Kind: Text, Value: text}, true
		case include:
			return sep, true
		}
	}
}

func (t *Tokenizer) separatorToken(newline bool, value string) (Token, bool) {
	if newline {
		return Token{Kind: Newline, Value: value}, t.opts.IncludeNewline
	}
	return Token{Kind: Whitespace, Value: value}, t.opts.IncludeWhitespace
}

// Words returns the text tokens of s in order.
func Words(s string) []string {
	var words []string
	tk := NewTokenizer(s, Options{})
	for tok, ok := tk.Next(); ok; tok, ok = tk.Next() {
		words = append(words, tok.Value)
	}
	return words
}
