package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/couchcryptid/taf-data-etl/internal/textscan"
)

// Revision marks an amended or corrected bulletin.
type Revision int

const (
	Original Revision = iota
	Amendment
	Correction
)

func (r Revision) String() string {
	switch r {
	case Amendment:
		return "amendment"
	case Correction:
		return "correction"
	default:
		return "original"
	}
}

func (r Revision) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// revisionWords are the header suffixes used by the cycle files. The
// amendment spelling is the one the source data uses.
var revisionWords = map[string]Revision{
	"Ammendment": Amendment,
	"Correction": Correction,
}

// TokenizedEntry is a CycleEntry with its header resolved and its lines
// split into normalized tokens. Lines[0] is the outlook line and never
// carries the TAF/AMD/COR prefix tokens.
type TokenizedEntry struct {
	Header   string
	Received time.Time
	Revision Revision
	Lines    [][]string
}

// Tokens returns all tokens of the entry in order.
func (e TokenizedEntry) Tokens() []string {
	var out []string
	for _, line := range e.Lines {
		out = append(out, line...)
	}
	return out
}

// Text returns the entry's tokens joined by single spaces, one line per row.
func (e TokenizedEntry) Text() string {
	rows := make([]string, len(e.Lines))
	for i, line := range e.Lines {
		rows[i] = strings.Join(line, " ")
	}
	return strings.Join(rows, "\n")
}

const headerLayout = "2006/01/02 15:04"

var (
	prefixTokens   = map[string]bool{"TAF": true, "AMD": true, "COR": true}
	changeKeywords = []string{"BECMG", "TEMPO"}

	lineLeaderPattern = regexp.MustCompile(`^(BECMG|TEMPO|INTER|RMK|AMD|COR|AMDS|FM(\d{6}Z?)?|PROB\d{2})$`)
)

// TokenizeEntry parses the entry header and normalizes its lines.
func TokenizeEntry(entry CycleEntry) (TokenizedEntry, error) {
	m := headerPattern.FindStringSubmatch(strings.TrimSpace(entry.Header))
	if m == nil {
		return TokenizedEntry{}, fmt.Errorf("%w: %q", ErrMalformedHeader, entry.Header)
	}
	received, err := time.ParseInLocation(headerLayout, m[1], time.UTC)
	if err != nil {
		return TokenizedEntry{}, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
	}

	return TokenizedEntry{
		Header:   entry.Header,
		Received: received,
		Revision: revisionWords[m[3]],
		Lines:    normalizeLines(entry.Lines),
	}, nil
}

// IsLineLeader reports whether token may open a continuation line of a
// normalized entry.
func IsLineLeader(token string) bool {
	return lineLeaderPattern.MatchString(token)
}

// normalizeLines keeps folding raw lines into the outlook line until it
// holds something other than prefix tokens. After that every raw line
// becomes its own normalized line.
func normalizeLines(raw []string) [][]string {
	var lines [][]string
	for _, line := range raw {
		tokens := normalizeTokens(textscan.Words(line), len(lines) == 0)
		if len(tokens) == 0 {
			continue
		}
		switch {
		case len(lines) > 1, len(lines) == 1 && len(lines[0]) > 0:
			lines = append(lines, tokens)
		case len(lines) == 0:
			lines = append(lines, withoutPrefixes(tokens))
		default:
			lines[0] = append(lines[0], withoutPrefixes(tokens)...)
		}
	}
	return lines
}

func normalizeTokens(tokens []string, first bool) []string {
	if first {
		for i, tok := range tokens {
			if prefixTokens[tok] {
				tokens = tokens[i:]
				break
			}
		}
	}
	if len(tokens) >= 4 && tokens[0] == "PART" && tokens[2] == "OF" {
		tokens = tokens[4:]
	}
	return splitJammed(tokens)
}

// splitJammed separates a change keyword from a value written against it,
// as in BECMG2406/2408.
func splitJammed(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		split := false
		for _, kw := range changeKeywords {
			if tok != kw && strings.HasPrefix(tok, kw) {
				out = append(out, kw, tok[len(kw):])
				split = true
				break
			}
		}
		if !split {
			out = append(out, tok)
		}
	}
	return out
}

func withoutPrefixes(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !prefixTokens[tok] {
			out = append(out, tok)
		}
	}
	return out
}

// revisionFromPrefixes infers a revision from AMD/COR prefix tokens on a
// bulletin's first line when no cycle header is available.
func revisionFromPrefixes(line string) Revision {
	for _, tok := range textscan.Words(line) {
		switch tok {
		case "AMD":
			return Amendment
		case "COR":
			return Correction
		case "TAF":
			continue
		default:
			return Original
		}
	}
	return Original
}
