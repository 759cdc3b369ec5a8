package domain

import (
	"regexp"
	"strings"

	"github.com/couchcryptid/taf-data-etl/internal/textscan"
)

var (
	headerPattern   = regexp.MustCompile(`^(\d{4}/\d{2}/\d{2} \d{2}:\d{2})(\s+(Ammendment|Correction))?$`)
	headerDateToken = regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`)
	headerTimeToken = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// bulletinPrefix starts every station report inside a shared-header block.
const bulletinPrefix = "TAF "

// CycleEntry is one bulletin cut from a cycle file: the date/time header it
// was filed under and its raw content lines.
type CycleEntry struct {
	Header string   `json:"header"`
	Lines  []string `json:"lines"`
}

// Cycle is the result of splitting a cycle file.
type Cycle struct {
	Entries []CycleEntry
	// MalformedHeaders counts header-like lines that failed the header
	// pattern. Their blocks are dropped.
	MalformedHeaders int
}

// SplitCycle cuts a cycle file into entries. A line starting with a date
// token followed by a time token opens a new entry. Lines carrying "="
// delimiters are split; later segments that begin a new TAF become separate
// entries sharing the current header. Text before the first header is
// ignored.
func SplitCycle(content string) Cycle {
	var cycle Cycle
	current := -1

	for _, line := range scanLines(content) {
		if line.header {
			if !headerPattern.MatchString(line.text) {
				cycle.MalformedHeaders++
				current = -1
				continue
			}
			cycle.Entries = append(cycle.Entries, CycleEntry{Header: line.text})
			current = len(cycle.Entries) - 1
			continue
		}
		if current < 0 {
			continue
		}

		if !strings.Contains(line.text, "=") {
			cycle.Entries[current].Lines = append(cycle.Entries[current].Lines, line.text)
			continue
		}
		for i, segment := range strings.Split(line.text, "=") {
			segment = strings.TrimSpace(segment)
			switch {
			case i == 0 && segment != "":
				cycle.Entries[current].Lines = append(cycle.Entries[current].Lines, segment)
			case i > 0 && strings.HasPrefix(segment, bulletinPrefix):
				cycle.Entries = append(cycle.Entries, CycleEntry{
					Header: cycle.Entries[current].Header,
					Lines:  []string{segment},
				})
				current = len(cycle.Entries) - 1
			}
		}
	}
	return cycle
}

type scannedLine struct {
	text   string
	header bool
}

// scanLines rebuilds the non-empty lines of content with single-space
// separators, flagging those that open with a header date and time.
func scanLines(content string) []scannedLine {
	s := textscan.NewScanner[textscan.Token](
		textscan.NewTokenizer(content, textscan.Options{IncludeNewline: true}),
	)

	var lines []scannedLine
	var words []string
	header := false
	flush := func() {
		if len(words) > 0 {
			lines = append(lines, scannedLine{text: strings.Join(words, " "), header: header})
		}
		words = words[:0]
		header = false
	}

	for tok := range s.All() {
		if tok.IsNewline() {
			flush()
			continue
		}
		if len(words) == 0 && isHeaderStart(s, tok) {
			header = true
		}
		words = append(words, tok.Value)
	}
	flush()
	return lines
}

// isHeaderStart reports whether tok is a date token at the start of the
// input or right after a line break, with a time token next.
func isHeaderStart(s *textscan.Scanner[textscan.Token], tok textscan.Token) bool {
	if !headerDateToken.MatchString(tok.Value) {
		return false
	}
	if prev, ok := s.Recall(); ok && !prev.IsNewline() {
		return false
	}
	next, ok := s.Peek()
	return ok && next.Kind == textscan.Text && headerTimeToken.MatchString(next.Value)
}
