package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	stationPattern      = regexp.MustCompile(`^[A-Z][A-Z0-9]{3}$`)
	issuedPattern       = regexp.MustCompile(`^\d{6}Z?$`)
	fromPattern         = regexp.MustCompile(`^FM(\d{6})Z?$`)
	wholeMilesPattern   = regexp.MustCompile(`^\d$`)
	fractionMilePattern = regexp.MustCompile(`^[PM]?\d/\d{1,2}SM$`)
)

// remarkMarkers end the coded body; everything from the marker on is kept
// verbatim as remarks.
var remarkMarkers = map[string]bool{"RMK": true, "AMDS": true, "AMD": true, "COR": true}

type bodyToken struct {
	value string
	pos   int
	line  int
}

// segment is the raw material of one period before classification.
type segment struct {
	change         ChangeKind
	leader         bodyToken
	from           string
	probability    int
	hasProbability bool
	tokens         []bodyToken
	trailing       *bodyToken // PROBnn moved here from a lone group after this one
}

type parser struct {
	reference time.Time
	tokens    []bodyToken
}

// ParseEntry runs the grammar over a normalized entry. Day-hour groups are
// resolved against the entry's received time.
func ParseEntry(entry TokenizedEntry) (Forecast, error) {
	p := &parser{reference: entry.Received}
	for line, tokens := range entry.Lines {
		for _, tok := range tokens {
			p.tokens = append(p.tokens, bodyToken{value: tok, pos: len(p.tokens), line: line})
		}
	}

	f, err := p.parse()
	if err != nil {
		return Forecast{}, err
	}
	f.Received = entry.Received
	f.Revision = entry.Revision
	f.Raw = entry.Text()
	f.ID = forecastID(f.Station, f.Issued, f.Revision, f.Raw)
	return f, nil
}

// ParseCycleEntry normalizes and parses one cycle entry.
func ParseCycleEntry(entry CycleEntry) (Forecast, error) {
	tokenized, err := TokenizeEntry(entry)
	if err != nil {
		return Forecast{}, err
	}
	return ParseEntry(tokenized)
}

// ParseBulletin parses a single bulletin that has no cycle header. Text
// after the first "=" is ignored. A zero reference means now.
func ParseBulletin(reference time.Time, text string) (Forecast, error) {
	if reference.IsZero() {
		reference = clock.Now()
	}
	body, _, _ := strings.Cut(text, "=")
	raw := strings.Split(body, "\n")

	entry := TokenizedEntry{
		Received: reference.UTC().Truncate(time.Minute),
		Lines:    normalizeLines(raw),
	}
	for _, line := range raw {
		if strings.TrimSpace(line) != "" {
			entry.Revision = revisionFromPrefixes(line)
			break
		}
	}
	return ParseEntry(entry)
}

func (p *parser) parse() (Forecast, error) {
	var f Forecast
	next, err := p.outlook(&f)
	if err != nil {
		return Forecast{}, err
	}

	body := p.tokens[next:]
	for i, tok := range body {
		if remarkMarkers[tok.value] {
			words := make([]string, 0, len(body)-i)
			for _, r := range body[i:] {
				words = append(words, r.value)
			}
			f.Remarks = strings.Join(words, " ")
			body = body[:i]
			break
		}
	}

	segments := demoteLoneProbabilities(segmentPeriods(joinSplitVisibility(body)))
	f.Periods = make([]Period, 0, len(segments))
	for i := range segments {
		period, canceled, err := p.period(&segments[i])
		if err != nil {
			return Forecast{}, err
		}
		f.Periods = append(f.Periods, period)
		if canceled {
			f.Canceled = true
			segments = segments[:i+1]
			break
		}
	}

	if err := assignIntervals(f.Effective, f.Periods, segments); err != nil {
		return Forecast{}, err
	}
	return f, nil
}

// outlook consumes station, optional issue time and validity window, and
// returns the index of the first body token.
func (p *parser) outlook(f *Forecast) (int, error) {
	i := 0
	at := func(i int) bodyToken {
		if i < len(p.tokens) {
			return p.tokens[i]
		}
		return bodyToken{pos: len(p.tokens)}
	}

	station := at(i)
	if !stationPattern.MatchString(station.value) {
		return 0, &ParseError{Kind: ErrMalformedOutlook, Token: station.value, Position: station.pos, Line: station.line}
	}
	f.Station = station.value
	i++

	f.Issued = p.reference.UTC()
	if tok := at(i); issuedPattern.MatchString(tok.value) {
		issued, err := ParseDayTime(p.reference, tok.value)
		if err != nil {
			return 0, &ParseError{Kind: ErrMalformedOutlook, Token: tok.value, Position: tok.pos, Line: tok.line}
		}
		f.Issued = issued
		i++
	}

	tok := at(i)
	window, err := ParseDayHourInterval(p.reference, tok.value)
	if err != nil {
		return 0, &ParseError{Kind: ErrMalformedOutlook, Token: tok.value, Position: tok.pos, Line: tok.line}
	}
	if window.Inverted() {
		return 0, &ParseError{Kind: ErrIntervalInversion, Token: tok.value, Position: tok.pos, Line: tok.line}
	}
	f.Effective = window
	return i + 1, nil
}

// segmentPeriods groups body tokens behind change-group leaders. Tokens
// before the first leader form the base period.
func segmentPeriods(body []bodyToken) []segment {
	segments := []segment{{change: ChangeBase}}
	open := func(s segment) { segments = append(segments, s) }

	for i := 0; i < len(body); i++ {
		tok := body[i]
		switch {
		case tok.value == "BECMG":
			open(segment{change: ChangeBecoming, leader: tok})
		case tok.value == "TEMPO":
			open(segment{change: ChangeTemporary, leader: tok})
		case fromPattern.MatchString(tok.value):
			open(segment{change: ChangeFrom, leader: tok, from: fromPattern.FindStringSubmatch(tok.value)[1]})
		case tok.value == "FM" && i+1 < len(body) && issuedPattern.MatchString(body[i+1].value):
			open(segment{change: ChangeFrom, leader: tok, from: body[i+1].value})
			i++
		case probabilityPattern.MatchString(tok.value):
			s := segment{change: ChangeProbability, leader: tok, hasProbability: true,
				probability: atoi(probabilityPattern.FindStringSubmatch(tok.value)[1])}
			if i+1 < len(body) && body[i+1].value == "TEMPO" {
				s.change = ChangeTemporary
				i++
			}
			open(s)
		default:
			last := &segments[len(segments)-1]
			last.tokens = append(last.tokens, tok)
		}
	}
	return segments
}

// demoteLoneProbabilities moves a PROBnn group with nothing behind it onto
// the end of the preceding period. Bulletins sometimes place the
// probability after the group it qualifies.
func demoteLoneProbabilities(segments []segment) []segment {
	for i := len(segments) - 1; i > 0; i-- {
		s := segments[i]
		if s.change != ChangeProbability || len(s.tokens) > 0 || s.trailing != nil {
			continue
		}
		leader := s.leader
		segments[i-1].trailing = &leader
		segments = append(segments[:i], segments[i+1:]...)
	}
	return segments
}

// joinSplitVisibility merges a whole-mile digit with the fraction that
// follows it ("1" "1/2SM" becomes "1 1/2SM").
func joinSplitVisibility(body []bodyToken) []bodyToken {
	out := make([]bodyToken, 0, len(body))
	for i := 0; i < len(body); i++ {
		tok := body[i]
		if wholeMilesPattern.MatchString(tok.value) && i+1 < len(body) &&
			fractionMilePattern.MatchString(body[i+1].value) {
			tok.value += " " + body[i+1].value
			i++
		}
		out = append(out, tok)
	}
	return out
}

// period classifies the segment's tokens. It reports whether a
// cancellation ended the body.
func (p *parser) period(s *segment) (Period, bool, error) {
	period := Period{Change: s.change}
	if s.hasProbability {
		pct := s.probability
		period.Probability = &pct
	}

	tokens := s.tokens
	state := KindInitial
	switch s.change {
	case ChangeFrom:
		start, err := ParseDayTime(p.reference, s.from)
		if err != nil {
			return Period{}, false, p.unrecognized(s.leader, KindInitial)
		}
		period.Interval.Start = start
	case ChangeBecoming, ChangeTemporary:
		window, err := p.window(s, tokens)
		if err != nil {
			return Period{}, false, err
		}
		tokens = tokens[1:]
		if s.change == ChangeBecoming {
			period.Transition = &window
		} else {
			period.Interval = window
		}
	case ChangeProbability:
		if len(tokens) > 0 && dayHourWindowRegex.MatchString(tokens[0].value) {
			window, err := p.window(s, tokens)
			if err != nil {
				return Period{}, false, err
			}
			period.Interval = window
			tokens = tokens[1:]
		} else {
			state = KindProbability
		}
	}

	for _, tok := range tokens {
		pt, m, err := p.classify(tok, state)
		if err != nil {
			return Period{}, false, err
		}
		if pt.kind == KindCancellation {
			return period, true, nil
		}
		el, err := pt.build(m, p.reference)
		if err != nil {
			kind := ErrUnrecognizedToken
			if errors.Is(err, ErrIntervalInversion) {
				kind = ErrIntervalInversion
			}
			return Period{}, false, &ParseError{Kind: kind, Token: tok.value, Position: tok.pos, Line: tok.line, State: state}
		}
		period.Elements = append(period.Elements, el)
		if pt.kind != KindIncomplete {
			state = pt.kind
		}
	}

	if s.trailing != nil {
		pct := atoi(probabilityPattern.FindStringSubmatch(s.trailing.value)[1])
		period.Elements = append(period.Elements, Probability{Percent: pct})
		if period.Probability == nil {
			period.Probability = &pct
		}
	}
	return period, false, nil
}

// window reads the mandatory DDhh/DDhh group that follows a change leader.
func (p *parser) window(s *segment, tokens []bodyToken) (Interval, error) {
	if len(tokens) == 0 {
		return Interval{}, &ParseError{
			Kind: ErrUnrecognizedToken, Position: s.leader.pos + 1, Line: s.leader.line,
			State: KindInitial, Expected: []ElementKind{KindInterval},
		}
	}
	tok := tokens[0]
	window, err := ParseDayHourInterval(p.reference, tok.value)
	if err != nil {
		return Interval{}, &ParseError{
			Kind: ErrUnrecognizedToken, Token: tok.value, Position: tok.pos, Line: tok.line,
			State: KindInitial, Expected: []ElementKind{KindInterval},
		}
	}
	if window.Inverted() {
		return Interval{}, &ParseError{Kind: ErrIntervalInversion, Token: tok.value, Position: tok.pos, Line: tok.line}
	}
	return window, nil
}

// classify returns the single pattern that matches tok and may follow state.
func (p *parser) classify(tok bodyToken, state ElementKind) (*pattern, []string, error) {
	var (
		found   *pattern
		match   []string
		matched []ElementKind
	)
	for i := range patterns {
		pt := &patterns[i]
		if !pt.kind.follows(state) {
			continue
		}
		if m := pt.match(tok.value); m != nil {
			found, match = pt, m
			matched = append(matched, pt.kind)
		}
	}

	switch len(matched) {
	case 1:
		return found, match, nil
	case 0:
		return nil, nil, p.unrecognized(tok, state)
	default:
		return nil, nil, &ParseError{
			Kind: ErrAmbiguousToken, Token: tok.value, Position: tok.pos, Line: tok.line,
			State: state, Expected: matched,
		}
	}
}

func (p *parser) unrecognized(tok bodyToken, state ElementKind) *ParseError {
	return &ParseError{
		Kind: ErrUnrecognizedToken, Token: tok.value, Position: tok.pos, Line: tok.line,
		State: state, Expected: successors(state),
	}
}

// assignIntervals fills in the spans of base, FM and BECMG periods. Each
// lasts until the next FM period starts, or to the end of the validity
// window. Windowless PROB periods take their INTER window when present.
func assignIntervals(effective Interval, periods []Period, segments []segment) error {
	nextFrom := effective.End
	for i := len(periods) - 1; i >= 0; i-- {
		p := &periods[i]
		switch p.Change {
		case ChangeBase:
			p.Interval = Interval{Start: effective.Start, End: nextFrom}
		case ChangeFrom:
			p.Interval.End = nextFrom
			nextFrom = p.Interval.Start
		case ChangeBecoming:
			p.Interval = Interval{Start: p.Transition.Start, End: nextFrom}
		case ChangeProbability:
			if p.Interval.IsZero() {
				p.Interval = effective
				for _, el := range p.Elements {
					if w, ok := el.(DayHourInterval); ok {
						p.Interval = w.Interval
						break
					}
				}
			}
		}

		if p.Interval.Inverted() {
			leader := segments[i].leader
			return &ParseError{Kind: ErrIntervalInversion, Token: leader.value, Position: leader.pos, Line: leader.line}
		}
	}
	return nil
}
