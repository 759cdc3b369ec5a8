package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"
)

// Source message headers.
const (
	HeaderContent   = "content"
	ContentCycle    = "cycle"
	ContentBulletin = "bulletin"
)

// RawEvent represents an unprocessed message from the source topic. Value
// holds a whole cycle file, or a single bulletin when the content header
// says so.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// IsBulletin reports whether the message carries one headerless bulletin.
func (r RawEvent) IsBulletin() bool {
	return r.Headers[HeaderContent] == ContentBulletin
}

// OutputKind routes an OutputEvent to its destination topic.
type OutputKind int

const (
	OutputForecast OutputKind = iota
	OutputFailure
)

func (k OutputKind) String() string {
	switch k {
	case OutputForecast:
		return "forecast"
	case OutputFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// OutputEvent is the serialized form destined for the sink.
type OutputEvent struct {
	Kind    OutputKind
	Key     []byte
	Value   []byte
	Headers map[string]string

	// Forecast is set for forecast events so secondary sinks can use the
	// parsed value without decoding Value.
	Forecast *Forecast
}

// EntryFailure records one entry that could not be parsed.
type EntryFailure struct {
	Source  string // source message key
	Index   int    // entry position within the cycle
	Header  string
	Snippet string
	Err     error
}

const snippetLimit = 80

// NewEntryFailure builds a failure record for entry.
func NewEntryFailure(source string, index int, entry CycleEntry, err error) EntryFailure {
	snippet := ""
	if len(entry.Lines) > 0 {
		snippet = entry.Lines[0]
	}
	if len(snippet) > snippetLimit {
		cut := snippetLimit
		for cut > 0 && !utf8.RuneStart(snippet[cut]) {
			cut--
		}
		snippet = snippet[:cut]
	}
	return EntryFailure{Source: source, Index: index, Header: entry.Header, Snippet: snippet, Err: err}
}

// Kind returns the failure's snake_case error kind.
func (f EntryFailure) Kind() string { return FailureKind(f.Err) }

type failureRecord struct {
	Source   string   `json:"source,omitempty"`
	Index    int      `json:"index"`
	Header   string   `json:"header"`
	Snippet  string   `json:"snippet"`
	Kind     string   `json:"kind"`
	Message  string   `json:"message"`
	Token    string   `json:"token,omitempty"`
	Position *int     `json:"position,omitempty"`
	Line     *int     `json:"line,omitempty"`
	State    string   `json:"state,omitempty"`
	Expected []string `json:"expected,omitempty"`
}

func (f EntryFailure) MarshalJSON() ([]byte, error) {
	rec := failureRecord{
		Source:  f.Source,
		Index:   f.Index,
		Header:  f.Header,
		Snippet: f.Snippet,
		Kind:    f.Kind(),
	}
	if f.Err != nil {
		rec.Message = f.Err.Error()
	}
	var pe *ParseError
	if errors.As(f.Err, &pe) {
		pos, line := pe.Position, pe.Line+1
		rec.Token = pe.Token
		rec.Position = &pos
		rec.Line = &line
		rec.State = pe.State.String()
		for _, k := range pe.Expected {
			rec.Expected = append(rec.Expected, k.String())
		}
	}
	return json.Marshal(rec)
}

// SerializeForecast converts a forecast into an output event keyed by
// station.
func SerializeForecast(f Forecast) (OutputEvent, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize forecast %s: %w", f.ID, err)
	}
	return OutputEvent{
		Kind:  OutputForecast,
		Key:   []byte(f.Station),
		Value: data,
		Headers: map[string]string{
			"type":         OutputForecast.String(),
			"forecast_id":  f.ID,
			"processed_at": f.ProcessedAt.Format(time.RFC3339),
		},
		Forecast: &f,
	}, nil
}

// SerializeFailure converts a failure into an output event.
func SerializeFailure(f EntryFailure) (OutputEvent, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize failure %d: %w", f.Index, err)
	}
	return OutputEvent{
		Kind:  OutputFailure,
		Key:   []byte(f.Source + "#" + strconv.Itoa(f.Index)),
		Value: data,
		Headers: map[string]string{
			"type": OutputFailure.String(),
			"kind": f.Kind(),
		},
	}, nil
}

// CycleResult collects the outcome of parsing a cycle file. Forecasts and
// failures keep the entry order of the file.
type CycleResult struct {
	Entries          int
	Forecasts        []Forecast
	Failures         []EntryFailure
	MalformedHeaders int
}

// ParseCycle splits and parses a cycle file one entry at a time. A failed
// entry is recorded and never stops the remaining entries.
func ParseCycle(source, content string) CycleResult {
	cycle := SplitCycle(content)
	result := CycleResult{Entries: len(cycle.Entries), MalformedHeaders: cycle.MalformedHeaders}
	for i, entry := range cycle.Entries {
		f, err := ParseCycleEntry(entry)
		if err != nil {
			result.Failures = append(result.Failures, NewEntryFailure(source, i, entry, err))
			continue
		}
		result.Forecasts = append(result.Forecasts, f)
	}
	return result
}
