package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// ChangeKind identifies how a period was introduced.
type ChangeKind int

const (
	ChangeBase ChangeKind = iota
	ChangeFrom
	ChangeBecoming
	ChangeTemporary
	ChangeProbability
)

func (c ChangeKind) String() string {
	switch c {
	case ChangeBase:
		return "base"
	case ChangeFrom:
		return "FM"
	case ChangeBecoming:
		return "BECMG"
	case ChangeTemporary:
		return "TEMPO"
	case ChangeProbability:
		return "PROB"
	default:
		return "unknown"
	}
}

func (c ChangeKind) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Period is one change group of a forecast.
type Period struct {
	Change      ChangeKind
	Interval    Interval
	Transition  *Interval // BECMG change window
	Probability *int      // percent, when introduced or qualified by PROBnn
	Elements    []Element
}

func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Change      ChangeKind      `json:"change"`
		Interval    Interval        `json:"interval"`
		Transition  *Interval       `json:"transition,omitempty"`
		Probability *int            `json:"probability,omitempty"`
		Elements    []taggedElement `json:"elements"`
	}{p.Change, p.Interval, p.Transition, p.Probability, tagElements(p.Elements)})
}

// Forecast is a fully parsed TAF.
type Forecast struct {
	ID          string    `json:"id"`
	Station     string    `json:"station"`
	Received    time.Time `json:"received"`
	Issued      time.Time `json:"issued"`
	Effective   Interval  `json:"effective"`
	Revision    Revision  `json:"revision,omitempty"`
	Canceled    bool      `json:"canceled,omitempty"`
	Periods     []Period  `json:"periods"`
	Remarks     string    `json:"remarks,omitempty"`
	Raw         string    `json:"raw"`
	ProcessedAt time.Time `json:"processed_at"`
}

// PeriodAt returns the last non-temporary period whose interval contains t.
// TEMPO and PROB periods are overlays and are skipped.
func (f Forecast) PeriodAt(t time.Time) (Period, bool) {
	var found Period
	ok := false
	for _, p := range f.Periods {
		if p.Change == ChangeTemporary || p.Change == ChangeProbability {
			continue
		}
		if p.Interval.Contains(t) {
			found, ok = p, true
		}
	}
	return found, ok
}

// EnrichForecast stamps the processing time.
func EnrichForecast(f Forecast) Forecast {
	f.ProcessedAt = clock.Now().UTC()
	return f
}

// forecastID produces a deterministic ID from the forecast's identity and
// normalized text, so replaying a cycle yields the same IDs.
func forecastID(station string, issued time.Time, revision Revision, raw string) string {
	input := fmt.Sprintf("%s|%s|%s|%s", station, issued.UTC().Format(time.RFC3339), revision, raw)
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if station == "" {
		return short
	}
	return station + "-" + short
}
