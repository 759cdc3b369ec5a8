// Package domain decodes Terminal Aerodrome Forecasts (TAF) from NOAA cycle
// files into structured forecasts.
//
// # Data Source
//
// Cycle files are the hourly text dumps published by the Aviation Weather
// Center. A collector fetches them and publishes each file as one message
// on the source topic. A file is a run of blocks, each opened by a header
// line with the time the bulletins were filed:
//
//	2023/04/24 00:00
//	TAF KXYZ 240000Z 2400/2500 09010KT P6SM SCT250
//	     FM241200 18015G25KT P6SM BKN040=
//
//	2023/04/23 23:40 Ammendment
//	TAF AMD KABC 232340Z 2400/2506 VRB03KT 9999 FEW030=
//
// A header may end with "Ammendment" or "Correction" (the source spells
// the first one that way). "=" terminates each report, and several
// stations occasionally share one header line-by-line as in
// "...FEW030= TAF KDEF ...". See [SplitCycle].
//
// # Normalization
//
// The first content line of an entry is its outlook line. Leading TAF,
// AMD and COR tokens are dropped from it, and lines holding nothing but
// those prefixes are folded into it. Continuation lines normally open with
// a change group (FM, BECMG, TEMPO, PROBnn) or RMK. "PART n OF m" runs
// are removed and jammed keywords such as BECMG2406/2408 are split. See
// [TokenizeEntry].
//
// # Time Groups
//
// TAF times carry no month or year:
//
//	DDhhmm      issue time and FM groups, e.g. 240000Z, FM241200
//	DDhh/DDhh   validity windows, e.g. 2400/2506; hour 24 is allowed
//
// They are resolved against the header time. A day earlier than the
// reference day belongs to the next month, so 3018/0112 received on
// April 30 spans into May 1. See [ParseDayTime].
//
// # Grammar
//
// After the outlook (station, optional issue time, validity window) the
// body is cut into periods at FM, BECMG, TEMPO and PROBnn leaders.
// Each token is matched against the element patterns, and a match is only
// accepted when its kind may follow the previous element of the period.
// Anything else fails the entry with a [*ParseError]; nothing is guessed.
// CNL ends the body. RMK, AMDS and restated AMD/COR start free-text
// remarks.
//
// Period spans:
//
//	base    validity start until the first FM
//	FM      its own time until the next FM or validity end
//	BECMG   transition start until the next FM or validity end
//	TEMPO   its own window
//	PROB    its own window, or the INTER window that follows it
//
// # ID Generation
//
// Forecast IDs are station plus a short SHA-256 of station, issue time,
// revision and normalized text. Replaying a cycle yields the same IDs. See
// [forecastID].
package domain
