package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// pattern recognizes one element kind. build turns the submatches into an
// element; cancellation has no element and leaves build nil.
type pattern struct {
	kind  ElementKind
	re    *regexp.Regexp
	valid func(m []string) bool
	build func(m []string, reference time.Time) (Element, error)
}

func (p *pattern) match(token string) []string {
	m := p.re.FindStringSubmatch(token)
	if m == nil || (p.valid != nil && !p.valid(m)) {
		return nil
	}
	return m
}

// patterns is consulted in order. Overlaps are settled by the transition
// table, not by position.
var patterns = []pattern{
	{kind: KindAltimeter, re: regexp.MustCompile(`^QNH(\d{4})(INS)?$`), build: buildAltimeter},
	{kind: KindCancellation, re: regexp.MustCompile(`^CNL$`)},
	{kind: KindWind, re: regexp.MustCompile(`^(VRB|\d{3})(\d{2,3})(?:G(\d{2,3}))?(KT|MPS)$`), build: buildWind},
	{kind: KindWindShear, re: regexp.MustCompile(`^WS(\d{3})/(\d{3})(\d{2,3})(KT|MPS)$`), build: buildWindShear},
	{kind: KindWindVariability, re: regexp.MustCompile(`^(\d{3})V(\d{3})$`), build: buildWindVariability},
	{
		kind:  KindVisibility,
		re:    regexp.MustCompile(`^(?:(CAVOK)|(\d{4})(?:NDV)?|([PM])?(\d{1,2}|\d{1,2}/\d{1,2}|\d \d/\d{1,2})SM)$`),
		build: buildVisibility,
	},
	{kind: KindCloud, re: regexp.MustCompile(`^(?:(NSC|SKC|CLR|NCD)|(FEW|SCT|BKN|OVC)(\d{3})(CB|TCU)?)$`), build: buildCloud},
	{kind: KindIntermittent, re: regexp.MustCompile(`^INTER$`), build: func([]string, time.Time) (Element, error) {
		return Intermittent{}, nil
	}},
	{kind: KindInterval, re: dayHourWindowRegex, build: buildInterval},
	{
		kind: KindObscuration,
		re: regexp.MustCompile(`^(?:(NSW)|(\+|-|VC)?(MI|BC|PR|DR|BL|SH|TS|FZ)?` +
			`((?:DZ|RA|SN|SG|IC|PL|GR|GS|UP|BR|FG|FU|VA|DU|SA|HZ|PY|PO|SQ|FC|SS|DS)*))$`),
		valid: func(m []string) bool { return m[1] != "" || m[3] != "" || m[4] != "" },
		build: buildPhenomenon,
	},
	{kind: KindProbability, re: probabilityPattern, build: buildProbability},
	{kind: KindRVR, re: regexp.MustCompile(`^R(\d{2}[LCR]?)/([PM])?(\d{4})(?:V([PM])?(\d{4}))?(FT)?([UDN])?$`), build: buildRVR},
	{kind: KindTemperature, re: regexp.MustCompile(`^T([NX])(M?)(\d{2})/(?:(\d{2})(\d{2})Z?)?$`), build: buildTemperature},
	{kind: KindVerticalVisibility, re: regexp.MustCompile(`^VV(\d{3})$`), build: buildVerticalVisibility},
	{kind: KindIcing, re: regexp.MustCompile(`^6(\d)(\d{3})(\d)$`), build: buildIcing},
	{kind: KindTurbulence, re: regexp.MustCompile(`^5(\d)(\d{3})(\d)$`), build: buildTurbulence},
	{kind: KindIncomplete, re: regexp.MustCompile(`^(?:/{2,}\S+|\S+/{2,})$`), build: func(m []string, _ time.Time) (Element, error) {
		return Incomplete{Group: m[0]}, nil
	}},
}

var probabilityPattern = regexp.MustCompile(`^PROB(\d{2})$`)

// predecessors returns the states an element of kind k may follow.
func (k ElementKind) predecessors() kindSet {
	switch k {
	case KindInitial:
		return 0
	case KindAltimeter:
		return setOf(KindCloud, KindVerticalVisibility, KindWindShear, KindVisibility, KindObscuration,
			KindIcing, KindTurbulence)
	case KindCancellation:
		return setOf(KindInitial)
	case KindWind:
		return setOf(KindInitial, KindInterval)
	case KindWindShear:
		return setOf(KindWind, KindVisibility, KindObscuration, KindCloud, KindVerticalVisibility)
	case KindWindVariability:
		return setOf(KindWind)
	case KindVisibility:
		return setOf(KindInitial, KindInterval, KindWind, KindWindVariability)
	case KindCloud:
		return setOf(KindInitial, KindInterval, KindWind, KindWindVariability, KindVisibility, KindRVR,
			KindObscuration, KindCloud, KindVerticalVisibility)
	case KindIntermittent:
		return setOf(KindInitial, KindProbability, KindWind, KindVisibility, KindObscuration, KindCloud,
			KindVerticalVisibility)
	case KindInterval:
		return setOf(KindIntermittent, KindProbability)
	case KindObscuration:
		return setOf(KindInitial, KindInterval, KindWind, KindWindVariability, KindVisibility, KindRVR,
			KindObscuration, KindCloud)
	case KindProbability:
		return setOf(KindCloud, KindObscuration, KindTemperature, KindVisibility)
	case KindRVR:
		return setOf(KindVisibility, KindRVR)
	case KindTemperature:
		return setOf(KindWind, KindVisibility, KindObscuration, KindCloud, KindVerticalVisibility,
			KindWindShear, KindAltimeter, KindTemperature, KindIcing, KindTurbulence)
	case KindVerticalVisibility:
		return setOf(KindInitial, KindInterval, KindWind, KindWindVariability, KindVisibility, KindRVR,
			KindObscuration)
	case KindIcing, KindTurbulence:
		return setOf(KindCloud, KindVerticalVisibility, KindWindShear, KindIcing, KindTurbulence,
			KindObscuration, KindVisibility)
	case KindIncomplete:
		// Incomplete groups do not advance the state, so they never appear
		// in another row.
		return setOf(KindInitial, KindAltimeter, KindWind, KindWindShear, KindWindVariability, KindVisibility,
			KindCloud, KindInterval, KindObscuration, KindRVR, KindTemperature, KindVerticalVisibility,
			KindIcing, KindTurbulence)
	default:
		panic(fmt.Sprintf("no transition row for element kind %d", int(k)))
	}
}

// follows reports whether an element of kind k may come after state.
func (k ElementKind) follows(state ElementKind) bool {
	return k.predecessors().has(state)
}

// successors lists the kinds reachable from state, in pattern order.
func successors(state ElementKind) []ElementKind {
	var out []ElementKind
	for i := range patterns {
		if patterns[i].kind.follows(state) {
			out = append(out, patterns[i].kind)
		}
	}
	return out
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func buildAltimeter(m []string, _ time.Time) (Element, error) {
	if m[2] != "" {
		return Altimeter{Value: float64(atoi(m[1])) / 100, Unit: "inHg"}, nil
	}
	return Altimeter{Value: float64(atoi(m[1])), Unit: "hPa"}, nil
}

func buildWind(m []string, _ time.Time) (Element, error) {
	w := Wind{Speed: atoi(m[2]), Gust: atoi(m[3]), Unit: m[4]}
	if m[1] == "VRB" {
		w.Variable = true
	} else {
		w.Direction = atoi(m[1])
	}
	return w, nil
}

func buildWindShear(m []string, _ time.Time) (Element, error) {
	return WindShear{Height: atoi(m[1]) * 100, Direction: atoi(m[2]), Speed: atoi(m[3]), Unit: m[4]}, nil
}

func buildWindVariability(m []string, _ time.Time) (Element, error) {
	return WindVariability{From: atoi(m[1]), To: atoi(m[2])}, nil
}

func buildVisibility(m []string, _ time.Time) (Element, error) {
	switch {
	case m[1] != "":
		return Visibility{CAVOK: true}, nil
	case m[2] != "":
		return Visibility{Distance: float64(atoi(m[2])), Unit: "m"}, nil
	}
	miles, err := parseMiles(m[4])
	if err != nil {
		return nil, err
	}
	v := Visibility{Distance: miles, Unit: "SM"}
	switch m[3] {
	case "P":
		v.Qualifier = "above"
	case "M":
		v.Qualifier = "below"
	}
	return v, nil
}

// parseMiles reads "6", "3/4" or "1 1/2".
func parseMiles(s string) (float64, error) {
	var total float64
	for _, part := range strings.Fields(s) {
		num, den, isFraction := strings.Cut(part, "/")
		if !isFraction {
			total += float64(atoi(num))
			continue
		}
		d := atoi(den)
		if d == 0 {
			return 0, fmt.Errorf("visibility %q: zero denominator", s)
		}
		total += float64(atoi(num)) / float64(d)
	}
	return total, nil
}

func buildCloud(m []string, _ time.Time) (Element, error) {
	if m[1] != "" {
		return CloudLayer{Coverage: m[1]}, nil
	}
	return CloudLayer{Coverage: m[2], Height: atoi(m[3]) * 100, Type: m[4]}, nil
}

func buildInterval(m []string, reference time.Time) (Element, error) {
	window, err := ParseDayHourInterval(reference, m[0])
	if err != nil {
		return nil, err
	}
	if window.Inverted() {
		return nil, ErrIntervalInversion
	}
	return DayHourInterval{Interval: window}, nil
}

var intensities = map[string]string{"-": "light", "+": "heavy", "VC": "vicinity"}

func buildPhenomenon(m []string, _ time.Time) (Element, error) {
	if m[1] != "" {
		return Phenomenon{Code: m[0], NoSignificantWeather: true}, nil
	}
	p := Phenomenon{Code: m[0], Intensity: intensities[m[2]], Descriptor: m[3]}
	for i := 0; i+2 <= len(m[4]); i += 2 {
		p.Phenomena = append(p.Phenomena, m[4][i:i+2])
	}
	return p, nil
}

func buildProbability(m []string, _ time.Time) (Element, error) {
	return Probability{Percent: atoi(m[1])}, nil
}

func buildRVR(m []string, _ time.Time) (Element, error) {
	r := RunwayVisualRange{Runway: m[1], Range: atoi(m[3]), VariableTo: atoi(m[5]), Unit: "m"}
	switch m[2] {
	case "P":
		r.Qualifier = "above"
	case "M":
		r.Qualifier = "below"
	}
	if m[6] != "" {
		r.Unit = "FT"
	}
	switch m[7] {
	case "U":
		r.Tendency = "up"
	case "D":
		r.Tendency = "down"
	case "N":
		r.Tendency = "no_change"
	}
	return r, nil
}

func buildTemperature(m []string, reference time.Time) (Element, error) {
	t := Temperature{Extreme: "max", Celsius: atoi(m[3])}
	if m[1] == "N" {
		t.Extreme = "min"
	}
	if m[2] == "M" {
		t.Celsius = -t.Celsius
	}
	if m[4] != "" {
		at, err := ParseDayTime(reference, m[4]+m[5]+"00")
		if err != nil {
			return nil, err
		}
		t.At = &at
	}
	return t, nil
}

func buildVerticalVisibility(m []string, _ time.Time) (Element, error) {
	return VerticalVisibility{Height: atoi(m[1]) * 100}, nil
}

func buildIcing(m []string, _ time.Time) (Element, error) {
	return Icing{Intensity: atoi(m[1]), Base: atoi(m[2]) * 100, Thickness: atoi(m[3]) * 1000}, nil
}

func buildTurbulence(m []string, _ time.Time) (Element, error) {
	return Turbulence{Intensity: atoi(m[1]), Base: atoi(m[2]) * 100, Thickness: atoi(m[3]) * 1000}, nil
}
