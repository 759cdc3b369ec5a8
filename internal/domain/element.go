package domain

import "time"

// ElementKind names a forecast element type. KindInitial is the synthetic
// state before the first element of a period.
type ElementKind int

const (
	KindInitial ElementKind = iota
	KindAltimeter
	KindCancellation
	KindWind
	KindWindShear
	KindWindVariability
	KindVisibility
	KindCloud
	KindIntermittent
	KindInterval
	KindObscuration
	KindProbability
	KindRVR
	KindTemperature
	KindVerticalVisibility
	KindIcing
	KindTurbulence
	KindIncomplete

	kindCount
)

func (k ElementKind) String() string {
	switch k {
	case KindInitial:
		return "initial"
	case KindAltimeter:
		return "altimeter"
	case KindCancellation:
		return "cancellation"
	case KindWind:
		return "wind"
	case KindWindShear:
		return "wind_shear"
	case KindWindVariability:
		return "wind_variability"
	case KindVisibility:
		return "visibility"
	case KindCloud:
		return "cloud"
	case KindIntermittent:
		return "intermittent"
	case KindInterval:
		return "interval"
	case KindObscuration:
		return "obscuration"
	case KindProbability:
		return "probability"
	case KindRVR:
		return "rvr"
	case KindTemperature:
		return "temperature"
	case KindVerticalVisibility:
		return "vertical_visibility"
	case KindIcing:
		return "icing"
	case KindTurbulence:
		return "turbulence"
	case KindIncomplete:
		return "incomplete"
	default:
		return "unknown"
	}
}

func (k ElementKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// kindSet is a bit set of element kinds.
type kindSet uint32

func setOf(kinds ...ElementKind) kindSet {
	var s kindSet
	for _, k := range kinds {
		s |= 1 << uint(k)
	}
	return s
}

func (s kindSet) has(k ElementKind) bool { return s&(1<<uint(k)) != 0 }

// Element is one decoded forecast group. The set of implementations is
// closed; switch on the concrete type or on Kind.
type Element interface {
	Kind() ElementKind
	element()
}

// Altimeter is a QNH group. Value is hPa, or inches of mercury when Unit is
// "inHg".
type Altimeter struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// CloudLayer is a cloud group. Height is feet above ground; it is zero for
// the no-cloud codes (NSC, SKC, CLR, NCD).
type CloudLayer struct {
	Coverage string `json:"coverage"`
	Height   int    `json:"height_ft,omitempty"`
	Type     string `json:"type,omitempty"`
}

// Wind is a surface wind group. Direction is zero when Variable is set.
type Wind struct {
	Direction int    `json:"direction"`
	Variable  bool   `json:"variable,omitempty"`
	Speed     int    `json:"speed"`
	Gust      int    `json:"gust,omitempty"`
	Unit      string `json:"unit"`
}

// WindShear is a low-level wind shear group.
type WindShear struct {
	Height    int    `json:"height_ft"`
	Direction int    `json:"direction"`
	Speed     int    `json:"speed"`
	Unit      string `json:"unit"`
}

// WindVariability is a dddVddd direction range.
type WindVariability struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Visibility is a prevailing visibility group.
type Visibility struct {
	CAVOK     bool    `json:"cavok,omitempty"`
	Distance  float64 `json:"distance"`
	Unit      string  `json:"unit,omitempty"`
	Qualifier string  `json:"qualifier,omitempty"` // "above" (P) or "below" (M)
}

// Intermittent is the INTER marker.
type Intermittent struct{}

// DayHourInterval is a DDhh/DDhh window that appears among the elements.
type DayHourInterval struct {
	Interval Interval `json:"interval"`
}

// Phenomenon is a present weather or obscuration group.
type Phenomenon struct {
	Code                 string   `json:"code"`
	Intensity            string   `json:"intensity,omitempty"`
	Descriptor           string   `json:"descriptor,omitempty"`
	Phenomena            []string `json:"phenomena,omitempty"`
	NoSignificantWeather bool     `json:"nsw,omitempty"`
}

// Probability is a PROBnn marker kept among the elements.
type Probability struct {
	Percent int `json:"percent"`
}

// RunwayVisualRange is an RVR group.
type RunwayVisualRange struct {
	Runway     string `json:"runway"`
	Range      int    `json:"range"`
	Qualifier  string `json:"qualifier,omitempty"`
	VariableTo int    `json:"variable_to,omitempty"`
	Unit       string `json:"unit"`
	Tendency   string `json:"tendency,omitempty"`
}

// Temperature is a forecast maximum or minimum.
type Temperature struct {
	Extreme string     `json:"extreme"` // "max" or "min"
	Celsius int        `json:"celsius"`
	At      *time.Time `json:"at,omitempty"`
}

// VerticalVisibility is an indefinite-ceiling group. Height is feet.
type VerticalVisibility struct {
	Height int `json:"height_ft"`
}

// Icing is a 6IhhhT group. Base and Thickness are feet.
type Icing struct {
	Intensity int `json:"intensity"`
	Base      int `json:"base_ft"`
	Thickness int `json:"thickness_ft"`
}

// Turbulence is a 5BhhhT group. Base and Thickness are feet.
type Turbulence struct {
	Intensity int `json:"intensity"`
	Base      int `json:"base_ft"`
	Thickness int `json:"thickness_ft"`
}

// Incomplete is a group with slashes standing in for data the issuing
// station could not report, such as BKN/// or /////KT.
type Incomplete struct {
	Group string `json:"group"`
}

func (Altimeter) Kind() ElementKind          { return KindAltimeter }
func (CloudLayer) Kind() ElementKind         { return KindCloud }
func (Wind) Kind() ElementKind               { return KindWind }
func (WindShear) Kind() ElementKind          { return KindWindShear }
func (WindVariability) Kind() ElementKind    { return KindWindVariability }
func (Visibility) Kind() ElementKind         { return KindVisibility }
func (Intermittent) Kind() ElementKind       { return KindIntermittent }
func (DayHourInterval) Kind() ElementKind    { return KindInterval }
func (Phenomenon) Kind() ElementKind         { return KindObscuration }
func (Probability) Kind() ElementKind        { return KindProbability }
func (RunwayVisualRange) Kind() ElementKind  { return KindRVR }
func (Temperature) Kind() ElementKind        { return KindTemperature }
func (VerticalVisibility) Kind() ElementKind { return KindVerticalVisibility }
func (Icing) Kind() ElementKind              { return KindIcing }
func (Turbulence) Kind() ElementKind         { return KindTurbulence }
func (Incomplete) Kind() ElementKind         { return KindIncomplete }

func (Altimeter) element()          {}
func (CloudLayer) element()         {}
func (Wind) element()               {}
func (WindShear) element()          {}
func (WindVariability) element()    {}
func (Visibility) element()         {}
func (Intermittent) element()       {}
func (DayHourInterval) element()    {}
func (Phenomenon) element()         {}
func (Probability) element()        {}
func (RunwayVisualRange) element()  {}
func (Temperature) element()        {}
func (VerticalVisibility) element() {}
func (Icing) element()              {}
func (Turbulence) element()         {}
func (Incomplete) element()         {}

// taggedElement is the wire form of an Element.
type taggedElement struct {
	Kind  ElementKind `json:"kind"`
	Value Element     `json:"value"`
}

func tagElements(elements []Element) []taggedElement {
	out := make([]taggedElement, len(elements))
	for i, el := range elements {
		out[i] = taggedElement{Kind: el.Kind(), Value: el}
	}
	return out
}
