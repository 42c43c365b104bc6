package usecase

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"MarketSim/internal/domain/models"
	"MarketSim/pkg/util"
)

var ErrHorizonMismatch = errors.New("control length does not match horizon")

const (
	CtrlSentiment  = "overall_market_sentiment"
	CtrlFIIFlows   = "fii_flows"
	CtrlDIIFlows   = "dii_flows"
	CtrlGlobalCues = "global_market_cues"
	CtrlINRUSD     = "inr_usd_delta"
	CtrlCrudeOil   = "crude_oil_delta"
	CtrlEarnings   = "earnings_announcement"
	CtrlAnalyst    = "analyst_rating_change"
	CtrlNews       = "major_news"
	CtrlInsider    = "insider_activity"
	CtrlShock      = "predefined_global_shock"

	none = "none"

	MinHorizon = 1
	MaxHorizon = 365
)

type numericControl struct {
	name     string
	min, max float64
}

// Numeric controls default to 0, categorical ones to "none".
var numericControls = []numericControl{
	{CtrlSentiment, -1, 1},
	{CtrlFIIFlows, -2000, 2000},
	{CtrlDIIFlows, -1000, 1000},
	{CtrlGlobalCues, -1, 1},
	{CtrlINRUSD, -0.05, 0.05},
	{CtrlCrudeOil, -0.1, 0.1},
	{CtrlEarnings, 0, 1},
	{CtrlAnalyst, -2, 2},
}

var categoricalControls = map[string][]string{
	CtrlNews:    {none, "positive", "negative"},
	CtrlInsider: {none, "buy", "sell"},
	CtrlShock:   {none, "financial_crisis", "geopolitical", "pandemic", "commodity_spike", "policy_rate_shock"},
}

// categoricalAliases maps the simulator's event subtypes and older backend
// keys onto canonical options.
var categoricalAliases = map[string]map[string]string{
	CtrlNews: {
		"contract-win":    "positive",
		"product-launch":  "positive",
		"ceo-resigns":     "negative",
		"regulatory-fine": "negative",
	},
	CtrlInsider: {
		"promoter-buying":  "buy",
		"promoter-selling": "sell",
	},
	CtrlShock: {
		"financial-crisis": "financial_crisis",
		"credit_event":     "financial_crisis",
		"geo_political":    "geopolitical",
		"pandemic_wave":    "pandemic",
	},
}

// AllowedControls describes every control the remote path accepts.
func AllowedControls() models.AllowedControls {
	out := models.AllowedControls{
		Numeric:     make(map[string]models.NumericRange, len(numericControls)),
		Categorical: make(map[string][]string, len(categoricalControls)),
		Horizon:     models.NumericRange{Min: MinHorizon, Max: MaxHorizon},
		Modes:       []string{models.ModeHold, models.ModeTrajectory},
	}
	for _, c := range numericControls {
		out.Numeric[c.name] = models.NumericRange{Min: c.min, Max: c.max}
	}
	for name, opts := range categoricalControls {
		out.Categorical[name] = append([]string(nil), opts...)
	}
	return out
}

func lookupNumeric(name string) (numericControl, bool) {
	for _, c := range numericControls {
		if c.name == name {
			return c, true
		}
	}
	return numericControl{}, false
}

// NormalizeCategorical maps aliases onto canonical options. Unknown values
// are returned unchanged.
func NormalizeCategorical(name, value string) string {
	v := strings.TrimSpace(value)
	if canon, ok := categoricalAliases[name][v]; ok {
		return canon
	}
	return v
}

// ValidateControls checks every control value, scalar or per-day array,
// against its range or options. A positive horizon also checks array lengths.
func ValidateControls(controls map[string]interface{}, horizon int) []models.ControlViolation {
	var out []models.ControlViolation
	add := func(name, format string, args ...interface{}) {
		out = append(out, models.ControlViolation{Control: name, Message: fmt.Sprintf(format, args...)})
	}

	if horizon != 0 && (horizon < MinHorizon || horizon > MaxHorizon) {
		add("horizon", "must be between %d and %d", MinHorizon, MaxHorizon)
	}

	names := make([]string, 0, len(controls))
	for name := range controls {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		values, isArray := asSlice(controls[name])
		if isArray && horizon > 0 && len(values) != horizon {
			add(name, "length %d != horizon %d", len(values), horizon)
		}
		for _, v := range values {
			if msg := checkValue(name, v); msg != "" {
				add(name, "%s", msg)
				break
			}
		}
	}
	return out
}

// checkValue returns an empty string when v is acceptable for name.
func checkValue(name string, v interface{}) string {
	if v == nil {
		return ""
	}
	if c, ok := lookupNumeric(name); ok {
		f, ok := util.ToFloat(v)
		if !ok {
			return fmt.Sprintf("must be a number, got %T", v)
		}
		if f < c.min || f > c.max {
			return fmt.Sprintf("%g is outside [%g, %g]", f, c.min, c.max)
		}
		return ""
	}
	if opts, ok := categoricalControls[name]; ok {
		s, ok := v.(string)
		if !ok {
			return fmt.Sprintf("must be a string, got %T", v)
		}
		s = NormalizeCategorical(name, s)
		for _, o := range opts {
			if o == s {
				return ""
			}
		}
		return fmt.Sprintf("'%s' is not one of %s", s, strings.Join(opts, ", "))
	}
	return "unknown control"
}

// asSlice returns the elements of an array value, or the value itself as a
// single element.
func asSlice(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case []interface{}:
		return s, true
	case []float64:
		out := make([]interface{}, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	case []string:
		out := make([]interface{}, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	}
	return []interface{}{v}, false
}

// ExpandControl turns a control value into one value per day. A nil value
// uses def, a scalar repeats, an array must have exactly n elements.
func ExpandControl(name string, value interface{}, n int, def interface{}) ([]interface{}, error) {
	if value == nil {
		value = def
	}
	values, isArray := asSlice(value)
	if !isArray {
		out := make([]interface{}, n)
		for i := range out {
			out[i] = value
		}
		return out, nil
	}
	if len(values) != n {
		return nil, fmt.Errorf("control '%s' length %d != horizon %d: %w", name, len(values), n, ErrHorizonMismatch)
	}
	return values, nil
}

// ExpandNumeric is ExpandControl for numeric controls.
func ExpandNumeric(name string, value interface{}, n int) ([]float64, error) {
	values, err := ExpandControl(name, value, n, 0.0)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i, v := range values {
		if v == nil {
			continue
		}
		f, ok := util.ToFloat(v)
		if !ok {
			return nil, fmt.Errorf("control '%s' day %d: not a number", name, i+1)
		}
		out[i] = f
	}
	return out, nil
}

// ExpandCategorical is ExpandControl for categorical controls; values are
// normalized.
func ExpandCategorical(name string, value interface{}, n int) ([]string, error) {
	values, err := ExpandControl(name, value, n, none)
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i, v := range values {
		s, _ := v.(string)
		if s == "" {
			s = none
		}
		out[i] = NormalizeCategorical(name, s)
	}
	return out, nil
}
