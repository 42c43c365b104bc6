package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowedControls(t *testing.T) {
	a := AllowedControls()
	assert.Len(t, a.Numeric, 8)
	assert.Equal(t, -2000.0, a.Numeric[CtrlFIIFlows].Min)
	assert.Equal(t, 0.05, a.Numeric[CtrlINRUSD].Max)
	assert.Equal(t, []string{"none", "buy", "sell"}, a.Categorical[CtrlInsider])
	assert.Equal(t, []string{"hold", "trajectory"}, a.Modes)
	assert.Equal(t, 365.0, a.Horizon.Max)

	a.Categorical[CtrlInsider][0] = "mutated"
	assert.Equal(t, "none", AllowedControls().Categorical[CtrlInsider][0])
}

func TestValidateControls(t *testing.T) {
	tests := []struct {
		name     string
		controls map[string]interface{}
		horizon  int
		bad      []string
	}{
		{"empty", nil, 10, nil},
		{"in range", map[string]interface{}{CtrlSentiment: 0.5, CtrlFIIFlows: -1500.0, CtrlNews: "positive"}, 10, nil},
		{"aliases", map[string]interface{}{CtrlNews: "contract-win", CtrlShock: "geo_political", CtrlInsider: "promoter-selling"}, 10, nil},
		{"out of range", map[string]interface{}{CtrlCrudeOil: 0.5}, 10, []string{CtrlCrudeOil}},
		{"unknown control", map[string]interface{}{"moon_phase": 1.0}, 10, []string{"moon_phase"}},
		{"bad option", map[string]interface{}{CtrlShock: "alien_invasion"}, 10, []string{CtrlShock}},
		{"wrong type", map[string]interface{}{CtrlAnalyst: "up"}, 10, []string{CtrlAnalyst}},
		{"array element", map[string]interface{}{CtrlEarnings: []interface{}{0.0, 2.0, 1.0}}, 3, []string{CtrlEarnings}},
		{"array length", map[string]interface{}{CtrlEarnings: []interface{}{0.0, 1.0}}, 3, []string{CtrlEarnings}},
		{"horizon", nil, 400, []string{"horizon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateControls(tt.controls, tt.horizon)
			var got []string
			for _, x := range v {
				got = append(got, x.Control)
			}
			assert.Equal(t, tt.bad, got)
		})
	}
}

func TestExpandControl(t *testing.T) {
	vals, err := ExpandControl("x", nil, 3, 0.0)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{0.0, 0.0, 0.0}, vals)

	vals, err = ExpandControl("x", 2.5, 2, 0.0)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{2.5, 2.5}, vals)

	vals, err = ExpandControl("x", []interface{}{1.0, 2.0}, 2, 0.0)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1.0, 2.0}, vals)

	_, err = ExpandControl("x", []float64{1, 2, 3}, 2, 0.0)
	assert.ErrorIs(t, err, ErrHorizonMismatch)
}

func TestExpandTyped(t *testing.T) {
	nums, err := ExpandNumeric(CtrlAnalyst, []interface{}{1.0, nil, -2.0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, -2}, nums)

	_, err = ExpandNumeric(CtrlAnalyst, "strong", 2)
	assert.Error(t, err)

	cats, err := ExpandCategorical(CtrlNews, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"none", "none"}, cats)

	cats, err = ExpandCategorical(CtrlNews, []interface{}{"ceo-resigns", "positive"}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"negative", "positive"}, cats)
}

func TestNormalizeCategorical(t *testing.T) {
	assert.Equal(t, "financial_crisis", NormalizeCategorical(CtrlShock, "financial-crisis"))
	assert.Equal(t, "financial_crisis", NormalizeCategorical(CtrlShock, "credit_event"))
	assert.Equal(t, "buy", NormalizeCategorical(CtrlInsider, " promoter-buying "))
	assert.Equal(t, "whatever", NormalizeCategorical(CtrlNews, "whatever"))
}
