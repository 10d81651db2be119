package service

import (
	"testing"

	"github.com/billix/billix/internal/domain/charge"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestCalculateCharge_Standard(t *testing.T) {
	tests := []struct {
		name     string
		units    string
		props    charge.Properties
		expected string
	}{
		{
			name:     "whole_units",
			units:    "10",
			props:    charge.Properties{UnitPrice: dec("2.5")},
			expected: "25",
		},
		{
			name:     "fractional_units",
			units:    "0.001",
			props:    charge.Properties{UnitPrice: dec("3")},
			expected: "0.003",
		},
		{
			name:     "zero_units",
			units:    "0",
			props:    charge.Properties{UnitPrice: dec("2.5")},
			expected: "0",
		},
		{
			name:     "negative_units_clamped",
			units:    "-4",
			props:    charge.Properties{UnitPrice: dec("2.5")},
			expected: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := CalculateCharge(types.ChargeModelStandard, tt.props, CalculationInput{Units: dec(tt.units)})
			assert.NoError(t, err)
			assert.True(t, dec(tt.expected).Equal(amount),
				"expected %s got %s", tt.expected, amount)
		})
	}
}

func TestCalculateCharge_Package(t *testing.T) {
	props := charge.Properties{
		PackageSize: 3,
		FreeUnits:   dec("1"),
		Amount:      dec("9"),
	}

	tests := []struct {
		name     string
		units    string
		expected string
	}{
		// 7 units - 1 free = 6 billable = 2 full packages of 3
		{name: "full_packages", units: "7", expected: "18"},
		// a started package counts as a whole one
		{name: "partial_package_rounds_up", units: "8", expected: "27"},
		{name: "all_free", units: "1", expected: "0"},
		{name: "zero_units", units: "0", expected: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := CalculateCharge(types.ChargeModelPackage, props, CalculationInput{Units: dec(tt.units)})
			assert.NoError(t, err)
			assert.True(t, dec(tt.expected).Equal(amount),
				"expected %s got %s", tt.expected, amount)
		})
	}
}

func TestCalculateCharge_Graduated(t *testing.T) {
	props := charge.Properties{
		Tiers: []charge.Tier{
			{UpTo: decPtr("100"), UnitPrice: dec("1"), FlatAmount: dec("0")},
			{UpTo: nil, UnitPrice: dec("0.5")},
		},
	}

	tests := []struct {
		name     string
		units    string
		expected string
	}{
		// 100*1 + 150*0.5 = 175
		{name: "spans_two_tiers", units: "250", expected: "175"},
		{name: "inside_first_tier", units: "50", expected: "50"},
		{name: "exactly_at_bound", units: "100", expected: "100"},
		{name: "zero_units", units: "0", expected: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := CalculateCharge(types.ChargeModelGraduated, props, CalculationInput{Units: dec(tt.units)})
			assert.NoError(t, err)
			assert.True(t, dec(tt.expected).Equal(amount),
				"expected %s got %s", tt.expected, amount)
		})
	}
}

func TestCalculateCharge_GraduatedFlatAmounts(t *testing.T) {
	props := charge.Properties{
		Tiers: []charge.Tier{
			{UpTo: decPtr("10"), UnitPrice: dec("1"), FlatAmount: dec("5")},
			{UpTo: nil, UnitPrice: dec("0.5"), FlatAmount: dec("3")},
		},
	}

	// 10*1 + 5 + 2*0.5 + 3 = 19; the second flat amount only applies once
	// units reach the tier
	amount, err := CalculateCharge(types.ChargeModelGraduated, props, CalculationInput{Units: dec("12")})
	assert.NoError(t, err)
	assert.True(t, dec("19").Equal(amount), "got %s", amount)

	// units inside the first tier never touch the second flat amount
	amount, err = CalculateCharge(types.ChargeModelGraduated, props, CalculationInput{Units: dec("4")})
	assert.NoError(t, err)
	assert.True(t, dec("9").Equal(amount), "got %s", amount)
}

func TestCalculateCharge_GraduatedRangesInput(t *testing.T) {
	// graduated_ranges is the alternate input shape; to_value maps to up_to
	props := charge.Properties{
		GraduatedRanges: []charge.GraduatedRange{
			{FromValue: dec("0"), ToValue: decPtr("100"), PerUnit: dec("1")},
			{FromValue: dec("101"), PerUnit: dec("0.5")},
		},
	}

	amount, err := CalculateCharge(types.ChargeModelGraduated, props, CalculationInput{Units: dec("250")})
	assert.NoError(t, err)
	assert.True(t, dec("175").Equal(amount), "got %s", amount)
}

func TestCalculateCharge_Volume(t *testing.T) {
	props := charge.Properties{
		Tiers: []charge.Tier{
			{UpTo: decPtr("100"), UnitPrice: dec("1")},
			{UpTo: nil, UnitPrice: dec("0.5")},
		},
	}

	tests := []struct {
		name     string
		units    string
		expected string
	}{
		// all units priced at the covering tier's rate
		{name: "second_tier_rate_for_all_units", units: "250", expected: "125"},
		{name: "first_tier", units: "80", expected: "80"},
		{name: "boundary_stays_in_first_tier", units: "100", expected: "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := CalculateCharge(types.ChargeModelVolume, props, CalculationInput{Units: dec(tt.units)})
			assert.NoError(t, err)
			assert.True(t, dec(tt.expected).Equal(amount),
				"expected %s got %s", tt.expected, amount)
		})
	}
}

func TestCalculateCharge_Volume_FlatAmount(t *testing.T) {
	props := charge.Properties{
		Tiers: []charge.Tier{
			{UpTo: decPtr("100"), UnitPrice: dec("1"), FlatAmount: dec("10")},
			{UpTo: nil, UnitPrice: dec("0.5"), FlatAmount: dec("20")},
		},
	}

	// only the covering tier's flat amount applies
	amount, err := CalculateCharge(types.ChargeModelVolume, props, CalculationInput{Units: dec("250")})
	assert.NoError(t, err)
	assert.True(t, dec("145").Equal(amount), "got %s", amount)
}

func TestCalculateCharge_Percentage(t *testing.T) {
	tests := []struct {
		name     string
		props    charge.Properties
		input    CalculationInput
		expected string
	}{
		{
			// 1000 * 0.3% + (4-2)*0.4 = 3 + 0.8 = 3.8
			name: "rate_plus_fixed_amount_over_free_events",
			props: charge.Properties{
				Rate:               dec("0.3"),
				FixedAmount:        dec("0.4"),
				FreeUnitsPerEvents: 2,
			},
			input:    CalculationInput{TotalAmount: dec("1000"), EventCount: 4},
			expected: "3.8",
		},
		{
			name: "min_clamp",
			props: charge.Properties{
				Rate:              dec("1"),
				PerTransactionMin: decPtr("5"),
			},
			input:    CalculationInput{TotalAmount: dec("100"), EventCount: 1},
			expected: "5",
		},
		{
			name: "max_clamp",
			props: charge.Properties{
				Rate:              dec("10"),
				PerTransactionMax: decPtr("50"),
			},
			input:    CalculationInput{TotalAmount: dec("1000"), EventCount: 1},
			expected: "50",
		},
		{
			name: "all_events_free",
			props: charge.Properties{
				Rate:               dec("1"),
				FixedAmount:        dec("0.4"),
				FreeUnitsPerEvents: 10,
			},
			input:    CalculationInput{TotalAmount: dec("200"), EventCount: 3},
			expected: "2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := CalculateCharge(types.ChargeModelPercentage, tt.props, tt.input)
			assert.NoError(t, err)
			assert.True(t, dec(tt.expected).Equal(amount),
				"expected %s got %s", tt.expected, amount)
		})
	}
}

func TestCalculateCharge_GraduatedPercentage(t *testing.T) {
	props := charge.Properties{
		Tiers: []charge.Tier{
			{UpTo: decPtr("1000"), Rate: dec("2")},
			{UpTo: nil, Rate: dec("1")},
		},
	}

	// 1000*2% + 500*1% = 20 + 5 = 25
	amount, err := CalculateCharge(types.ChargeModelGraduatedPercentage, props, CalculationInput{TotalAmount: dec("1500")})
	assert.NoError(t, err)
	assert.True(t, dec("25").Equal(amount), "got %s", amount)

	amount, err = CalculateCharge(types.ChargeModelGraduatedPercentage, props, CalculationInput{TotalAmount: dec("400")})
	assert.NoError(t, err)
	assert.True(t, dec("8").Equal(amount), "got %s", amount)
}

func TestCalculateCharge_UnknownModel(t *testing.T) {
	_, err := CalculateCharge(types.ChargeModel("metered"), charge.Properties{}, CalculationInput{Units: dec("1")})
	assert.Error(t, err)
}
