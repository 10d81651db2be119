package service

import (
	"github.com/billix/billix/internal/domain/charge"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
)

// CalculationInput carries the aggregated quantities a charge is priced
// over. TotalAmount is only meaningful for the percentage models, where the
// metric's aggregation carries the transacted total.
type CalculationInput struct {
	Units       decimal.Decimal
	EventCount  uint64
	TotalAmount decimal.Decimal
}

// CalculateCharge prices aggregated usage under the given charge model.
// Calculators are pure: no clock, no store, no rounding beyond the four
// decimal places preserved throughout. Rounding to cents happens at the
// invoice layer.
func CalculateCharge(model types.ChargeModel, props charge.Properties, input CalculationInput) (decimal.Decimal, error) {
	units := input.Units
	if units.IsNegative() {
		units = decimal.Zero
	}

	switch model {
	case types.ChargeModelStandard:
		return calculateStandard(units, props), nil
	case types.ChargeModelPackage:
		return calculatePackage(units, props), nil
	case types.ChargeModelGraduated:
		return calculateGraduated(units, props.NormalizedTiers()), nil
	case types.ChargeModelVolume:
		return calculateVolume(units, props.NormalizedTiers()), nil
	case types.ChargeModelPercentage:
		return calculatePercentage(input, props), nil
	case types.ChargeModelGraduatedPercentage:
		return calculateGraduatedPercentage(input.TotalAmount, props.NormalizedTiers()), nil
	default:
		return decimal.Zero, ierr.NewError("unknown charge model").
			WithHintf("Charge model %s is not supported", model).
			Mark(ierr.ErrValidation)
	}
}

func calculateStandard(units decimal.Decimal, props charge.Properties) decimal.Decimal {
	return units.Mul(props.UnitPrice)
}

// calculatePackage bills full packages over the free allowance. A started
// package counts as a whole one.
func calculatePackage(units decimal.Decimal, props charge.Properties) decimal.Decimal {
	if props.PackageSize <= 0 {
		return decimal.Zero
	}
	billable := units.Sub(props.FreeUnits)
	if !billable.IsPositive() {
		return decimal.Zero
	}
	packages := billable.Div(decimal.NewFromInt(props.PackageSize)).Ceil()
	return packages.Mul(props.Amount)
}

// calculateGraduated walks the tiers in order, each tier consuming units up
// to its bound. A tier's flat amount applies once units reach it.
func calculateGraduated(units decimal.Decimal, tiers []charge.Tier) decimal.Decimal {
	total := decimal.Zero
	remaining := units
	prevUpTo := decimal.Zero

	for _, tier := range tiers {
		if !remaining.IsPositive() {
			break
		}
		inTier := remaining
		if tier.UpTo != nil {
			width := tier.UpTo.Sub(prevUpTo)
			if width.IsNegative() {
				width = decimal.Zero
			}
			inTier = decimal.Min(remaining, width)
			prevUpTo = *tier.UpTo
		}
		total = total.Add(inTier.Mul(tier.UnitPrice)).Add(tier.FlatAmount)
		remaining = remaining.Sub(inTier)
	}
	return total
}

// calculateVolume prices all units at the rate of the first tier whose
// bound covers the total, falling through to the open-ended last tier.
func calculateVolume(units decimal.Decimal, tiers []charge.Tier) decimal.Decimal {
	if len(tiers) == 0 {
		return decimal.Zero
	}
	for _, tier := range tiers {
		if tier.UpTo == nil || units.LessThanOrEqual(*tier.UpTo) {
			return units.Mul(tier.UnitPrice).Add(tier.FlatAmount)
		}
	}
	last := tiers[len(tiers)-1]
	return units.Mul(last.UnitPrice).Add(last.FlatAmount)
}

// calculatePercentage takes the rate over the transacted total plus a fixed
// amount per event over the free allowance, then applies the optional
// per-transaction clamps to the result.
func calculatePercentage(input CalculationInput, props charge.Properties) decimal.Decimal {
	amount := input.TotalAmount.Mul(props.Rate).Div(decimal.NewFromInt(100))

	billableEvents := int64(input.EventCount) - props.FreeUnitsPerEvents
	if billableEvents > 0 && props.FixedAmount.IsPositive() {
		amount = amount.Add(decimal.NewFromInt(billableEvents).Mul(props.FixedAmount))
	}

	if props.PerTransactionMin != nil && amount.LessThan(*props.PerTransactionMin) {
		amount = *props.PerTransactionMin
	}
	if props.PerTransactionMax != nil && amount.GreaterThan(*props.PerTransactionMax) {
		amount = *props.PerTransactionMax
	}
	return amount
}

// calculateGraduatedPercentage is graduated pricing where tiers consume
// from the transacted amount instead of units.
func calculateGraduatedPercentage(totalAmount decimal.Decimal, tiers []charge.Tier) decimal.Decimal {
	if totalAmount.IsNegative() {
		totalAmount = decimal.Zero
	}
	total := decimal.Zero
	remaining := totalAmount
	prevUpTo := decimal.Zero

	for _, tier := range tiers {
		if !remaining.IsPositive() {
			break
		}
		portion := remaining
		if tier.UpTo != nil {
			width := tier.UpTo.Sub(prevUpTo)
			if width.IsNegative() {
				width = decimal.Zero
			}
			portion = decimal.Min(remaining, width)
			prevUpTo = *tier.UpTo
		}
		total = total.Add(portion.Mul(tier.Rate).Div(decimal.NewFromInt(100))).Add(tier.FlatAmount)
		remaining = remaining.Sub(portion)
	}
	return total
}
