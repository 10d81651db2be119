package types

// ChargeModel is the pricing scheme attached to a plan charge
type ChargeModel string

const (
	// ChargeModelStandard prices every unit at a single unit price
	ChargeModelStandard ChargeModel = "standard"
	// ChargeModelGraduated prices slabs of units at per-tier rates
	ChargeModelGraduated ChargeModel = "graduated"
	// ChargeModelVolume prices all units at the rate of the tier the total falls into
	ChargeModelVolume ChargeModel = "volume"
	// ChargeModelPackage prices bundles of units after free units
	ChargeModelPackage ChargeModel = "package"
	// ChargeModelPercentage takes a rate over transacted amounts plus a per-event fee
	ChargeModelPercentage ChargeModel = "percentage"
	// ChargeModelGraduatedPercentage applies per-tier rates over transacted amounts
	ChargeModelGraduatedPercentage ChargeModel = "graduated_percentage"
)

func (m ChargeModel) Validate() bool {
	switch m {
	case ChargeModelStandard, ChargeModelGraduated, ChargeModelVolume,
		ChargeModelPackage, ChargeModelPercentage, ChargeModelGraduatedPercentage:
		return true
	}
	return false
}
