package recipient

import (
	"strings"
	"unicode/utf8"

	"github.com/MarcGrol/flowershop/services/delivery"
	"github.com/MarcGrol/flowershop/services/region"
)

// every order is gift-wrapped
const isGift = true

const minStreetLength = 3

func minNameLength() int {
	if isGift {
		return 2
	}
	return 3
}

// Validator checks a recipient snapshot against one calendar and one region policy
type Validator struct {
	calendar delivery.Calendar
	regions  region.Policy
}

func NewValidator(calendar delivery.Calendar, regions region.Policy) Validator {
	return Validator{
		calendar: calendar,
		regions:  regions,
	}
}

// Validate has no side effects: the same snapshot always produces the same result
func (v Validator) Validate(d Details) Result {
	errs := map[Field]string{}

	if utf8.RuneCountInString(strings.TrimSpace(d.Name)) < minNameLength() {
		errs[FieldName] = "Please enter the full name of the recipient."
	}

	if !IsValidMobileNumber(d.Phone) {
		errs[FieldPhone] = "Please enter a valid mobile number starting with 5."
	}

	if msg := v.validateRegion(d); msg != "" {
		errs[FieldRegion] = msg
	}

	if strings.TrimSpace(d.District) != "" {
		if strings.TrimSpace(d.Neighborhood) == "" {
			errs[FieldNeighborhood] = "Please choose a neighborhood."
		} else if !v.regions.IsNeighborhoodAvailable(d.District, d.Neighborhood) {
			errs[FieldNeighborhood] = "We currently do not deliver to this neighborhood."
		}
	}

	if utf8.RuneCountInString(strings.TrimSpace(d.Street)) < minStreetLength {
		errs[FieldStreet] = "Please enter the street name."
	}

	if strings.TrimSpace(d.BuildingNumber) == "" {
		errs[FieldBuildingNumber] = "Please enter the building number."
	}

	if err := v.calendar.ValidateDate(d.DeliveryDate); err != nil {
		errs[FieldDeliveryDate] = err.Error()
	}

	if err := delivery.ValidateTimeSlot(d.DeliveryTime); err != nil {
		errs[FieldDeliveryTime] = err.Error()
	}

	return newResult(errs)
}

func (v Validator) validateRegion(d Details) string {
	if strings.TrimSpace(d.District) == "" {
		return "Please choose a district."
	}

	province := d.Province
	if strings.TrimSpace(province) == "" {
		province = region.ServedProvince
	}
	resolution := v.regions.ResolveSavedAddress(region.Address{
		Province:     province,
		District:     d.District,
		Neighborhood: d.Neighborhood,
	})
	if !resolution.Supported {
		return resolution.Warning
	}
	return ""
}

func newResult(errs map[Field]string) Result {
	result := Result{
		Errors: errs,
		OK:     len(errs) == 0,
	}
	for _, f := range FieldOrder {
		if _, found := errs[f]; found {
			result.FirstInvalid = f
			break
		}
	}
	return result
}
