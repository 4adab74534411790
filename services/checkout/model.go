package checkout

import (
	"github.com/MarcGrol/flowershop/services/checkoutflow"
	"github.com/MarcGrol/flowershop/services/checkoutmodel"
	"github.com/MarcGrol/flowershop/services/delivery"
	"github.com/MarcGrol/flowershop/services/identity"
	"github.com/MarcGrol/flowershop/services/paymentapi"
	"github.com/MarcGrol/flowershop/services/recipient"
)

type DeliveryWindow struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SessionView is everything the checkout page needs to render one step
type SessionView struct {
	Session               checkoutmodel.Session            `json:"session"`
	Authenticated         bool                             `json:"authenticated"`
	DeliveryWindow        DeliveryWindow                   `json:"deliveryWindow"`
	AllowedDates          []string                         `json:"allowedDates"`
	TimeSlots             []string                         `json:"timeSlots"`
	SecondaryRegionClosed bool                             `json:"secondaryRegionClosed"`
	ResumeOffer           *checkoutmodel.AbandonmentMarker `json:"resumeOffer,omitempty"`
	LastOutcome           *checkoutmodel.PaymentOutcome    `json:"lastOutcome,omitempty"`
}

type DateSelection struct {
	Date                 string `json:"date"`
	Notice               string `json:"notice,omitempty"`
	Clamped              bool   `json:"clamped"`
	Advanced             bool   `json:"advanced"`
	NeedsAcknowledgement bool   `json:"needsAcknowledgement"`
}

func newDateSelection(s delivery.Selection) DateSelection {
	return DateSelection{
		Date:                 delivery.FormatDate(s.Date),
		Notice:               s.Notice,
		Clamped:              s.Clamped,
		Advanced:             s.Advanced,
		NeedsAcknowledgement: s.NeedsAcknowledgement,
	}
}

// RecipientView returns the validation outcome without blocking the update
type RecipientView struct {
	SessionView
	Validation    recipient.Result `json:"validation"`
	DateSelection *DateSelection   `json:"dateSelection,omitempty"`
	// DistrictWarning is shown next to the district even when the address came from the member profile
	DistrictWarning string `json:"districtWarning,omitempty"`
}

type DateSuggestion struct {
	Date      string `json:"date,omitempty"`
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

type NavigationView struct {
	SessionView
	Navigation checkoutflow.NavigationOutcome `json:"navigation"`
}

type ChallengeView struct {
	Challenge identity.Challenge `json:"challenge"`
}

// PaymentView carries the opaque provider payload the browser must navigate to or render
type PaymentView struct {
	SessionView
	OrderUID    string                      `json:"orderUID"`
	OrderNumber string                      `json:"orderNumber"`
	Redirect    *paymentapi.RedirectPayload `json:"redirect,omitempty"`
	Summary     *checkoutmodel.OrderSummary `json:"summary,omitempty"`
}

// StepErrorResponse is returned with status 422 when a transition is refused
type StepErrorResponse struct {
	Error checkoutflow.StepError `json:"error"`
}
