package checkoutflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MarcGrol/flowershop/lib/mytime"
	"github.com/MarcGrol/flowershop/services/checkoutmodel"
	"github.com/MarcGrol/flowershop/services/delivery"
	"github.com/MarcGrol/flowershop/services/identity"
	"github.com/MarcGrol/flowershop/services/recipient"
	"github.com/MarcGrol/flowershop/services/region"
)

func policies() Policies {
	return NewPolicies(mytime.ExampleTime, nil, region.DefaultSettings())
}

func validSession(step checkoutmodel.Step) checkoutmodel.Session {
	return checkoutmodel.Session{
		UID:  "sess-1",
		Step: step,
		Cart: checkoutmodel.Cart{Items: []checkoutmodel.CartItem{{ProductUID: "rose", Quantity: 1, UnitPriceInCents: 45000}}, Currency: "TRY"},
		Recipient: recipient.Details{
			Name:           "Ayşe Yılmaz",
			Phone:          "5551234567",
			Province:       "İstanbul",
			District:       "Beşiktaş",
			Neighborhood:   "Levent",
			Street:         "Nispetiye Caddesi",
			BuildingNumber: "12",
			DeliveryDate:   "2023-03-01",
			DeliveryTime:   delivery.SlotEvening,
		},
		Identity:      identity.Identity{Kind: identity.KindGuest, Guest: identity.GuestContact{Email: "a@b.com", Phone: "5551234567"}},
		TermsAccepted: true,
	}
}

func TestAdvance(t *testing.T) {
	t.Run("full forward path", func(t *testing.T) {
		s := validSession(checkoutmodel.StepCart)

		for _, expected := range []checkoutmodel.Step{checkoutmodel.StepRecipient, checkoutmodel.StepMessage, checkoutmodel.StepPayment} {
			var err error
			s, err = Advance(s, policies())
			assert.NoError(t, err)
			assert.Equal(t, expected, s.Step)
		}
		assert.Equal(t, 1, s.PaymentEntries)

		_, err := Advance(s, policies())
		assert.Equal(t, ReasonNoOrder, err.(*StepError).Reason)

		s.OrderUID = "order-1"
		s, err = Advance(s, policies())
		assert.NoError(t, err)
		assert.Equal(t, checkoutmodel.StepSuccess, s.Step)
	})

	t.Run("empty cart", func(t *testing.T) {
		s := validSession(checkoutmodel.StepCart)
		s.Cart = checkoutmodel.Cart{}

		after, err := Advance(s, policies())

		assert.Equal(t, ReasonEmptyCart, err.(*StepError).Reason)
		assert.Equal(t, checkoutmodel.StepCart, after.Step)
	})

	t.Run("closed district blocks recipient step", func(t *testing.T) {
		s := validSession(checkoutmodel.StepRecipient)
		s.Recipient.District = "Çatalca"
		s.Recipient.Neighborhood = "Merkez"

		after, err := Advance(s, policies())

		stepErr := err.(*StepError)
		assert.Equal(t, ReasonInvalidRecipient, stepErr.Reason)
		assert.Equal(t, recipient.FieldRegion, stepErr.FirstInvalid)
		assert.Equal(t, checkoutmodel.StepRecipient, after.Step)
	})

	t.Run("same invalid snapshot gives same error", func(t *testing.T) {
		s := validSession(checkoutmodel.StepRecipient)
		s.Recipient.Phone = "12"
		s.Recipient.DeliveryDate = "2023-03-05"

		_, first := Advance(s, policies())
		_, second := Advance(s, policies())

		assert.Equal(t, first, second)
		assert.Len(t, first.(*StepError).Fields, 2)
	})

	t.Run("message step is optional", func(t *testing.T) {
		s := validSession(checkoutmodel.StepMessage)
		s.Message = checkoutmodel.Message{}

		after, err := Advance(s, policies())

		assert.NoError(t, err)
		assert.Equal(t, checkoutmodel.StepPayment, after.Step)
	})

	t.Run("guest without tld cannot pay", func(t *testing.T) {
		s := validSession(checkoutmodel.StepPayment)
		s.Identity.Guest.Email = "a@b"
		s.OrderUID = "order-1"

		_, err := Advance(s, policies())

		stepErr := err.(*StepError)
		assert.Equal(t, ReasonIdentity, stepErr.Reason)
		assert.Equal(t, identity.ReasonInvalidEmail, stepErr.Gate.Reason)
	})

	t.Run("terms must be accepted", func(t *testing.T) {
		s := validSession(checkoutmodel.StepPayment)
		s.TermsAccepted = false

		assert.Equal(t, ReasonTerms, CheckPaymentGate(s).Reason)
	})

	t.Run("logged in member bypasses identity choice", func(t *testing.T) {
		s := validSession(checkoutmodel.StepPayment)
		s.Identity = identity.Identity{Kind: identity.KindUndecided}
		s.Member = &identity.AuthSession{CustomerUID: "cust-1"}

		assert.Nil(t, CheckPaymentGate(s))
	})

	t.Run("success is terminal", func(t *testing.T) {
		_, err := Advance(validSession(checkoutmodel.StepSuccess), policies())

		assert.Equal(t, ReasonTerminal, err.(*StepError).Reason)
	})
}

func TestReenteringPaymentCountsEveryEntry(t *testing.T) {
	s := validSession(checkoutmodel.StepMessage)

	first, _ := Advance(s, policies())
	assert.True(t, EnteredPayment(s, first))

	back := Back(first)
	second, _ := Advance(back, policies())
	assert.True(t, EnteredPayment(back, second))
	assert.Equal(t, 2, second.PaymentEntries)

	assert.False(t, EnteredPayment(second, second))
}

func TestBackNeverFails(t *testing.T) {
	// deliberately invalid everywhere
	s := checkoutmodel.Session{Step: checkoutmodel.StepPayment}

	s = Back(s)
	assert.Equal(t, checkoutmodel.StepMessage, s.Step)
	s = Back(s)
	assert.Equal(t, checkoutmodel.StepRecipient, s.Step)
	s = Back(s)
	assert.Equal(t, checkoutmodel.StepCart, s.Step)
	s = Back(s)
	assert.Equal(t, checkoutmodel.StepCart, s.Step)
}

func TestEnterPaymentAndComplete(t *testing.T) {
	s := validSession(checkoutmodel.StepCart)

	s = EnterPayment(s)
	assert.Equal(t, checkoutmodel.StepPayment, s.Step)
	assert.Equal(t, 1, s.PaymentEntries)

	s = EnterPayment(s)
	assert.Equal(t, 1, s.PaymentEntries)

	s.Payment.Processing = true
	s = Complete(s)
	assert.Equal(t, checkoutmodel.StepSuccess, s.Step)
	assert.False(t, s.Payment.Processing)
}
