package checkout

import (
	"fmt"
	"net/http"
	"net/url"

	formcodec "github.com/go-playground/form/v4"

	"github.com/MarcGrol/flowershop/lib/myerrors"
	"github.com/MarcGrol/flowershop/services/checkoutmodel"
	"github.com/MarcGrol/flowershop/services/identity"
	"github.com/MarcGrol/flowershop/services/recipient"
)

var decoder = formcodec.NewDecoder()

type dateForm struct {
	Date string `form:"date"`
}

type paymentMethodForm struct {
	Method checkoutmodel.PaymentMethod `form:"method"`
}

type termsForm struct {
	Accepted bool `form:"accepted"`
}

type codeForm struct {
	Code string `form:"code"`
}

type navigationForm struct {
	Intent string `form:"intent"`
}

func decodeRequest[T any](r *http.Request) (T, error) {
	var value T
	err := r.ParseForm()
	if err != nil {
		return value, myerrors.NewInvalidInputError(err)
	}
	return decodeValues[T](r.Form)
}

func decodeValues[T any](values url.Values) (T, error) {
	var value T
	err := decoder.Decode(&value, values)
	if err != nil {
		return value, myerrors.NewInvalidInputError(fmt.Errorf("error decoding form: %s", err))
	}
	return value, nil
}

func parseCart(r *http.Request) (checkoutmodel.Cart, error) {
	cart, err := decodeRequest[checkoutmodel.Cart](r)
	if err != nil {
		return cart, err
	}
	if cart.Currency == "" {
		cart.Currency = defaultCurrency
	}
	for _, item := range cart.Items {
		if item.ProductUID == "" || item.Quantity < 0 || item.UnitPriceInCents < 0 {
			return cart, myerrors.NewInvalidInputErrorf("invalid cart item '%s'", item.ProductUID)
		}
	}
	return cart, nil
}

func parseRecipient(r *http.Request) (recipient.Details, error) {
	return decodeRequest[recipient.Details](r)
}

func parseMessage(r *http.Request) (checkoutmodel.Message, error) {
	return decodeRequest[checkoutmodel.Message](r)
}

func parseGuestContact(r *http.Request) (identity.GuestContact, error) {
	return decodeRequest[identity.GuestContact](r)
}

func parseChallengeRequest(r *http.Request) (identity.ChallengeRequest, error) {
	return decodeRequest[identity.ChallengeRequest](r)
}
