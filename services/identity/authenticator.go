package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/MarcGrol/flowershop/lib/myerrors"
	"github.com/MarcGrol/flowershop/lib/myhttpclient"
	"github.com/MarcGrol/flowershop/services/recipient"
)

// Authenticator is the external login / one-time-code service
//
//go:generate mockgen -source=authenticator.go -package identity -destination authenticator_mock.go Authenticator
type Authenticator interface {
	StartChallenge(c context.Context, request ChallengeRequest) (Challenge, error)
	VerifyChallenge(c context.Context, challengeUID string, code string) (AuthSession, error)
	LookupSession(c context.Context, token string) (AuthSession, bool, error)
}

type httpAuthenticator struct {
	baseURL string
	client  myhttpclient.HTTPSender
}

func NewHTTPAuthenticator(baseURL string, client myhttpclient.HTTPSender) Authenticator {
	return &httpAuthenticator{
		baseURL: baseURL,
		client:  client,
	}
}

// ValidateChallengeRequest requires at least one destination, every given destination must be valid
func ValidateChallengeRequest(request ChallengeRequest) error {
	email := strings.TrimSpace(request.Email)
	phone := strings.TrimSpace(request.Phone)
	if email == "" && phone == "" {
		return myerrors.NewInvalidInputErrorf("e-mail or phone is required to send a code")
	}
	if email != "" && !IsValidEmail(email) {
		return myerrors.NewInvalidInputErrorf("e-mail %s is not valid", email)
	}
	if phone != "" && !recipient.IsValidMobileNumber(phone) {
		return myerrors.NewInvalidInputErrorf("phone %s is not a valid mobile number", phone)
	}
	return nil
}

func (a *httpAuthenticator) StartChallenge(c context.Context, request ChallengeRequest) (Challenge, error) {
	err := ValidateChallengeRequest(request)
	if err != nil {
		return Challenge{}, err
	}

	challenge := Challenge{}
	err = a.call(c, http.MethodPost, a.baseURL+"/auth/otp/start", request, &challenge)
	if err != nil {
		return Challenge{}, err
	}
	return challenge, nil
}

func (a *httpAuthenticator) VerifyChallenge(c context.Context, challengeUID string, code string) (AuthSession, error) {
	session := AuthSession{}
	err := a.call(c, http.MethodPost, a.baseURL+"/auth/otp/verify", map[string]string{
		"challengeUID": challengeUID,
		"code":         code,
	}, &session)
	if err != nil {
		return AuthSession{}, err
	}
	if !session.IsAuthenticated() {
		return AuthSession{}, myerrors.NewAuthenticationError(fmt.Errorf("code for challenge %s not accepted", challengeUID))
	}
	return session, nil
}

func (a *httpAuthenticator) LookupSession(c context.Context, token string) (AuthSession, bool, error) {
	if token == "" {
		return AuthSession{}, false, nil
	}

	session := AuthSession{}
	err := a.call(c, http.MethodGet, a.baseURL+"/auth/sessions/"+url.PathEscape(token), nil, &session)
	if err != nil {
		if myerrors.GetHTTPStatus(err) == http.StatusNotFound {
			return AuthSession{}, false, nil
		}
		return AuthSession{}, false, err
	}
	session.Token = token

	return session, session.IsAuthenticated(), nil
}

func (a *httpAuthenticator) call(c context.Context, method string, url string, request any, response any) error {
	var body []byte
	if request != nil {
		var err error
		body, err = json.Marshal(request)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error marshalling request: %s", err))
		}
	}

	status, respBody, err := a.client.Send(c, method, url, body)
	if err != nil {
		return myerrors.NewUnavailableError(fmt.Errorf("auth service unreachable: %s", err))
	}

	switch {
	case status == http.StatusNotFound:
		return myerrors.NewNotFoundError(fmt.Errorf("%s %s: not found", method, url))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return myerrors.NewAuthenticationError(fmt.Errorf("%s %s: not allowed (%d)", method, url, status))
	case status >= 400 && status < 500:
		return myerrors.NewInvalidInputError(fmt.Errorf("%s %s: rejected (%d): %s", method, url, status, respBody))
	case status >= 500:
		return myerrors.NewBadGatewayError(fmt.Errorf("%s %s: failed (%d)", method, url, status))
	}

	err = json.Unmarshal(respBody, response)
	if err != nil {
		return myerrors.NewBadGatewayError(fmt.Errorf("error parsing response of %s %s: %s", method, url, err))
	}
	return nil
}
