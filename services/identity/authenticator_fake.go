package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/MarcGrol/flowershop/lib/myerrors"
	"github.com/MarcGrol/flowershop/lib/myuuid"
	"github.com/MarcGrol/flowershop/services/region"
)

// FakeCode is the one-time-code the fake authenticator accepts
const FakeCode = "123456"

// fakeAuthenticator is used when no auth service is configured
type fakeAuthenticator struct {
	sync.Mutex
	uuider     myuuid.UUIDer
	challenges map[string]ChallengeRequest
	sessions   map[string]AuthSession
}

func NewFakeAuthenticator(uuider myuuid.UUIDer) Authenticator {
	return &fakeAuthenticator{
		uuider:     uuider,
		challenges: map[string]ChallengeRequest{},
		sessions:   map[string]AuthSession{},
	}
}

func (a *fakeAuthenticator) StartChallenge(c context.Context, request ChallengeRequest) (Challenge, error) {
	a.Lock()
	defer a.Unlock()

	err := ValidateChallengeRequest(request)
	if err != nil {
		return Challenge{}, err
	}

	uid := a.uuider.Create()
	a.challenges[uid] = request

	sentTo := request.Email
	if sentTo == "" {
		sentTo = request.Phone
	}
	return Challenge{ChallengeUID: uid, SentTo: sentTo}, nil
}

func (a *fakeAuthenticator) VerifyChallenge(c context.Context, challengeUID string, code string) (AuthSession, error) {
	a.Lock()
	defer a.Unlock()

	request, found := a.challenges[challengeUID]
	if !found {
		return AuthSession{}, myerrors.NewNotFoundError(fmt.Errorf("challenge %s not found", challengeUID))
	}
	if code != FakeCode {
		return AuthSession{}, myerrors.NewAuthenticationError(fmt.Errorf("code for challenge %s not accepted", challengeUID))
	}
	delete(a.challenges, challengeUID)

	session := AuthSession{
		CustomerUID: "cust-" + challengeUID,
		Email:       request.Email,
		Phone:       request.Phone,
		Token:       a.uuider.Create(),
		SavedAddress: &region.Address{
			Province:     region.ServedProvince,
			District:     "Beşiktaş",
			Neighborhood: "Levent",
		},
	}
	a.sessions[session.Token] = session

	return session, nil
}

func (a *fakeAuthenticator) LookupSession(c context.Context, token string) (AuthSession, bool, error) {
	a.Lock()
	defer a.Unlock()

	session, found := a.sessions[token]
	return session, found, nil
}
