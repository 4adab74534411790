package identity

import (
	"github.com/MarcGrol/flowershop/services/region"
)

type Kind string

const (
	KindUndecided Kind = "undecided"
	KindGuest     Kind = "guest"
	KindMember    Kind = "member"
)

type GuestContact struct {
	Email string `json:"email" form:"email"`
	Phone string `json:"phone" form:"phone"`
}

// Identity is who performs the checkout
type Identity struct {
	Kind        Kind         `json:"kind"`
	Guest       GuestContact `json:"guest"`
	CustomerUID string       `json:"customerUID,omitempty"`
	// PreResolved is set when the customer was already logged in when checkout started
	PreResolved  bool   `json:"preResolved,omitempty"`
	ChallengeUID string `json:"challengeUID,omitempty"`
}

// AuthSession is established by the external authentication service
type AuthSession struct {
	CustomerUID  string          `json:"customerUID"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	Token        string          `json:"token"`
	SavedAddress *region.Address `json:"savedAddress,omitempty"`
}

func (s *AuthSession) IsAuthenticated() bool {
	return s != nil && s.CustomerUID != ""
}

type GateReason string

const (
	ReasonNone             GateReason = ""
	ReasonUndecided        GateReason = "undecided"
	ReasonInvalidEmail     GateReason = "invalid_email"
	ReasonInvalidPhone     GateReason = "invalid_phone"
	ReasonNotAuthenticated GateReason = "not_authenticated"
)

type GateResult struct {
	Open    bool       `json:"open"`
	Reason  GateReason `json:"reason,omitempty"`
	Message string     `json:"message,omitempty"`
}

type ChallengeRequest struct {
	Email string `json:"email,omitempty" form:"email"`
	Phone string `json:"phone,omitempty" form:"phone"`
}

type Challenge struct {
	ChallengeUID string `json:"challengeUID"`
	SentTo       string `json:"sentTo"`
}
