package identity

import (
	"regexp"
	"strings"

	"github.com/MarcGrol/flowershop/services/recipient"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// Enter resolves the identity up front for customers that are already logged in
func Enter(current Identity, session *AuthSession) Identity {
	if !session.IsAuthenticated() {
		if current.Kind == "" {
			current.Kind = KindUndecided
		}
		return current
	}
	return Identity{
		Kind:        KindMember,
		CustomerUID: session.CustomerUID,
		PreResolved: true,
	}
}

func ChooseGuest(current Identity, contact GuestContact) Identity {
	return Identity{
		Kind: KindGuest,
		Guest: GuestContact{
			Email: strings.TrimSpace(contact.Email),
			Phone: recipient.NormalizePhone(contact.Phone),
		},
	}
}

// ChooseMember keeps the gate closed until an authenticated session is attached
func ChooseMember(current Identity, session *AuthSession) Identity {
	next := Identity{
		Kind:         KindMember,
		ChallengeUID: current.ChallengeUID,
	}
	if session.IsAuthenticated() {
		next.CustomerUID = session.CustomerUID
		next.ChallengeUID = ""
	}
	return next
}

// CheckGate only reads: asking again with the same input gives the same answer
func CheckGate(id Identity, session *AuthSession) GateResult {
	if session.IsAuthenticated() {
		return GateResult{Open: true}
	}

	switch id.Kind {
	case KindGuest:
		if !IsValidEmail(id.Guest.Email) {
			return GateResult{Reason: ReasonInvalidEmail, Message: "Please enter a valid e-mail address."}
		}
		if !recipient.IsValidMobileNumber(id.Guest.Phone) {
			return GateResult{Reason: ReasonInvalidPhone, Message: "Please enter a valid mobile number starting with 5."}
		}
		return GateResult{Open: true}

	case KindMember:
		return GateResult{Reason: ReasonNotAuthenticated, Message: "Please log in or register to continue."}

	default:
		return GateResult{Reason: ReasonUndecided, Message: "Please choose to continue as guest or as member."}
	}
}
