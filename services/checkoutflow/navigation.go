package checkoutflow

import (
	"github.com/MarcGrol/flowershop/services/checkoutmodel"
)

type NavigationIntent string

const (
	IntentBack NavigationIntent = "back"
)

type NavigationOutcome struct {
	// Intercepted is false when the host should perform its own navigation
	Intercepted bool `json:"intercepted"`
	// Rearmed tells the host to install the interception again for the next gesture
	Rearmed bool `json:"rearmed"`
}

// Navigate translates a host back-gesture into exactly one backward step.
// On the cart step and after success the gesture is left to the host.
func Navigate(s checkoutmodel.Session, intent NavigationIntent) (checkoutmodel.Session, NavigationOutcome) {
	if intent != IntentBack {
		return s, NavigationOutcome{Intercepted: false, Rearmed: s.NavigationArmed}
	}
	if s.Step == checkoutmodel.StepCart || s.Step == checkoutmodel.StepSuccess {
		return s, NavigationOutcome{Intercepted: false, Rearmed: false}
	}

	prev := Back(s)
	return prev, NavigationOutcome{Intercepted: true, Rearmed: prev.NavigationArmed}
}
