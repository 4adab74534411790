package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/MarcGrol/flowershop/lib/mytime"
	"github.com/MarcGrol/flowershop/services/checkoutmodel"
	"github.com/MarcGrol/flowershop/services/delivery"
	"github.com/MarcGrol/flowershop/services/identity"
	"github.com/MarcGrol/flowershop/services/recipient"
)

// Draft is the in-progress form state; payment selection is never part of it
type Draft struct {
	Recipient    recipient.Details     `json:"recipient"`
	Message      checkoutmodel.Message `json:"message"`
	IdentityKind identity.Kind         `json:"identityKind"`
	Contact      identity.GuestContact `json:"contact"`
	SavedAt      time.Time             `json:"savedAt"`
}

func draftKey(sessionUID string) string {
	return fmt.Sprintf("checkout:%s:draft", sessionUID)
}

func markerKey(sessionUID string) string {
	return fmt.Sprintf("checkout:%s:abandonment", sessionUID)
}

func outcomeKey(sessionUID string) string {
	return fmt.Sprintf("checkout:%s:lastPaymentOutcome", sessionUID)
}

func summaryKey(sessionUID string) string {
	return fmt.Sprintf("checkout:%s:orderSummary", sessionUID)
}

// Persistence centralizes every read and write of durable checkout state
type Persistence struct {
	kv    KeyValue
	nower mytime.Nower
	// MaxAge ignores older drafts on load; zero means drafts never go stale
	MaxAge time.Duration
}

func New(kv KeyValue, nower mytime.Nower) *Persistence {
	return &Persistence{
		kv:    kv,
		nower: nower,
	}
}

func ShouldPersist(s checkoutmodel.Session) bool {
	return !s.Cart.IsEmpty() && s.Step != checkoutmodel.StepSuccess
}

// Save mirrors the form state, but only while the cart is non-empty and checkout has not succeeded
func (p *Persistence) Save(c context.Context, s checkoutmodel.Session) (bool, error) {
	if !ShouldPersist(s) {
		return false, nil
	}

	d := Draft{
		Recipient:    s.Recipient,
		Message:      s.Message,
		IdentityKind: s.Identity.Kind,
		Contact:      s.Identity.Guest,
		SavedAt:      p.nower.Now(),
	}
	err := p.putJSON(c, draftKey(s.UID), d)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Persistence) Load(c context.Context, sessionUID string) (Draft, bool, error) {
	d := Draft{}
	found, err := p.getJSON(c, draftKey(sessionUID), &d)
	if err != nil || !found {
		return Draft{}, false, err
	}
	if p.MaxAge > 0 && p.nower.Now().Sub(d.SavedAt) > p.MaxAge {
		return Draft{}, false, nil
	}
	return d, true, nil
}

// Restore applies the persisted draft to a session.
// The saved address of a logged-in member wins over the address in the draft.
func (p *Persistence) Restore(c context.Context, s checkoutmodel.Session) (checkoutmodel.Session, error) {
	d, found, err := p.Load(c, s.UID)
	if err != nil {
		return s, err
	}

	restored := s
	if found {
		restored.Recipient = d.Recipient
		restored.Message = d.Message
		if d.IdentityKind == identity.KindGuest && !s.Member.IsAuthenticated() {
			restored.Identity = identity.Identity{Kind: identity.KindGuest, Guest: d.Contact}
		}
		if strings.TrimSpace(restored.Recipient.DeliveryTime) != "" {
			restored.Recipient.DeliveryTime = delivery.RecoverTimeSlot(restored.Recipient.DeliveryTime)
		}
	}

	if s.Member.IsAuthenticated() && s.Member.SavedAddress != nil {
		restored.Recipient.Province = s.Member.SavedAddress.Province
		restored.Recipient.District = s.Member.SavedAddress.District
		restored.Recipient.Neighborhood = s.Member.SavedAddress.Neighborhood
		restored.Recipient.FromSavedAddress = true
	}

	return restored, nil
}

func (p *Persistence) Clear(c context.Context, sessionUID string) error {
	return p.kv.Delete(c, draftKey(sessionUID))
}

// CartEmptied drops the draft and the marker so an empty cart cannot bring back stale data
func (p *Persistence) CartEmptied(c context.Context, sessionUID string) error {
	err := p.Clear(c, sessionUID)
	if err != nil {
		return err
	}
	return p.ClearMarker(c, sessionUID)
}

func (p *Persistence) SaveMarker(c context.Context, sessionUID string, marker checkoutmodel.AbandonmentMarker) error {
	return p.putJSON(c, markerKey(sessionUID), marker)
}

func (p *Persistence) LoadMarker(c context.Context, sessionUID string) (checkoutmodel.AbandonmentMarker, bool, error) {
	marker := checkoutmodel.AbandonmentMarker{}
	found, err := p.getJSON(c, markerKey(sessionUID), &marker)
	return marker, found, err
}

func (p *Persistence) ClearMarker(c context.Context, sessionUID string) error {
	return p.kv.Delete(c, markerKey(sessionUID))
}

func (p *Persistence) SaveOutcome(c context.Context, sessionUID string, outcome checkoutmodel.PaymentOutcome) error {
	return p.putJSON(c, outcomeKey(sessionUID), outcome)
}

// ConsumeOutcome returns the last payment outcome once and removes it
func (p *Persistence) ConsumeOutcome(c context.Context, sessionUID string) (checkoutmodel.PaymentOutcome, bool, error) {
	outcome := checkoutmodel.PaymentOutcome{}
	found, err := p.getJSON(c, outcomeKey(sessionUID), &outcome)
	if err != nil || !found {
		return checkoutmodel.PaymentOutcome{}, false, err
	}
	err = p.kv.Delete(c, outcomeKey(sessionUID))
	if err != nil {
		return checkoutmodel.PaymentOutcome{}, false, err
	}
	return outcome, true, nil
}

func (p *Persistence) SaveOrderSummary(c context.Context, sessionUID string, summary checkoutmodel.OrderSummary) error {
	return p.putJSON(c, summaryKey(sessionUID), summary)
}

func (p *Persistence) LoadOrderSummary(c context.Context, sessionUID string) (checkoutmodel.OrderSummary, bool, error) {
	summary := checkoutmodel.OrderSummary{}
	found, err := p.getJSON(c, summaryKey(sessionUID), &summary)
	return summary, found, err
}

func (p *Persistence) putJSON(c context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error marshalling %s: %s", key, err)
	}
	return p.kv.Put(c, key, data)
}

func (p *Persistence) getJSON(c context.Context, key string, value any) (bool, error) {
	data, found, err := p.kv.Get(c, key)
	if err != nil || !found {
		return false, err
	}
	err = json.Unmarshal(data, value)
	if err != nil {
		return false, fmt.Errorf("error parsing %s: %s", key, err)
	}
	return true, nil
}
