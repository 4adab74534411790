package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarcGrol/flowershop/lib/myerrors"
	"github.com/MarcGrol/flowershop/lib/mylog"
	"github.com/MarcGrol/flowershop/lib/mypublisher"
	"github.com/MarcGrol/flowershop/lib/mystore"
	"github.com/MarcGrol/flowershop/lib/mytime"
	"github.com/MarcGrol/flowershop/services/checkoutevents"
	"github.com/MarcGrol/flowershop/services/checkoutflow"
	"github.com/MarcGrol/flowershop/services/checkoutmodel"
	"github.com/MarcGrol/flowershop/services/delivery"
	"github.com/MarcGrol/flowershop/services/draft"
	"github.com/MarcGrol/flowershop/services/identity"
	"github.com/MarcGrol/flowershop/services/orders"
	"github.com/MarcGrol/flowershop/services/payment"
	"github.com/MarcGrol/flowershop/services/paymentapi"
	"github.com/MarcGrol/flowershop/services/recipient"
	"github.com/MarcGrol/flowershop/services/storeconfig"
)

const defaultCurrency = "TRY"

var ErrSessionNotFound = errors.New("checkout session not found")

type service struct {
	sessionStore  mystore.Store[checkoutmodel.Session]
	config        storeconfig.Provider
	persistence   *draft.Persistence
	dispatcher    *payment.Dispatcher
	authenticator identity.Authenticator
	publisher     mypublisher.Publisher
	nower         mytime.Nower
	logger        mylog.Logger
}

func newService(sessionStore mystore.Store[checkoutmodel.Session], config storeconfig.Provider, persistence *draft.Persistence,
	dispatcher *payment.Dispatcher, authenticator identity.Authenticator, publisher mypublisher.Publisher, nower mytime.Nower, logger mylog.Logger) *service {
	return &service{
		sessionStore:  sessionStore,
		config:        config,
		persistence:   persistence,
		dispatcher:    dispatcher,
		authenticator: authenticator,
		publisher:     publisher,
		nower:         nower,
		logger:        logger,
	}
}

func (s *service) CreateTopics(c context.Context) error {
	err := s.publisher.CreateTopic(c, checkoutevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", checkoutevents.TopicName, err)
	}
	return nil
}

func (s *service) policies(c context.Context) checkoutflow.Policies {
	snapshot := s.config.Fetch(c)
	return checkoutflow.NewPolicies(s.nower.Now(), snapshot.OffDays, snapshot.RegionSettings)
}

// start (re)starts checkout for a cart. A logged-in customer skips the identity choice,
// form fields come back from the persisted draft.
func (s *service) start(c context.Context, sessionUID string, cart checkoutmodel.Cart, token string) (SessionView, error) {
	member, err := s.lookupMember(c, sessionUID, token)
	if err != nil {
		return SessionView{}, err
	}

	now := s.nower.Now()
	session := checkoutmodel.Session{
		UID:       sessionUID,
		Step:      checkoutmodel.StepCart,
		Cart:      cart,
		Member:    member,
		Identity:  identity.Enter(identity.Identity{}, member),
		CreatedAt: now,
	}

	if !cart.IsEmpty() {
		session, err = s.persistence.Restore(c, session)
		if err != nil {
			return SessionView{}, myerrors.NewInternalError(fmt.Errorf("error restoring draft: %s", err))
		}
	}

	err = s.sessionStore.RunInTransaction(c, func(c context.Context) error {
		existing, exists, err := s.sessionStore.Get(c, sessionUID)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching session %s: %s", sessionUID, err))
		}
		if exists {
			session.CreatedAt = existing.CreatedAt
			session.PaymentEntries = existing.PaymentEntries
			if !cart.IsEmpty() {
				session.OrderUID = existing.OrderUID
				session.OrderFingerprint = existing.OrderFingerprint
			}
			session.LastModified = &now
		}

		err = s.sessionStore.Put(c, sessionUID, session)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing session %s: %s", sessionUID, err))
		}
		return nil
	})
	if err != nil {
		return SessionView{}, err
	}

	if cart.IsEmpty() {
		err = s.persistence.CartEmptied(c, sessionUID)
		if err != nil {
			return SessionView{}, myerrors.NewInternalError(fmt.Errorf("error clearing draft: %s", err))
		}
	}

	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Checkout started with %d items", len(cart.Items))

	return s.view(c, session, true)
}

func (s *service) lookupMember(c context.Context, sessionUID string, token string) (*identity.AuthSession, error) {
	if token == "" {
		return nil, nil
	}
	member, found, err := s.authenticator.LookupSession(c, token)
	if err != nil {
		// checkout continues as if not logged in
		s.logger.Log(c, sessionUID, mylog.SeverityWarn, "Error looking up auth session: %s", err)
		return nil, nil
	}
	if !found {
		return nil, nil
	}
	return &member, nil
}

// get is the session load: it offers to resume an interrupted payment and shows the last outcome once
func (s *service) get(c context.Context, sessionUID string) (SessionView, error) {
	session, err := s.load(c, sessionUID)
	if err != nil {
		return SessionView{}, err
	}
	return s.view(c, session, true)
}

func (s *service) load(c context.Context, sessionUID string) (checkoutmodel.Session, error) {
	session, exists, err := s.sessionStore.Get(c, sessionUID)
	if err != nil {
		return checkoutmodel.Session{}, myerrors.NewInternalError(fmt.Errorf("error fetching session %s: %s", sessionUID, err))
	}
	if !exists {
		return checkoutmodel.Session{}, myerrors.NewNotFoundError(fmt.Errorf("%w: %s", ErrSessionNotFound, sessionUID))
	}
	return session, nil
}

// mutate runs f on the stored session within one transaction, events published by f are part of it
func (s *service) mutate(c context.Context, sessionUID string, f func(c context.Context, session *checkoutmodel.Session) error) (checkoutmodel.Session, error) {
	var result checkoutmodel.Session
	err := s.sessionStore.RunInTransaction(c, func(c context.Context) error {
		session, err := s.load(c, sessionUID)
		if err != nil {
			return err
		}

		err = f(c, &session)
		if err != nil {
			return err
		}

		now := s.nower.Now()
		session.LastModified = &now
		err = s.sessionStore.Put(c, sessionUID, session)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing session %s: %s", sessionUID, err))
		}
		result = session
		return nil
	})
	if err != nil {
		return checkoutmodel.Session{}, err
	}

	s.mirror(c, result)

	return result, nil
}

// mirror keeps the draft in sync; a failing draft store never fails the request
func (s *service) mirror(c context.Context, session checkoutmodel.Session) {
	_, err := s.persistence.Save(c, session)
	if err != nil {
		s.logger.Log(c, session.UID, mylog.SeverityWarn, "Error saving draft: %s", err)
	}
}

func (s *service) view(c context.Context, session checkoutmodel.Session, isLoad bool) (SessionView, error) {
	policies := s.policies(c)
	first, last := policies.Calendar.Window()

	allowed := []string{}
	for _, d := range policies.Calendar.AllowedDates() {
		allowed = append(allowed, delivery.FormatDate(d))
	}

	view := SessionView{
		Session:               session,
		Authenticated:         session.Member.IsAuthenticated(),
		DeliveryWindow:        DeliveryWindow{From: delivery.FormatDate(first), To: delivery.FormatDate(last)},
		AllowedDates:          allowed,
		TimeSlots:             delivery.Slots(),
		SecondaryRegionClosed: policies.Regions.IsSecondaryRegionClosed(),
	}

	if !isLoad || session.Step == checkoutmodel.StepSuccess {
		return view, nil
	}

	marker, err := s.dispatcher.Offer(c, session.UID)
	if err != nil {
		return SessionView{}, err
	}
	view.ResumeOffer = marker

	outcome, found, err := s.persistence.ConsumeOutcome(c, session.UID)
	if err != nil {
		return SessionView{}, myerrors.NewInternalError(fmt.Errorf("error fetching payment outcome: %s", err))
	}
	if found {
		view.LastOutcome = &outcome
	}

	return view, nil
}

// updateCart forgets the form and the draft when the cart becomes empty
func (s *service) updateCart(c context.Context, sessionUID string, cart checkoutmodel.Cart) (SessionView, error) {
	session, err := s.mutate(c, sessionUID, func(c context.Context, session *checkoutmodel.Session) error {
		if session.Step == checkoutmodel.StepSuccess {
			return myerrors.NewConflictError(fmt.Errorf("checkout %s is already completed", sessionUID))
		}
		session.Cart = cart
		if cart.IsEmpty() {
			*session = emptied(*session)
		}
		return nil
	})
	if err != nil {
		return SessionView{}, err
	}

	if cart.IsEmpty() {
		err = s.persistence.CartEmptied(c, sessionUID)
		if err != nil {
			return SessionView{}, myerrors.NewInternalError(fmt.Errorf("error clearing draft: %s", err))
		}
	}

	return s.view(c, session, false)
}

// emptied resets everything that was entered for the previous cart, a member stays logged in
func emptied(session checkoutmodel.Session) checkoutmodel.Session {
	session.Step = checkoutmodel.StepCart
	session.NavigationArmed = false
	session.Recipient = recipient.Details{}
	session.Message = checkoutmodel.Message{}
	session.Identity = identity.Enter(identity.Identity{}, session.Member)
	session.Payment = checkoutmodel.PaymentSelection{}
	session.TermsAccepted = false
	session.OrderUID = ""
	session.OrderFingerprint = ""
	return session
}

// updateRecipient stores the form as entered and reports validation without blocking.
// A changed delivery date goes through the manual selection rules first.
func (s *service) updateRecipient(c context.Context, sessionUID string, details recipient.Details) (RecipientView, error) {
	policies := s.policies(c)

	var selection *DateSelection
	session, err := s.mutate(c, sessionUID, func(c context.Context, session *checkoutmodel.Session) error {
		details.Phone = recipient.NormalizePhone(details.Phone)
		if strings.TrimSpace(details.DeliveryTime) != "" {
			details.DeliveryTime = delivery.NormalizeTimeSlot(details.DeliveryTime)
		}
		if strings.TrimSpace(details.Province) == "" {
			details.Province = session.Recipient.Province
		}

		if details.DeliveryDate != "" && details.DeliveryDate != session.Recipient.DeliveryDate {
			applied, err := policies.Calendar.ApplyManualSelection(details.DeliveryDate)
			if err == nil {
				details.DeliveryDate = delivery.FormatDate(applied.Date)
				view := newDateSelection(applied)
				selection = &view
			}
		}

		session.Recipient = details
		return nil
	})
	if err != nil {
		return RecipientView{}, err
	}

	view, err := s.view(c, session, false)
	if err != nil {
		return RecipientView{}, err
	}

	return RecipientView{
		SessionView:     view,
		Validation:      policies.Recipient.Validate(session.Recipient),
		DateSelection:   selection,
		DistrictWarning: policies.Regions.DistrictWarning(session.Recipient.District),
	}, nil
}

// selectDeliveryDate applies the manual date policy: clamp to the window, skip sundays, stop at off-days
func (s *service) selectDeliveryDate(c context.Context, sessionUID string, raw string) (DateSelection, error) {
	policies := s.policies(c)

	selection, err := policies.Calendar.ApplyManualSelection(raw)
	if err != nil {
		if errors.Is(err, delivery.ErrNoDeliveryDay) {
			return DateSelection{}, myerrors.NewUnprocessableError(err)
		}
		return DateSelection{}, myerrors.NewInvalidInputError(err)
	}

	_, err = s.mutate(c, sessionUID, func(c context.Context, session *checkoutmodel.Session) error {
		session.Recipient.DeliveryDate = delivery.FormatDate(selection.Date)
		return nil
	})
	if err != nil {
		return DateSelection{}, err
	}

	return newDateSelection(selection), nil
}

// suggestDeliveryDate proposes the first deliverable day, starting at the current choice
func (s *service) suggestDeliveryDate(c context.Context, sessionUID string) (DateSuggestion, error) {
	session, err := s.load(c, sessionUID)
	if err != nil {
		return DateSuggestion{}, err
	}

	calendar := s.policies(c).Calendar

	var preferred *time.Time
	if parsed, err := delivery.ParseDate(session.Recipient.DeliveryDate); err == nil {
		preferred = &parsed
	}

	next, found := calendar.NextAllowed(preferred)
	if !found {
		return DateSuggestion{Available: false, Message: delivery.ErrNoDeliveryDay.Error()}, nil
	}
	return DateSuggestion{Date: delivery.FormatDate(next), Available: true}, nil
}

func (s *service) updateMessage(c context.Context, sessionUID string, message checkoutmodel.Message) (SessionView, error) {
	session, err := s.mutate(c, sessionUID, func(c context.Context, session *checkoutmodel.Session) error {
		session.Message = checkoutmodel.Message{
			Text:       strings.TrimSpace(message.Text),
			SenderName: strings.TrimSpace(message.SenderName),
		}
		return nil
	})
	if err != nil {
		return SessionView{}, err
	}
	return s.view(c, session, false)
}

func (s *service) chooseGuest(c context.Context, sessionUID string, contact identity.GuestContact) (SessionView, error) {
	session, err := s.mutate(c, sessionUID, func(c context.Context, session *checkoutmodel.Session) error {
		if session.Member.IsAuthenticated() {
			return myerrors.NewConflictError(fmt.Errorf("checkout %s is already performed as member", sessionUID))
		}
		session.Identity = identity.ChooseGuest(session.Identity, contact)
		return nil
	})
	if err != nil {
		return SessionView{}, err
	}
	return s.view(c, session, false)
}

func (s *service) chooseMember(c context.Context, sessionUID string) (SessionView, error) {
	session, err := s.mutate(c, sessionUID, func(c context.Context, session *checkoutmodel.Session) error {
		session.Identity = identity.ChooseMember(session.Identity, session.Member)
		return nil
	})
	if err != nil {
		return SessionView{}, err
	}
	return s.view(c, session, false)
}

// startLogin sends a one-time code without leaving checkout
func (s *service) startLogin(c context.Context, sessionUID string, request identity.ChallengeRequest) (ChallengeView, error) {
	_, err := s.load(c, sessionUID)
	if err != nil {
		return ChallengeView{}, err
	}

	challenge, err := s.authenticator.StartChallenge(c, request)
	if err != nil {
		return ChallengeView{}, err
	}

	_, err = s.mutate(c, sessionUID, func(c context.Context, session *checkoutmodel.Session) error {
		session.Identity = identity.ChooseMember(session.Identity, session.Member)
		session.Identity.ChallengeUID = challenge.ChallengeUID
		return nil
	})
	if err != nil {
		return ChallengeView{}, err
	}

	return ChallengeView{Challenge: challenge}, nil
}

// verifyLogin attaches the member; a saved address replaces the address entered so far
func (s *service) verifyLogin(c context.Context, sessionUID string, code string) (SessionView, error) {
	current, err := s.load(c, sessionUID)
	if err != nil {
		return SessionView{}, err
	}
	if current.Identity.ChallengeUID == "" {
		return SessionView{}, myerrors.NewInvalidInputErrorf("no login in progress for checkout %s", sessionUID)
	}

	member, err := s.authenticator.VerifyChallenge(c, current.Identity.ChallengeUID, code)
	if err != nil {
		return SessionView{}, err
	}

	session, err := s.mutate(c, sessionUID, func(c context.Context, session *checkoutmodel.Session) error {
		session.Member = &member
		session.Identity = identity.ChooseMember(session.Identity, session.Member)
		if member.SavedAddress != nil {
			session.Recipient.Province = member.SavedAddress.Province
			session.Recipient.District = member.SavedAddress.District
			session.Recipient.Neighborhood = member.SavedAddress.Neighborhood
			session.Recipient.FromSavedAddress = true
		}
		return nil
	})
	if err != nil {
		return SessionView{}, err
	}

	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Customer %s logged in during checkout", member.CustomerUID)

	return s.view(c, session, false)
}

func (s *service) selectPaymentMethod(c context.Context, sessionUID string, method checkoutmodel.PaymentMethod) (SessionView, error) {
	if !method.IsValid() {
		return SessionView{}, myerrors.NewInvalidInputErrorf("unknown payment method '%s'", method)
	}

	session, err := s.mutate(c, sessionUID, func(c context.Context, session *checkoutmodel.Session) error {
		if session.Payment.Processing {
			return myerrors.NewConflictError(payment.ErrSubmissionInFlight)
		}
		session.Payment.Method = method
		return nil
	})
	if err != nil {
		return SessionView{}, err
	}
	return s.view(c, session, false)
}

func (s *service) acceptTerms(c context.Context, sessionUID string, accepted bool) (SessionView, error) {
	session, err := s.mutate(c, sessionUID, func(c context.Context, session *checkoutmodel.Session) error {
		session.TermsAccepted = accepted
		return nil
	})
	if err != nil {
		return SessionView{}, err
	}
	return s.view(c, session, false)
}

// next takes one step forward; entering payment notifies analytics once per entry
func (s *service) next(c context.Context, sessionUID string) (SessionView, error) {
	policies := s.policies(c)

	session, err := s.mutate(c, sessionUID, func(c context.Context, session *checkoutmodel.Session) error {
		advanced, err := checkoutflow.Advance(*session, policies)
		if err != nil {
			return myerrors.NewUnprocessableError(err)
		}

		if checkoutflow.EnteredPayment(*session, advanced) {
			err = s.publishCheckoutStarted(c, advanced)
			if err != nil {
				return err
			}
		}

		*session = advanced
		return nil
	})
	if err != nil {
		return SessionView{}, err
	}

	return s.view(c, session, false)
}

// back is the explicit back button, it never fails
func (s *service) back(c context.Context, sessionUID string) (SessionView, error) {
	session, err := s.mutate(c, sessionUID, func(c context.Context, session *checkoutmodel.Session) error {
		*session = checkoutflow.Back(*session)
		return nil
	})
	if err != nil {
		return SessionView{}, err
	}
	return s.view(c, session, false)
}

// navigate handles a host navigation gesture such as the browser back button
func (s *service) navigate(c context.Context, sessionUID string, intent checkoutflow.NavigationIntent) (NavigationView, error) {
	var outcome checkoutflow.NavigationOutcome
	session, err := s.mutate(c, sessionUID, func(c context.Context, session *checkoutmodel.Session) error {
		*session, outcome = checkoutflow.Navigate(*session, intent)
		return nil
	})
	if err != nil {
		return NavigationView{}, err
	}

	view, err := s.view(c, session, false)
	if err != nil {
		return NavigationView{}, err
	}
	return NavigationView{SessionView: view, Navigation: outcome}, nil
}

// pay creates the order and starts the payment. Remote calls happen outside the transaction.
func (s *service) pay(c context.Context, sessionUID string, hostname string) (PaymentView, error) {
	current, err := s.load(c, sessionUID)
	if err != nil {
		return PaymentView{}, err
	}

	result, dispatchErr := s.dispatcher.Dispatch(c, current, hostname)
	if dispatchErr != nil && result.Session.OrderUID == current.OrderUID {
		return PaymentView{}, dispatchErr
	}

	session, err := s.mutate(c, sessionUID, func(c context.Context, session *checkoutmodel.Session) error {
		if !sameOrderContents(*session, current) {
			// the next payment attempt creates a new order for the changed contents
			s.logger.Log(c, sessionUID, mylog.SeverityWarn, "Checkout changed while order %s was being created", result.Session.OrderUID)
		}
		adoptPaymentState(session, result.Session)
		if dispatchErr != nil {
			return nil
		}
		return s.publishPaymentDispatched(c, result)
	})
	if err != nil {
		return PaymentView{}, err
	}
	if dispatchErr != nil {
		return PaymentView{}, dispatchErr
	}

	view, err := s.view(c, session, false)
	if err != nil {
		return PaymentView{}, err
	}

	return PaymentView{
		SessionView: view,
		OrderUID:    result.Order.UID,
		OrderNumber: result.Order.OrderNumber,
		Redirect:    result.Redirect,
		Summary:     result.Summary,
	}, nil
}

// adoptPaymentState copies the fields payment handling owns onto the stored session,
// edits stored while the remote calls ran are kept
func adoptPaymentState(stored *checkoutmodel.Session, from checkoutmodel.Session) {
	stored.Step = from.Step
	stored.NavigationArmed = from.NavigationArmed
	stored.PaymentEntries = from.PaymentEntries
	stored.OrderUID = from.OrderUID
	stored.OrderFingerprint = from.OrderFingerprint
	stored.Payment.Processing = from.Payment.Processing
}

func sameOrderContents(a, b checkoutmodel.Session) bool {
	fingerprintA, errA := payment.Fingerprint(payment.CreateRequestOf(a))
	fingerprintB, errB := payment.Fingerprint(payment.CreateRequestOf(b))
	return errA == nil && errB == nil && fingerprintA == fingerprintB
}

// paymentReturned handles the redirect back from the 3-D Secure page
func (s *service) paymentReturned(c context.Context, sessionUID string, status string) (SessionView, error) {
	current, err := s.load(c, sessionUID)
	if err != nil {
		return SessionView{}, err
	}
	if current.Step == checkoutmodel.StepSuccess {
		return s.view(c, current, false)
	}

	returned, err := s.dispatcher.HandleReturn(c, current, status)
	if err != nil {
		return SessionView{}, err
	}

	session, err := s.mutate(c, sessionUID, func(c context.Context, session *checkoutmodel.Session) error {
		adoptPaymentState(session, returned)
		if paymentapi.IsSuccess(status) && session.Step != checkoutmodel.StepSuccess {
			// still waiting for the confirmation of the provider
			return nil
		}
		return s.publishPaymentReturned(c, *session)
	})
	if err != nil {
		return SessionView{}, err
	}

	return s.view(c, session, false)
}

func (s *service) resume(c context.Context, sessionUID string) (SessionView, error) {
	current, err := s.load(c, sessionUID)
	if err != nil {
		return SessionView{}, err
	}

	resumed, err := s.dispatcher.Resume(c, current)
	if err != nil {
		return SessionView{}, err
	}

	session, err := s.mutate(c, sessionUID, func(c context.Context, session *checkoutmodel.Session) error {
		wasEntered := checkoutflow.EnteredPayment(*session, resumed)
		adoptPaymentState(session, resumed)
		if wasEntered {
			return s.publishCheckoutStarted(c, *session)
		}
		return nil
	})
	if err != nil {
		return SessionView{}, err
	}
	return s.view(c, session, false)
}

func (s *service) dismiss(c context.Context, sessionUID string) (SessionView, error) {
	current, err := s.load(c, sessionUID)
	if err != nil {
		return SessionView{}, err
	}

	_, err = s.dispatcher.Dismiss(c, current)
	if err != nil {
		return SessionView{}, err
	}

	session, err := s.mutate(c, sessionUID, func(c context.Context, session *checkoutmodel.Session) error {
		session.Payment.Processing = false
		return nil
	})
	if err != nil {
		return SessionView{}, err
	}
	return s.view(c, session, false)
}

func (s *service) reminderAction(c context.Context, sessionUID string, action orders.ReminderAction) (SessionView, error) {
	switch action {
	case orders.ReminderResume:
		return s.resume(c, sessionUID)
	case orders.ReminderDismiss:
		return s.dismiss(c, sessionUID)
	default:
		return SessionView{}, myerrors.NewInvalidInputError(fmt.Errorf("%w: %s", orders.ErrUnknownReminderAct, action))
	}
}

// confirmation is the dedicated bank-transfer view, it keeps working after completion
func (s *service) confirmation(c context.Context, sessionUID string) (checkoutmodel.OrderSummary, error) {
	summary, found, err := s.persistence.LoadOrderSummary(c, sessionUID)
	if err != nil {
		return checkoutmodel.OrderSummary{}, myerrors.NewInternalError(fmt.Errorf("error fetching order summary: %s", err))
	}
	if !found {
		return checkoutmodel.OrderSummary{}, myerrors.NewNotFoundError(fmt.Errorf("no order summary for checkout %s", sessionUID))
	}
	return summary, nil
}
