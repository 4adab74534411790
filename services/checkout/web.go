package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/flowershop/lib/mycontext"
	"github.com/MarcGrol/flowershop/lib/myerrors"
	"github.com/MarcGrol/flowershop/lib/myhttp"
	"github.com/MarcGrol/flowershop/lib/mylog"
	"github.com/MarcGrol/flowershop/lib/mypublisher"
	"github.com/MarcGrol/flowershop/lib/mystore"
	"github.com/MarcGrol/flowershop/lib/mytime"
	"github.com/MarcGrol/flowershop/services/checkoutflow"
	"github.com/MarcGrol/flowershop/services/checkoutmodel"
	"github.com/MarcGrol/flowershop/services/draft"
	"github.com/MarcGrol/flowershop/services/identity"
	"github.com/MarcGrol/flowershop/services/orders"
	"github.com/MarcGrol/flowershop/services/payment"
	"github.com/MarcGrol/flowershop/services/storeconfig"
)

type webService struct {
	logger  mylog.Logger
	service *service
	// frontendURL is where the customer lands after the 3-D Secure page; empty means this host
	frontendURL string
}

// Use dependency injection to isolate the infrastructure and ease testing
func NewWebService(sessionStore mystore.Store[checkoutmodel.Session], config storeconfig.Provider, persistence *draft.Persistence,
	dispatcher *payment.Dispatcher, authenticator identity.Authenticator, publisher mypublisher.Publisher, nower mytime.Nower, frontendURL string) *webService {
	logger := mylog.New("checkout")
	return &webService{
		logger:      logger,
		service:     newService(sessionStore, config, persistence, dispatcher, authenticator, publisher, nower, logger),
		frontendURL: strings.TrimSuffix(frontendURL, "/"),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	sub := router.PathPrefix("/api/checkout/{sessionUID}").Subrouter()

	sub.HandleFunc("", s.start()).Methods("PUT")
	sub.HandleFunc("", s.get()).Methods("GET")
	sub.HandleFunc("/cart", s.updateCart()).Methods("PUT")
	sub.HandleFunc("/recipient", s.updateRecipient()).Methods("PUT")
	sub.HandleFunc("/recipient/date", s.selectDeliveryDate()).Methods("PUT")
	sub.HandleFunc("/recipient/date/suggestion", s.suggestDeliveryDate()).Methods("GET")
	sub.HandleFunc("/message", s.updateMessage()).Methods("PUT")
	sub.HandleFunc("/identity/guest", s.chooseGuest()).Methods("PUT")
	sub.HandleFunc("/identity/member", s.chooseMember()).Methods("PUT")
	sub.HandleFunc("/login", s.startLogin()).Methods("POST")
	sub.HandleFunc("/login/verify", s.verifyLogin()).Methods("POST")
	sub.HandleFunc("/payment/method", s.selectPaymentMethod()).Methods("PUT")
	sub.HandleFunc("/terms", s.acceptTerms()).Methods("PUT")
	sub.HandleFunc("/next", s.next()).Methods("POST")
	sub.HandleFunc("/back", s.back()).Methods("POST")
	sub.HandleFunc("/navigate", s.navigate()).Methods("POST")
	sub.HandleFunc("/payment", s.pay()).Methods("POST")
	sub.HandleFunc("/payment/return/{status}", s.paymentReturned()).Methods("GET")
	sub.HandleFunc("/reminder/{action}", s.reminderAction()).Methods("POST")
	sub.HandleFunc("/confirmation", s.confirmation()).Methods("GET")

	return s.service.CreateTopics(c)
}

// writeResult renders a refused transition as a regular 422 response, it is not a server problem
func (s *webService) writeResult(c context.Context, w http.ResponseWriter, errorCode int, resp any, err error) {
	responseWriter := myhttp.NewWriter(s.logger)
	if err != nil {
		var stepErr *checkoutflow.StepError
		if errors.As(err, &stepErr) {
			responseWriter.Write(c, w, http.StatusUnprocessableEntity, StepErrorResponse{Error: *stepErr})
			return
		}
		responseWriter.WriteError(c, w, errorCode, err)
		return
	}
	responseWriter.Write(c, w, http.StatusOK, resp)
}

func sessionUIDOf(r *http.Request) (string, error) {
	sessionUID := mux.Vars(r)["sessionUID"]
	if sessionUID == "" {
		return "", myerrors.NewInvalidInputErrorf("missing sessionUID")
	}
	return sessionUID, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}

func (s *webService) start() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		sessionUID, err := sessionUIDOf(r)
		if err != nil {
			s.writeResult(c, w, 1, nil, err)
			return
		}
		cart, err := parseCart(r)
		if err != nil {
			s.writeResult(c, w, 2, nil, err)
			return
		}

		view, err := s.service.start(c, sessionUID, cart, bearerToken(r))
		s.writeResult(c, w, 3, view, err)
	}
}

func (s *webService) get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		sessionUID, err := sessionUIDOf(r)
		if err != nil {
			s.writeResult(c, w, 1, nil, err)
			return
		}

		view, err := s.service.get(c, sessionUID)
		s.writeResult(c, w, 2, view, err)
	}
}

func (s *webService) updateCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		sessionUID, err := sessionUIDOf(r)
		if err != nil {
			s.writeResult(c, w, 1, nil, err)
			return
		}
		cart, err := parseCart(r)
		if err != nil {
			s.writeResult(c, w, 2, nil, err)
			return
		}

		view, err := s.service.updateCart(c, sessionUID, cart)
		s.writeResult(c, w, 3, view, err)
	}
}

func (s *webService) updateRecipient() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		sessionUID, err := sessionUIDOf(r)
		if err != nil {
			s.writeResult(c, w, 1, nil, err)
			return
		}
		details, err := parseRecipient(r)
		if err != nil {
			s.writeResult(c, w, 2, nil, err)
			return
		}

		view, err := s.service.updateRecipient(c, sessionUID, details)
		s.writeResult(c, w, 3, view, err)
	}
}

func (s *webService) selectDeliveryDate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		sessionUID, err := sessionUIDOf(r)
		if err != nil {
			s.writeResult(c, w, 1, nil, err)
			return
		}
		form, err := decodeRequest[dateForm](r)
		if err != nil {
			s.writeResult(c, w, 2, nil, err)
			return
		}

		selection, err := s.service.selectDeliveryDate(c, sessionUID, form.Date)
		s.writeResult(c, w, 3, selection, err)
	}
}

func (s *webService) suggestDeliveryDate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		sessionUID, err := sessionUIDOf(r)
		if err != nil {
			s.writeResult(c, w, 1, nil, err)
			return
		}

		suggestion, err := s.service.suggestDeliveryDate(c, sessionUID)
		s.writeResult(c, w, 2, suggestion, err)
	}
}

func (s *webService) updateMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		sessionUID, err := sessionUIDOf(r)
		if err != nil {
			s.writeResult(c, w, 1, nil, err)
			return
		}
		message, err := parseMessage(r)
		if err != nil {
			s.writeResult(c, w, 2, nil, err)
			return
		}

		view, err := s.service.updateMessage(c, sessionUID, message)
		s.writeResult(c, w, 3, view, err)
	}
}

func (s *webService) chooseGuest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		sessionUID, err := sessionUIDOf(r)
		if err != nil {
			s.writeResult(c, w, 1, nil, err)
			return
		}
		contact, err := parseGuestContact(r)
		if err != nil {
			s.writeResult(c, w, 2, nil, err)
			return
		}

		view, err := s.service.chooseGuest(c, sessionUID, contact)
		s.writeResult(c, w, 3, view, err)
	}
}

func (s *webService) chooseMember() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		sessionUID, err := sessionUIDOf(r)
		if err != nil {
			s.writeResult(c, w, 1, nil, err)
			return
		}

		view, err := s.service.chooseMember(c, sessionUID)
		s.writeResult(c, w, 2, view, err)
	}
}

func (s *webService) startLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		sessionUID, err := sessionUIDOf(r)
		if err != nil {
			s.writeResult(c, w, 1, nil, err)
			return
		}
		request, err := parseChallengeRequest(r)
		if err != nil {
			s.writeResult(c, w, 2, nil, err)
			return
		}

		view, err := s.service.startLogin(c, sessionUID, request)
		s.writeResult(c, w, 3, view, err)
	}
}

func (s *webService) verifyLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		sessionUID, err := sessionUIDOf(r)
		if err != nil {
			s.writeResult(c, w, 1, nil, err)
			return
		}
		form, err := decodeRequest[codeForm](r)
		if err != nil {
			s.writeResult(c, w, 2, nil, err)
			return
		}

		view, err := s.service.verifyLogin(c, sessionUID, form.Code)
		s.writeResult(c, w, 3, view, err)
	}
}

func (s *webService) selectPaymentMethod() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		sessionUID, err := sessionUIDOf(r)
		if err != nil {
			s.writeResult(c, w, 1, nil, err)
			return
		}
		form, err := decodeRequest[paymentMethodForm](r)
		if err != nil {
			s.writeResult(c, w, 2, nil, err)
			return
		}

		view, err := s.service.selectPaymentMethod(c, sessionUID, form.Method)
		s.writeResult(c, w, 3, view, err)
	}
}

func (s *webService) acceptTerms() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		sessionUID, err := sessionUIDOf(r)
		if err != nil {
			s.writeResult(c, w, 1, nil, err)
			return
		}
		form, err := decodeRequest[termsForm](r)
		if err != nil {
			s.writeResult(c, w, 2, nil, err)
			return
		}

		view, err := s.service.acceptTerms(c, sessionUID, form.Accepted)
		s.writeResult(c, w, 3, view, err)
	}
}

func (s *webService) next() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		sessionUID, err := sessionUIDOf(r)
		if err != nil {
			s.writeResult(c, w, 1, nil, err)
			return
		}

		view, err := s.service.next(c, sessionUID)
		s.writeResult(c, w, 2, view, err)
	}
}

func (s *webService) back() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		sessionUID, err := sessionUIDOf(r)
		if err != nil {
			s.writeResult(c, w, 1, nil, err)
			return
		}

		view, err := s.service.back(c, sessionUID)
		s.writeResult(c, w, 2, view, err)
	}
}

func (s *webService) navigate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		sessionUID, err := sessionUIDOf(r)
		if err != nil {
			s.writeResult(c, w, 1, nil, err)
			return
		}
		form, err := decodeRequest[navigationForm](r)
		if err != nil {
			s.writeResult(c, w, 2, nil, err)
			return
		}

		view, err := s.service.navigate(c, sessionUID, checkoutflow.NavigationIntent(form.Intent))
		s.writeResult(c, w, 3, view, err)
	}
}

func (s *webService) pay() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		sessionUID, err := sessionUIDOf(r)
		if err != nil {
			s.writeResult(c, w, 1, nil, err)
			return
		}

		view, err := s.service.pay(c, sessionUID, myhttp.HostnameWithScheme(r))
		s.writeResult(c, w, 2, view, err)
	}
}

// paymentReturned is reached by the browser, so it always ends in a redirect to the checkout page
func (s *webService) paymentReturned() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		sessionUID, err := sessionUIDOf(r)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}
		status := mux.Vars(r)["status"]

		view, err := s.service.paymentReturned(c, sessionUID, status)
		if err != nil {
			responseWriter.WriteError(c, w, 2, err)
			return
		}

		http.Redirect(w, r, s.checkoutPageURL(r, sessionUID, view.Session.Step), http.StatusSeeOther)
	}
}

func (s *webService) checkoutPageURL(r *http.Request, sessionUID string, step checkoutmodel.Step) string {
	base := s.frontendURL
	if base == "" {
		base = myhttp.HostnameWithScheme(r)
	}
	return fmt.Sprintf("%s/checkout/%s?step=%s", base, url.PathEscape(sessionUID), url.QueryEscape(string(step)))
}

func (s *webService) reminderAction() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		sessionUID, err := sessionUIDOf(r)
		if err != nil {
			s.writeResult(c, w, 1, nil, err)
			return
		}
		action := orders.ReminderAction(mux.Vars(r)["action"])

		view, err := s.service.reminderAction(c, sessionUID, action)
		s.writeResult(c, w, 2, view, err)
	}
}

func (s *webService) confirmation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		sessionUID, err := sessionUIDOf(r)
		if err != nil {
			s.writeResult(c, w, 1, nil, err)
			return
		}

		summary, err := s.service.confirmation(c, sessionUID)
		s.writeResult(c, w, 2, summary, err)
	}
}
