package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/flowershop/lib/mycontext"
	"github.com/MarcGrol/flowershop/lib/myerrors"
	"github.com/MarcGrol/flowershop/lib/myhttp"
	"github.com/MarcGrol/flowershop/lib/mylog"
)

// FakeWebService exposes the fake with the same http api as the real order service
type FakeWebService struct {
	service *FakeService
	logger  mylog.Logger
}

func NewFakeWebService(service *FakeService) *FakeWebService {
	return &FakeWebService{
		service: service,
		logger:  mylog.New("fakeorders"),
	}
}

func (s *FakeWebService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/fake/orders", s.create()).Methods("POST")
	router.HandleFunc("/fake/orders/{orderUID}", s.get()).Methods("GET")
	router.HandleFunc("/fake/orders/{orderUID}/status", s.updateStatus()).Methods("PUT")
	router.HandleFunc("/fake/orders/{orderUID}/reminders", s.reminder()).Methods("POST")
}

func (s *FakeWebService) create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		request := CreateRequest{}
		err := json.NewDecoder(r.Body).Decode(&request)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		order, err := s.service.Create(c, request)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusCreated, order)
	}
}

func (s *FakeWebService) get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		order, err := s.service.Get(c, mux.Vars(r)["orderUID"])
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, order)
	}
}

func (s *FakeWebService) updateStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		request := statusRequest{}
		err := json.NewDecoder(r.Body).Decode(&request)
		if err != nil {
			errorWriter.WriteError(c, w, 4, myerrors.NewInvalidInputError(err))
			return
		}
		orderUID := mux.Vars(r)["orderUID"]
		switch request.Status {
		case StatusAwaitingPayment:
			err = s.service.MarkAwaitingPayment(c, orderUID)
		case StatusPaid:
			err = s.service.MarkPaid(c, orderUID)
		default:
			err = myerrors.NewInvalidInputError(fmt.Errorf("%w: to %s", ErrInvalidTransition, request.Status))
		}
		if err != nil {
			errorWriter.WriteError(c, w, 6, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{Message: "Status updated"})
	}
}

func (s *FakeWebService) reminder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		request := reminderRequest{}
		err := json.NewDecoder(r.Body).Decode(&request)
		if err != nil {
			errorWriter.WriteError(c, w, 7, myerrors.NewInvalidInputError(err))
			return
		}

		err = s.service.ReportReminderAction(c, mux.Vars(r)["orderUID"], request.Action)
		if err != nil {
			errorWriter.WriteError(c, w, 8, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{Message: "Reminder action recorded"})
	}
}
