package funnel

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/flowershop/lib/mycontext"
	"github.com/MarcGrol/flowershop/lib/myhttp"
	"github.com/MarcGrol/flowershop/lib/mylog"
	"github.com/MarcGrol/flowershop/lib/mypubsub"
	"github.com/MarcGrol/flowershop/lib/mystore"
	"github.com/MarcGrol/flowershop/lib/mytime"
	"github.com/MarcGrol/flowershop/services/checkoutevents"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and ease testing
func NewWebService(store mystore.Store[DailyFunnel], pubsub mypubsub.PubSub, nower mytime.Nower, baseURL string) *webService {
	logger := mylog.New("funnel")
	return &webService{
		logger:  logger,
		service: newService(store, pubsub, nower, logger, baseURL),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/api/funnel", s.listDays()).Methods("GET")
	router.HandleFunc("/api/funnel/{day}", s.getDay()).Methods("GET")
	router.HandleFunc("/api/funnel/event", s.handleEvent()).Methods("POST")

	return s.service.Subscribe(c)
}

func (s *webService) listDays() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		days, err := s.service.listDays(c)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, days)
	}
}

func (s *webService) getDay() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		day, err := s.service.getDay(c, mux.Vars(r)["day"])
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, day)
	}
}

func (s *webService) handleEvent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		err := checkoutevents.DispatchEvent(c, r.Body, s.service)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{})
	}
}
