package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/MarcGrol/flowershop/lib/myerrors"
	"github.com/MarcGrol/flowershop/lib/myhttpclient"
)

type statusRequest struct {
	Status Status `json:"status"`
}

type reminderRequest struct {
	Action ReminderAction `json:"action"`
}

type errorResponse struct {
	ErrorCode int
	Message   string
}

type httpService struct {
	baseURL string
	client  myhttpclient.HTTPSender
}

func NewHTTPService(baseURL string, client myhttpclient.HTTPSender) Service {
	return &httpService{
		baseURL: baseURL,
		client:  client,
	}
}

func (s *httpService) Create(c context.Context, request CreateRequest) (Order, error) {
	order := Order{}
	err := s.call(c, http.MethodPost, s.baseURL+"/orders", request, &order)
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

func (s *httpService) Get(c context.Context, orderUID string) (Order, error) {
	order := Order{}
	err := s.call(c, http.MethodGet, s.orderURL(orderUID), nil, &order)
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

func (s *httpService) MarkAwaitingPayment(c context.Context, orderUID string) error {
	return s.call(c, http.MethodPut, s.orderURL(orderUID)+"/status", statusRequest{Status: StatusAwaitingPayment}, nil)
}

func (s *httpService) ReportReminderAction(c context.Context, orderUID string, action ReminderAction) error {
	if !action.IsValid() {
		return myerrors.NewInvalidInputError(fmt.Errorf("%w: %s", ErrUnknownReminderAct, action))
	}
	return s.call(c, http.MethodPost, s.orderURL(orderUID)+"/reminders", reminderRequest{Action: action}, nil)
}

func (s *httpService) orderURL(orderUID string) string {
	return s.baseURL + "/orders/" + url.PathEscape(orderUID)
}

func (s *httpService) call(c context.Context, method string, url string, request any, response any) error {
	var body []byte
	if request != nil {
		var err error
		body, err = json.Marshal(request)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error marshalling order request: %s", err))
		}
	}

	status, respBody, err := s.client.Send(c, method, url, body)
	if err != nil {
		return myerrors.NewUnavailableError(fmt.Errorf("order service unreachable: %w", err))
	}

	if status >= 400 {
		return asError(status, respBody)
	}

	if response == nil {
		return nil
	}
	err = json.Unmarshal(respBody, response)
	if err != nil {
		return myerrors.NewBadGatewayError(fmt.Errorf("error parsing order response: %s", err))
	}
	return nil
}

func asError(status int, body []byte) error {
	reason := string(body)
	errResp := errorResponse{}
	if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
		reason = errResp.Message
	}

	switch status {
	case http.StatusNotFound:
		return myerrors.NewNotFoundError(fmt.Errorf("%w: %s", ErrOrderNotFound, reason))
	case http.StatusConflict:
		return myerrors.NewConflictError(fmt.Errorf("%w: %s", ErrInvalidTransition, reason))
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return myerrors.NewUnprocessableError(fmt.Errorf("%w: %s", ErrOrderRejected, reason))
	default:
		return myerrors.NewBadGatewayError(fmt.Errorf("order service failed with status %d: %s", status, reason))
	}
}
