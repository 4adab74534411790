package myhttpclient

import "context"

//go:generate mockgen -source=api.go -package myhttpclient -destination httpclient_mock.go HTTPSender
type HTTPSender interface {
	Send(c context.Context, method string, url string, body []byte) (int, []byte, error)
}

func New() HTTPSender {
	return newJSONHTTPClient(nil)
}

// NewWithHeaders adds the given headers (like authorization) to every request
func NewWithHeaders(headers map[string]string) HTTPSender {
	return newJSONHTTPClient(headers)
}
