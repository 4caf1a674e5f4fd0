package client

import (
	"io"
	"net/http"
	"strings"
	"sync"

	"ShopifyWithOdoo/internal/shopifyapi/request"
)

// SenderMock imitates sending requests and replays the given responses in order,
// repeating the last one when they run out.
type SenderMock struct {
	mu        sync.Mutex
	responses []*http.Response
	bodies    []string
	Requests  []request.Request
}

func NewSenderMock(responses ...*http.Response) *SenderMock {
	m := &SenderMock{responses: responses}
	for _, r := range responses {
		b, _ := io.ReadAll(r.Body)
		m.bodies = append(m.bodies, string(b))
	}
	return m
}

// NewResponse builds a response with a JSON body.
func NewResponse(status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// Send ...
func (r *SenderMock) Send(req request.Request) (resp *http.Response, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := len(r.Requests)
	r.Requests = append(r.Requests, req)
	if i >= len(r.responses) {
		i = len(r.responses) - 1
	}
	src := r.responses[i]
	return NewResponse(src.StatusCode, r.bodies[i], src.Header), nil
}
