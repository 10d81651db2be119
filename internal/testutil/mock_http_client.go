package testutil

import (
	"context"
	"sync"

	"github.com/billix/billix/internal/httpclient"
)

// MockHTTPClient records every request and replays canned responses in
// the order they were queued. When the queue is exhausted it keeps
// returning the last queued response (or 200 when none was queued).
type MockHTTPClient struct {
	mu        sync.Mutex
	requests  []*httpclient.Request
	responses []mockResponse
	next      int
}

type mockResponse struct {
	resp *httpclient.Response
	err  error
}

func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{}
}

// QueueResponse appends a response to be returned by a future Send call.
func (c *MockHTTPClient) QueueResponse(resp *httpclient.Response, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, mockResponse{resp: resp, err: err})
}

func (c *MockHTTPClient) Send(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)

	if len(c.responses) == 0 {
		return &httpclient.Response{StatusCode: 200}, nil
	}
	r := c.responses[c.next]
	if c.next < len(c.responses)-1 {
		c.next++
	}
	return r.resp, r.err
}

// Requests returns a copy of every request Send has seen.
func (c *MockHTTPClient) Requests() []*httpclient.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*httpclient.Request, len(c.requests))
	copy(out, c.requests)
	return out
}

func (c *MockHTTPClient) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = nil
	c.responses = nil
	c.next = 0
}
