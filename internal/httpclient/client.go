// Package httpclient implements the fasthttp-backed transport the Test
// Manager dispatches through, wrapped behind a small interface for
// substitution in tests, plus OAuth2 client-credentials token
// acquisition.
package httpclient

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/blackcoderx/httprun/internal/model"
)

// Client is the transport interface the Test Manager dispatches through.
type Client interface {
	Do(ctx context.Context, req *model.Request, body []byte, timeout time.Duration) (*model.Response, error)
}

// FastHTTPClient wraps a pooled fasthttp.Client.
type FastHTTPClient struct {
	client *fasthttp.Client
}

// New returns a FastHTTPClient with sane pooling defaults.
func New() *FastHTTPClient {
	return &FastHTTPClient{
		client: &fasthttp.Client{
			MaxConnsPerHost:           512,
			ReadTimeout:               60 * time.Second,
			WriteTimeout:              60 * time.Second,
			NoDefaultUserAgentHeader:  false,
		},
	}
}

// Do dispatches req with body already resolved (templates expanded,
// scripts run) through fasthttp's DoTimeout, converting the result into
// a normalized model.Response. The actual fasthttp call runs on a
// background goroutine so that ctx cancellation (bail, SIGINT/SIGTERM)
// can return to the caller immediately instead of blocking until
// fasthttp's own read/write timeout; the goroutine still owns the
// acquired Request/Response and releases them once the call returns,
// even after Do itself has already returned ctx.Err() to its caller.
func (c *FastHTTPClient) Do(ctx context.Context, req *model.Request, body []byte, timeout time.Duration) (*model.Response, error) {
	type outcome struct {
		resp *model.Response
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		freq := fasthttp.AcquireRequest()
		fresp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(freq)
		defer fasthttp.ReleaseResponse(fresp)

		freq.SetRequestURI(req.URL)
		freq.Header.SetMethod(req.Method)
		req.Headers.Each(func(name, value string) {
			freq.Header.Set(name, value)
		})
		if len(body) > 0 {
			freq.SetBody(body)
		}

		start := time.Now()
		var err error
		if timeout > 0 {
			err = c.client.DoTimeout(freq, fresp, timeout)
		} else {
			err = c.client.Do(freq, fresp)
		}
		duration := time.Since(start)
		if err != nil {
			done <- outcome{err: err}
			return
		}

		resp := &model.Response{
			StatusCode: fresp.StatusCode(),
			Status:     fasthttpStatusText(fresp.StatusCode()),
			Headers:    model.NewOrderedHeaders(),
			Body:       append([]byte(nil), fresp.Body()...),
			Duration:   duration,
			Fetched:    start,
		}
		fresp.Header.VisitAll(func(key, value []byte) {
			resp.Headers.Set(string(key), string(value))
		})
		done <- outcome{resp: resp}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-done:
		return o.resp, o.err
	}
}

func fasthttpStatusText(code int) string {
	return fasthttp.StatusMessage(code)
}
