// Package authlander implements a client for the read endpoints of an Authlander authorization server.
//
// A single Client is meant to be created at startup and shared by every caller for the lifetime of the process.
// Session and User are lightweight value types binding an identifier to a server URI; constructing one never
// performs any I/O and every accessor method re-queries the server.
package authlander

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrRequestFailed is matched by every error returned from a remote call, regardless of whether the network, the
// server or the response body was at fault
var ErrRequestFailed = errors.New("authlander request failed")

var errNoClient = errors.New("no client configured")

// maxResponseSize limits how much of a response body is read
const maxResponseSize = 1 << 20

// RequestError describes a failed remote call.
// The requested identifier is never part of it as it may be a credential.
type RequestError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

// Error implements the error interface
func (err *RequestError) Error() string {
	if err.StatusCode != 0 {
		return fmt.Sprintf("GET %s: unexpected status %d", err.Endpoint, err.StatusCode)
	}
	return fmt.Sprintf("GET %s: %v", err.Endpoint, err.Err)
}

// Unwrap returns the underlying cause
func (err *RequestError) Unwrap() error {
	return err.Err
}

// Is makes every RequestError match ErrRequestFailed
func (err *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}

// Client performs requests against an Authlander server.
// It is safe for concurrent use.
type Client struct {
	http  *http.Client
	retry RetryPolicy
}

type clientOptions struct {
	http    *http.Client
	timeout *time.Duration
	retry   RetryPolicy
}

// Option configures a Client
type Option func(options *clientOptions)

// WithHTTPClient makes the client use a copy of the given HTTP client instead of a newly created one
func WithHTTPClient(httpClient *http.Client) Option {
	return func(options *clientOptions) {
		options.http = httpClient
	}
}

// WithTimeout sets the timeout applied to every request issued by the client.
// An HTTP client passed using WithHTTPClient is never modified.
func WithTimeout(timeout time.Duration) Option {
	return func(options *clientOptions) {
		options.timeout = &timeout
	}
}

// WithRetryPolicy sets the retry policy used for idempotent requests
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(options *clientOptions) {
		options.retry = policy
	}
}

// NewClient creates a new Authlander client.
// Without options requests are never retried and do not time out on their own.
func NewClient(opts ...Option) *Client {
	options := &clientOptions{
		retry: NoRetry,
	}
	for _, opt := range opts {
		opt(options)
	}

	// Work on a copy so that the timeout never leaks into a shared HTTP client
	httpClient := &http.Client{}
	if options.http != nil {
		cpy := *options.http
		httpClient = &cpy
	}
	if options.timeout != nil {
		httpClient.Timeout = *options.timeout
	}

	return &Client{
		http:  httpClient,
		retry: options.retry,
	}
}

// RequestOption configures a single request
type RequestOption func(options *requestOptions)

type requestOptions struct {
	header  http.Header
	noRetry bool
}

// WithHeader sets a header on the outgoing request
func WithHeader(key, value string) RequestOption {
	return func(options *requestOptions) {
		options.header.Set(key, value)
	}
}

// WithoutRetry disables retries for the request, regardless of the client's retry policy
func WithoutRetry() RequestOption {
	return func(options *requestOptions) {
		options.noRetry = true
	}
}

// Get requests {baseURI}{endpoint}{id} and decodes the JSON response into value
func (client *Client) Get(ctx context.Context, baseURI, endpoint, id string, value any, opts ...RequestOption) error {
	if client == nil {
		return &RequestError{Endpoint: endpoint, Err: errNoClient}
	}

	options := &requestOptions{header: make(http.Header)}
	for _, opt := range opts {
		opt(options)
	}

	policy := client.retry
	if options.noRetry {
		policy = NoRetry
	}

	target := baseURI + endpoint + url.PathEscape(id)

	// Repeat the request as long as the policy allows and the failure is transient
	var lastErr error
	operation := func() error {
		err := client.do(ctx, target, options.header, value)
		if err == nil {
			return nil
		}
		lastErr = err
		if !shouldRetry(ctx, err) {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(operation, policy.backOff(ctx)); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		requestErr := &RequestError{Endpoint: endpoint, Err: lastErr}
		var statusErr *statusError
		if errors.As(lastErr, &statusErr) {
			requestErr.StatusCode = statusErr.code
		}
		return requestErr
	}
	return nil
}

type statusError struct {
	code int
}

func (err *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", err.code)
}

func (client *Client) do(ctx context.Context, target string, header http.Header, value any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	for key, values := range header {
		request.Header[key] = values
	}
	request.Header.Set("Accept", "application/json")

	response, err := client.http.Do(request)
	if err != nil {
		// *url.Error would carry the full URL including the identifier
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return urlErr.Err
		}
		return err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, response.Body)
		return &statusError{code: response.StatusCode}
	}

	// Decode the body; a body missing required fields fails just like a malformed one
	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return err
	}
	if err := decodeObject(body, value); err != nil {
		return &decodeError{err: err}
	}
	return nil
}

type decodeError struct {
	err error
}

func (err *decodeError) Error() string {
	return "could not decode response: " + err.err.Error()
}

func (err *decodeError) Unwrap() error {
	return err.err
}

// shouldRetry reports whether a failed attempt may be repeated.
// Only transport failures and server-side (5xx) statuses qualify; client errors and malformed bodies are final.
func shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return statusErr.code >= 500
	}
	var decodeErr *decodeError
	return !errors.As(err, &decodeErr)
}
