// Package loanclient calls the loan service over HTTP on behalf of the
// collection and reporting services.
package loanclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"loanbook/internal/core/domain"
	"loanbook/internal/pkg/retry"

	"github.com/valyala/fasthttp"
)

// StatusError is a non-2xx answer from the loan service
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s: %d", e.Method, e.Path, e.Code)
}

// Is lets callers match 404 and 409 against the domain categories
func (e *StatusError) Is(target error) bool {
	switch target {
	case domain.ErrNotFound:
		return e.Code == http.StatusNotFound
	case domain.ErrConflict:
		return e.Code == http.StatusConflict
	}
	return false
}

// Retryable is the classifier used for loan service calls: a missing loan
// and a version conflict are definitive, and a rate-limited call is not
// repeated into the same limit. Everything else may be transient.
func Retryable(err error) bool {
	var status *StatusError
	if errors.As(err, &status) && status.Code == http.StatusTooManyRequests {
		return false
	}
	return !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrConflict)
}

// Client implements services.LoanGateway against the loan service
type Client struct {
	baseURL        string
	http           *fasthttp.Client
	retrier        *retry.Retrier
	defaultTimeout time.Duration
}

// New creates a client for the loan service at baseURL. Every call goes
// through retrier; its per-attempt deadline bounds each HTTP exchange.
func New(baseURL string, retrier *retry.Retrier) *Client {
	timeout := retrier.Policy().AttemptTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http: &fasthttp.Client{
			Name:                     "loanbook-loanclient",
			MaxConnsPerHost:          64,
			MaxIdleConnDuration:      30 * time.Second,
			NoDefaultUserAgentHeader: true,
		},
		retrier:        retrier,
		defaultTimeout: timeout,
	}
}

// GetLoan fetches one loan
func (c *Client) GetLoan(ctx context.Context, id uint) (*domain.Loan, error) {
	var loan domain.Loan
	path := "/loans/" + strconv.FormatUint(uint64(id), 10)
	err := c.retrier.Do(ctx, "get-loan", func(ctx context.Context) error {
		return c.do(ctx, fasthttp.MethodGet, path, nil, &loan)
	})
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// UpdateLoan writes a partial update and returns the stored loan. A
// conflict answered to a repeated attempt is reported as
// domain.ErrRetriedWriteConflict: an earlier attempt may have been applied.
func (c *Client) UpdateLoan(ctx context.Context, id uint, update domain.LoanUpdate) (*domain.Loan, error) {
	body, err := json.Marshal(update)
	if err != nil {
		return nil, err
	}

	var (
		loan     domain.Loan
		attempts int
	)
	path := "/loans/" + strconv.FormatUint(uint64(id), 10)
	err = c.retrier.Do(ctx, "update-loan", func(ctx context.Context) error {
		attempts++
		return c.do(ctx, fasthttp.MethodPut, path, body, &loan)
	})
	if err != nil {
		if attempts > 1 && errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("%w: %v", domain.ErrRetriedWriteConflict, err)
		}
		return nil, err
	}
	return &loan, nil
}

// ListLoans fetches every loan
func (c *Client) ListLoans(ctx context.Context) ([]domain.Loan, error) {
	var loans []domain.Loan
	err := c.retrier.Do(ctx, "list-loans", func(ctx context.Context) error {
		loans = nil
		return c.do(ctx, fasthttp.MethodGet, "/loans", nil, &loans)
	})
	if err != nil {
		return nil, err
	}
	return loans, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	timeout, err := c.timeout(ctx)
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}
	// forward the caller's credentials; the loan service authorizes them
	if auth, ok := domain.AuthFromContext(ctx); ok && auth.Token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+auth.Token)
	}

	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	code := resp.StatusCode()
	if code < 200 || code >= 300 {
		err := &StatusError{Method: method, Path: path, Code: code, Message: errorMessage(resp.Body())}
		if !Retryable(err) {
			return retry.Terminal(err)
		}
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// timeout is the time left before the attempt's deadline
func (c *Client) timeout(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		return c.defaultTimeout, nil
	}
	left := time.Until(deadline)
	if left <= 0 {
		return 0, context.DeadlineExceeded
	}
	return left, nil
}

func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil {
		return e.Message
	}
	return ""
}
