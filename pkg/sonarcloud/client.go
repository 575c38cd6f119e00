// Package sonarcloud is a client for the SonarCloud Web API.
//
// GET endpoints are paginated with the total-count protocol: each response
// carries a paging object with the grand total, and pages p=2,3,... are
// requested until that many items have been collected. Other methods are
// sent once and never paginated.
package sonarcloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/eemetrics/pkg/logging"
)

// DefaultBaseURL is the public SonarCloud API root.
const DefaultBaseURL = "https://sonarcloud.io/api"

// Client calls the SonarCloud API with a user token.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	logger   *logging.Logger
	pageSize int
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithPageSize sets the "ps" parameter on paginated requests. Zero leaves
// the server default.
func WithPageSize(n int) Option {
	return func(c *Client) { c.pageSize = n }
}

// NewClient creates a Client authenticating with token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, fn := range opts {
		fn(c)
	}
	if c.logger == nil {
		c.logger = logging.New("eemetrics/sonarcloud", logging.Catalog)
	}
	return c
}

// Result is the outcome of Call. Success is false when the request could
// not be completed; the failure has already been logged.
type Result struct {
	Success bool
	// Items holds the accumulated items of a GET, in page order.
	Items []json.RawMessage
	// Body holds the response of a non-GET, or the item value of an
	// unpaged GET when that value is not an array.
	Body json.RawMessage
}

// Paging is the pagination object of a paged response.
type Paging struct {
	PageIndex int `json:"pageIndex"`
	PageSize  int `json:"pageSize"`
	Total     int `json:"total"`
}

// Get fetches every page of a GET endpoint, accumulating itemKey.
func (c *Client) Get(ctx context.Context, path string, params url.Values, itemKey string) (*Result, error) {
	return c.Call(ctx, http.MethodGet, path, params, itemKey)
}

// Post sends a single POST.
func (c *Client) Post(ctx context.Context, path string, params url.Values) (*Result, error) {
	return c.Call(ctx, http.MethodPost, path, params, "")
}

// Call issues a request. GETs are paginated; every other method is sent
// once. The returned error is non-nil only for error envelopes; transport
// and status failures yield a Result with Success false.
func (c *Client) Call(ctx context.Context, method, path string, params url.Values, itemKey string) (*Result, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = append([]string(nil), v...)
	}
	if method != http.MethodGet {
		return c.callOnce(ctx, method, path, query)
	}
	return c.paginate(ctx, path, query, itemKey)
}

func (c *Client) callOnce(ctx context.Context, method, path string, query url.Values) (*Result, error) {
	body, ok, err := c.send(ctx, method, path, query)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Result{Success: false}, nil
	}
	return &Result{Success: true, Body: body}, nil
}

func (c *Client) paginate(ctx context.Context, path string, query url.Values, itemKey string) (*Result, error) {
	if c.pageSize > 0 {
		query.Set("ps", strconv.Itoa(c.pageSize))
	}

	body, ok, err := c.send(ctx, http.MethodGet, path, query)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Result{Success: false}, nil
	}
	if body == nil {
		return &Result{Success: true}, nil
	}

	first, err := decodePage(body, itemKey)
	if err != nil {
		c.logger.Error("ENGEXPUTILS015", logging.Fields{"path": path, "error": err.Error()})
		return &Result{Success: false}, nil
	}
	if first.paging == nil {
		if first.value != nil && first.items == nil {
			return &Result{Success: true, Body: first.value}, nil
		}
		return &Result{Success: true, Items: first.items}, nil
	}

	items := first.items
	total := first.paging.Total
	for page := 2; len(items) < total; page++ {
		query.Set("p", strconv.Itoa(page))
		body, ok, err := c.send(ctx, http.MethodGet, path, query)
		if err != nil {
			return nil, err
		}
		if !ok {
			return &Result{Success: false}, nil
		}
		next, err := decodePage(body, itemKey)
		if err != nil {
			c.logger.Error("ENGEXPUTILS015", logging.Fields{"path": path, "page": page, "error": err.Error()})
			return &Result{Success: false}, nil
		}
		// The server reported more items than it delivers.
		if len(next.items) == 0 {
			break
		}
		items = append(items, next.items...)
	}
	return &Result{Success: true, Items: items}, nil
}

// send performs one request. ok is false when the failure was logged and
// should surface as an unsuccessful Result. A 204 returns a nil body.
func (c *Client) send(ctx context.Context, method, path string, query url.Values) (body []byte, ok bool, err error) {
	target := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		c.logger.Error("ENGEXPUTILS015", logging.Fields{"path": path, "error": err.Error()})
		return nil, false, nil
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("ENGEXPUTILS015", logging.Fields{"path": path, "error": err.Error()})
		return nil, false, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, true, nil
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("ENGEXPUTILS015", logging.Fields{"path": path, "error": err.Error()})
		return nil, false, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if hasErrorEnvelope(body) {
			return nil, false, c.CheckResponse(body)
		}
		c.logger.Error("ENGEXPUTILS018", logging.Fields{
			"path":   path,
			"status": resp.StatusCode,
		})
		return nil, false, nil
	}

	if err := c.CheckResponse(body); err != nil {
		if errors.Is(err, ErrInvalidResponse) {
			c.logger.Error("ENGEXPUTILS015", logging.Fields{"path": path, "error": err.Error()})
			return nil, false, nil
		}
		return nil, false, err
	}
	return body, true, nil
}

// CheckResponse inspects a body for the vendor error envelope and maps it
// through HandleErrors. It returns nil when there is no envelope.
func (c *Client) CheckResponse(body []byte) error {
	var envelope struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if isNull(envelope.Errors) {
		return nil
	}

	c.logger.Error("ENGEXPUTILS004", logging.Fields{"response": json.RawMessage(body)})

	var errs APIErrors
	if err := json.Unmarshal(envelope.Errors, &errs); err != nil {
		return fmt.Errorf("%w: errors is not a list: %v", ErrInvalidResponse, err)
	}
	return c.HandleErrors(errs)
}

// HandleErrors maps the first recognised entry to a typed error. An entry
// without a message is reported as ErrMessageNotFound; an unrecognised
// list is returned as is.
func (c *Client) HandleErrors(errs APIErrors) error {
	for _, apiErr := range errs {
		msg := apiErr.Text()
		if msg == "" {
			return fmt.Errorf("%w: %s", ErrMessageNotFound, string(apiErr.Raw))
		}
		if strings.Contains(msg, "No organization for key") {
			c.logger.Warn("ENGEXPUTILS003", logging.Fields{"error": msg})
			return &NoOrganisationError{Message: msg}
		}
		if strings.Contains(msg, "Component key") && strings.Contains(msg, "not found") {
			c.logger.Warn("ENGEXPUTILS005", logging.Fields{"error": msg})
			return &ProjectNotFoundError{Message: msg}
		}
	}
	return errs
}

func hasErrorEnvelope(body []byte) bool {
	var envelope struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false
	}
	return !isNull(envelope.Errors)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

type page struct {
	paging *Paging
	items  []json.RawMessage
	// value is the raw itemKey value when it is not an array.
	value json.RawMessage
}

func decodePage(body []byte, itemKey string) (*page, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	p := &page{}
	if raw, ok := fields["paging"]; ok && !isNull(raw) {
		p.paging = &Paging{}
		if err := json.Unmarshal(raw, p.paging); err != nil {
			return nil, fmt.Errorf("%w: paging: %v", ErrInvalidResponse, err)
		}
	}

	raw, ok := fields[itemKey]
	if !ok || isNull(raw) {
		return p, nil
	}
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		if err := json.Unmarshal(raw, &p.items); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidResponse, itemKey, err)
		}
		if p.items == nil {
			p.items = []json.RawMessage{}
		}
		return p, nil
	}
	if p.paging != nil {
		return nil, fmt.Errorf("%w: %s is not a list", ErrInvalidResponse, itemKey)
	}
	p.value = raw
	return p, nil
}
