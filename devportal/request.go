package devportal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/bitrise-io/go-utils/httputil"
	"github.com/google/go-querystring/query"
	"github.com/google/uuid"
	"howett.net/plist"
)

const (
	csrfHeader          = "csrf"
	csrfTimestampHeader = "csrf_ts"

	defaultPageSize = 500
)

type csrfTokens struct {
	mu        sync.RWMutex
	token     string
	timestamp string
}

func (t *csrfTokens) apply(req *http.Request) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.token != "" {
		req.Header.Set(csrfHeader, t.token)
		req.Header.Set(csrfTimestampHeader, t.timestamp)
	}
}

func (t *csrfTokens) update(resp *http.Response) {
	token := resp.Header.Get(csrfHeader)
	if token == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = token
	t.timestamp = resp.Header.Get(csrfTimestampHeader)
}

// responseEnvelope is embedded into every portal response.
type responseEnvelope struct {
	ResultCode   int    `json:"resultCode" plist:"resultCode"`
	ResultString string `json:"resultString" plist:"resultString"`
	UserString   string `json:"userString" plist:"userString"`
}

func (e responseEnvelope) check(endpoint string) error {
	if e.ResultCode == 0 {
		return nil
	}
	return UnexpectedResponseError{
		Endpoint:     endpoint,
		ResultCode:   e.ResultCode,
		ResultString: e.ResultString,
		UserString:   e.UserString,
	}
}

// PagingOptions ...
type PagingOptions struct {
	PageNumber int    `url:"pageNumber,omitempty"`
	PageSize   int    `url:"pageSize,omitempty"`
	Sort       string `url:"sort,omitempty"`
}

// listAll requests pages until a page is shorter than the page size.
func listAll[T any](fetch func(paging PagingOptions) ([]T, error)) ([]T, error) {
	var all []T
	for page := 1; ; page++ {
		items, err := fetch(PagingOptions{PageNumber: page, PageSize: defaultPageSize, Sort: "name=asc"})
		if err != nil {
			return nil, err
		}
		all = append(all, items...)

		if len(items) < defaultPageSize {
			return all, nil
		}
	}
}

// portalRequest posts a form encoded body to the portal JSON API and decodes the response into v.
// Team scoped requests carry the selected team's ID.
func (c *Client) portalRequest(ctx context.Context, endpoint string, opt interface{}, teamScoped bool, v interface{}) error {
	form := url.Values{}
	if opt != nil {
		values, err := query.Values(opt)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", endpoint, err)
		}
		form = values
	}

	if teamScoped {
		teamID, err := c.ensureTeamID(ctx)
		if err != nil {
			return err
		}
		form.Set("teamId", teamID)
	}

	u, err := c.portalURL.Parse(endpoint)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return err
	}

	var envelope responseEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to decode %s response (%s): %w", endpoint, string(body), err)
	}
	if err := envelope.check(endpoint); err != nil {
		return err
	}

	if v != nil {
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
		}
	}

	return nil
}

// download fetches raw content from a team scoped portal endpoint.
func (c *Client) download(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	teamID, err := c.ensureTeamID(ctx)
	if err != nil {
		return nil, err
	}
	params.Set("teamId", teamID)

	u, err := c.portalURL.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	return c.do(req)
}

// xcodeRequest posts a plist body to the Xcode developer services API and decodes the plist response into v.
func (c *Client) xcodeRequest(ctx context.Context, action string, params map[string]interface{}, v interface{}) error {
	teamID, err := c.ensureTeamID(ctx)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{
		"clientId":        xcodeClientID,
		"protocolVersion": protocolVersion,
		"requestId":       strings.ToUpper(uuid.New().String()),
		"teamId":          teamID,
	}
	for key, value := range params {
		payload[key] = value
	}

	body, err := plist.Marshal(payload, plist.XMLFormat)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", action, err)
	}

	u, err := c.xcodeURL.Parse(action)
	if err != nil {
		return err
	}
	u.RawQuery = url.Values{"clientId": {xcodeClientID}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/x-xml-plist")
	req.Header.Set("Accept", "text/x-xml-plist")

	respBody, err := c.do(req)
	if err != nil {
		return err
	}

	var envelope responseEnvelope
	if _, err := plist.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", action, err)
	}
	if err := envelope.check(action); err != nil {
		return err
	}

	if v != nil {
		if _, err := plist.Unmarshal(respBody, v); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", action, err)
		}
	}

	return nil
}

// do sends an authenticated request and returns the response body.
func (c *Client) do(req *http.Request) ([]byte, error) {
	c.csrf.apply(req)
	return c.doRaw(req)
}

func (c *Client) doRaw(req *http.Request) ([]byte, error) {
	c.debugf("Request:")
	if c.EnableDebugLogs {
		if err := httputil.PrintRequest(req); err != nil {
			c.debugf("Failed to print request: %s", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", req.Method, req.URL.Path, err)
	}
	defer c.closeBody(resp)

	c.debugf("Response:")
	if c.EnableDebugLogs {
		if err := httputil.PrintResponse(resp); err != nil {
			c.debugf("Failed to print response: %s", err)
		}
	}

	c.csrf.update(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, NetworkError{
			Method: req.Method,
			URL:    req.URL.String(),
			Status: resp.StatusCode,
			Body:   string(body),
		}
	}

	return body, nil
}
