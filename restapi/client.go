// Package restapi is a thin client for the digestiflow-server REST API:
// flow cell resolution/creation/update and index histogram upload. Wire
// (de)serialization is stdlib encoding/json; no third-party HTTP client
// is grounded anywhere in the retrieval pack, so net/http is used
// directly, per spec.md §1's note that the wire contract (not its
// transport) is the specified surface.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/bihealth/digestiflow-cli/flowcell"
	"github.com/bihealth/digestiflow-cli/histogram"
)

// HTTPStatusError is a non-2xx response whose status code matters to the
// caller (in particular, 404 during resolve is an expected branch, not a
// failure).
type HTTPStatusError struct {
	StatusCode int
	Path       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("restapi: %s returned HTTP %d", e.Path, e.StatusCode)
}

// Client talks to one digestiflow-server instance on behalf of one
// project.
type Client struct {
	BaseURL  string
	Token    string
	LogToken bool
	Project  string
	http     *http.Client
}

// New returns a Client. baseURL should not end in "/"; it is joined with
// "/" before every request path.
func New(baseURL, token, project string, logToken bool) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Token:    token,
		Project:  project,
		LogToken: logToken,
		http:     &http.Client{},
	}
}

func (c *Client) tokenForLog() string {
	if c.LogToken {
		return c.Token
	}
	return "***"
}

func (c *Client) url(pathFmt string, args ...interface{}) string {
	return c.BaseURL + "/" + fmt.Sprintf(pathFmt, args...)
}

func (c *Client) do(ctx context.Context, method, url string, body interface{}, out interface{}) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, errors.Wrap(err, "restapi: marshaling request body")
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, errors.Wrapf(err, "restapi: building %s %s", method, url)
	}
	req.Header.Set("Authorization", "Token "+c.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "restapi: %s %s (token %s)", method, url, c.tokenForLog())
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return resp.StatusCode, &HTTPStatusError{StatusCode: resp.StatusCode, Path: url}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, errors.Wrapf(err, "restapi: decoding response from %s %s", method, url)
		}
	}
	return resp.StatusCode, nil
}

// Resolve performs GET api/flowcells/{proj}/resolve/{instr}/{run#}/{vendor_id}/.
// A 404 is reported as *HTTPStatusError so callers can distinguish
// "not found" (expected) from any other failure.
func (c *Client) Resolve(ctx context.Context, instrument string, runNumber int, vendorID string) (flowcell.FlowCell, error) {
	var fc flowcell.FlowCell
	url := c.url("api/flowcells/%s/resolve/%s/%d/%s/", c.Project, instrument, runNumber, vendorID)
	_, err := c.do(ctx, http.MethodGet, url, nil, &fc)
	return fc, err
}

// Create performs POST api/flowcells/{proj}/.
func (c *Client) Create(ctx context.Context, fc flowcell.FlowCell) (flowcell.FlowCell, error) {
	var created flowcell.FlowCell
	url := c.url("api/flowcells/%s/", c.Project)
	_, err := c.do(ctx, http.MethodPost, url, fc, &created)
	return created, err
}

// Update performs PUT api/flowcells/{proj}/{uuid}/.
func (c *Client) Update(ctx context.Context, uuid string, fc flowcell.FlowCell) (flowcell.FlowCell, error) {
	var updated flowcell.FlowCell
	url := c.url("api/flowcells/%s/%s/", c.Project, uuid)
	_, err := c.do(ctx, http.MethodPut, url, fc, &updated)
	return updated, err
}

// ListHistograms performs GET api/indexhistos/{proj}/{uuid}/.
func (c *Client) ListHistograms(ctx context.Context, flowcellUUID string) ([]histogram.LaneIndexHistogram, error) {
	var hists []histogram.LaneIndexHistogram
	url := c.url("api/indexhistos/%s/%s/", c.Project, flowcellUUID)
	_, err := c.do(ctx, http.MethodGet, url, nil, &hists)
	return hists, err
}

// PostHistogram performs POST api/indexhistos/{proj}/{uuid}/.
func (c *Client) PostHistogram(ctx context.Context, flowcellUUID string, hist histogram.LaneIndexHistogram) error {
	url := c.url("api/indexhistos/%s/%s/", c.Project, flowcellUUID)
	_, err := c.do(ctx, http.MethodPost, url, hist, nil)
	return err
}

// IsNotFound reports whether err is the expected 404 branch of Resolve.
func IsNotFound(err error) bool {
	var statusErr *HTTPStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
