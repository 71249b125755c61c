package acs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	d "github.com/invertedv/countydata"
)

const (
	BaseURL = "https://api.census.gov/data"
	Dataset = "acs/acs1"
)

// Client is a Provider backed by the Census Bureau data API.
type Client struct {
	baseURL string
	dataset string
	key     string
	states  []string

	http *http.Client
}

type ClientOpt func(c *Client) error

func NewClient(opts ...ClientOpt) (*Client, error) {
	c := &Client{
		baseURL: BaseURL,
		dataset: Dataset,
		states:  AllStatesAndDC,
		http:    &http.Client{Timeout: 5 * time.Minute},
	}

	for _, opt := range opts {
		if e := opt(c); e != nil {
			return nil, e
		}
	}

	return c, nil
}

func WithBaseURL(base string) ClientOpt {
	return func(c *Client) error {
		if _, e := url.Parse(base); e != nil {
			return fmt.Errorf("bad base url %s: %w", base, e)
		}

		c.baseURL = strings.TrimSuffix(base, "/")
		return nil
	}
}

// WithKey sets the census API key. Keyless requests are rate limited.
func WithKey(key string) ClientOpt {
	return func(c *Client) error {
		c.key = key
		return nil
	}
}

func WithHTTPClient(hc *http.Client) ClientOpt {
	return func(c *Client) error {
		if hc == nil {
			return fmt.Errorf("nil http client")
		}

		c.http = hc
		return nil
	}
}

// WithStates restricts requests to the given state FIPS codes.
func WithStates(states ...string) ClientOpt {
	return func(c *Client) error {
		if len(states) == 0 {
			return fmt.Errorf("no states")
		}

		c.states = states
		return nil
	}
}

// Fetch downloads vars for every county of the client's states for year.
func (c *Client) Fetch(ctx context.Context, year int, vars []string) (*d.Table, error) {
	get := append([]string{ColName}, vars...)

	q := url.Values{}
	q.Set("get", strings.Join(d.Unique(get), ","))
	q.Set("for", "county:*")
	q.Set("in", "state:"+strings.Join(c.states, ","))
	if c.key != "" {
		q.Set("key", c.key)
	}

	var (
		rows [][]*string
		e    error
	)
	if e = c.getJSON(ctx, fmt.Sprintf("%s/%d/%s?%s", c.baseURL, year, c.dataset, q.Encode()), &rows); e != nil {
		return nil, fmt.Errorf("fetch %d: %w", year, e)
	}

	return toTable(rows, vars)
}

type variableInfo struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// VariableLabel returns the census label of id as defined in year, e.g. "Estimate!!Total".
func (c *Client) VariableLabel(ctx context.Context, year int, id string) (string, error) {
	u := fmt.Sprintf("%s/%d/%s/variables/%s.json", c.baseURL, year, c.dataset, url.PathEscape(id))
	if c.key != "" {
		u += "?key=" + url.QueryEscape(c.key)
	}

	var vi variableInfo
	if e := c.getJSON(ctx, u, &vi); e != nil {
		return "", fmt.Errorf("label of %s in %d: %w", id, year, e)
	}

	return vi.Label, nil
}

func (c *Client) getJSON(ctx context.Context, u string, target any) error {
	var (
		req *http.Request
		e   error
	)
	if req, e = http.NewRequestWithContext(ctx, http.MethodGet, u, nil); e != nil {
		return e
	}

	var resp *http.Response
	if resp, e = c.http.Do(req); e != nil {
		return e
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("census api status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if e = json.NewDecoder(resp.Body).Decode(target); e != nil {
		return fmt.Errorf("malformed census api response: %w", e)
	}

	return nil
}

// toTable converts the API's array-of-arrays response, whose first row is the header.
func toTable(rows [][]*string, vars []string) (*d.Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty census api response")
	}

	hdr := make([]string, len(rows[0]))
	for ind, h := range rows[0] {
		if h == nil {
			return nil, fmt.Errorf("null in census api header")
		}
		hdr[ind] = *h
	}

	pos := func(name string) (int, error) {
		if p := d.Position(name, hdr); p >= 0 {
			return p, nil
		}

		return -1, fmt.Errorf("census api response has no field %s", name)
	}

	var (
		colNames = []string{ColName, ColState, ColCounty}
		srcNames = []string{ColName, "state", "county"}
		idx      []int
	)
	for _, sn := range srcNames {
		p, e := pos(sn)
		if e != nil {
			return nil, e
		}
		idx = append(idx, p)
	}

	for _, v := range d.Unique(vars) {
		p, e := pos(v)
		if e != nil {
			return nil, e
		}

		colNames = append(colNames, v)
		idx = append(idx, p)
	}

	data := rows[1:]
	var cols []*d.Col
	for c, name := range colNames {
		dt := d.DTfloat
		if c < 3 {
			dt = d.DTstring
		}

		v := d.MakeVector(dt, 0)
		for r, row := range data {
			if len(row) != len(hdr) {
				return nil, fmt.Errorf("census api row %d has %d fields, header has %d", r+1, len(row), len(hdr))
			}

			x := row[idx[c]]
			if x == nil {
				if dt == d.DTstring {
					return nil, fmt.Errorf("census api row %d: null %s", r+1, name)
				}

				if e := v.Append(nil); e != nil {
					return nil, e
				}
				continue
			}

			if e := v.Append(*x); e != nil {
				return nil, fmt.Errorf("census api row %d field %s: %w", r+1, name, e)
			}
		}

		var (
			col *d.Col
			e   error
		)
		if col, e = d.NewCol(v, dt, d.ColName(name)); e != nil {
			return nil, e
		}

		cols = append(cols, col)
	}

	return d.NewTable(cols...)
}
