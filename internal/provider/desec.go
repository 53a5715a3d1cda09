package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/0x3st/ainic/internal/platform"
)

// Desec talks to a deSEC-style nameserver-hosting REST API. Zones are
// addressed by FQDN, RRSets by zones/{zone}/rrsets/{subname|@}/{type}/, and
// the bulk endpoint accepts an array where an empty records list deletes the
// matching key.
type Desec struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewDesec(baseURL, token string) *Desec {
	return &Desec{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type desecZone struct {
	Name string `json:"name"`
}

func (c *Desec) CreateZone(ctx context.Context, name string) error {
	body, _ := json.Marshal(desecZone{Name: name})
	return c.do(ctx, http.MethodPost, "/zones/", body, nil)
}

func (c *Desec) DeleteZone(ctx context.Context, name string) error {
	err := c.do(ctx, http.MethodDelete, "/zones/"+url.PathEscape(name)+"/", nil, nil)
	if errors.Is(err, platform.ErrNotFound) {
		return nil
	}
	return err
}

func (c *Desec) GetRRSets(ctx context.Context, zone string) ([]RRSet, error) {
	var out []RRSet
	if err := c.do(ctx, http.MethodGet, c.rrsetsPath(zone), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Desec) GetRRSet(ctx context.Context, zone, subname, rtype string) (*RRSet, error) {
	var out RRSet
	if err := c.do(ctx, http.MethodGet, c.rrsetPath(zone, subname, rtype), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Desec) PutRRSet(ctx context.Context, zone string, rr RRSet) error {
	body, _ := json.Marshal(rr)
	return c.do(ctx, http.MethodPut, c.rrsetPath(zone, rr.Subname, rr.Type), body, nil)
}

func (c *Desec) DeleteRRSet(ctx context.Context, zone, subname, rtype string) error {
	err := c.do(ctx, http.MethodDelete, c.rrsetPath(zone, subname, rtype), nil, nil)
	if errors.Is(err, platform.ErrNotFound) {
		return nil
	}
	return err
}

func (c *Desec) BulkUpdateRRSets(ctx context.Context, zone string, rrsets []RRSet) error {
	body, _ := json.Marshal(rrsets)
	return c.do(ctx, http.MethodPut, c.rrsetsPath(zone), body, nil)
}

func (c *Desec) AddNSDelegation(ctx context.Context, parentZone, childLabel string, nameServers []string) error {
	return c.PutRRSet(ctx, parentZone, RRSet{
		Subname: childLabel,
		Type:    "NS",
		TTL:     3600,
		Records: nameServers,
	})
}

func (c *Desec) RemoveNSDelegation(ctx context.Context, parentZone, childLabel string) error {
	return c.DeleteRRSet(ctx, parentZone, childLabel, "NS")
}

func (c *Desec) rrsetsPath(zone string) string {
	return "/zones/" + url.PathEscape(zone) + "/rrsets/"
}

// rrsetPath encodes the empty apex subname as "@" per provider convention.
func (c *Desec) rrsetPath(zone, subname, rtype string) string {
	if subname == "" {
		subname = "@"
	}
	return fmt.Sprintf("/zones/%s/rrsets/%s/%s/",
		url.PathEscape(zone), url.PathEscape(subname), url.PathEscape(strings.ToUpper(rtype)))
}

func (c *Desec) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &platform.ProviderError{StatusCode: 0, Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &platform.ProviderError{StatusCode: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return providerErr(resp.StatusCode, readDetail(resp.Body))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &platform.ProviderError{StatusCode: resp.StatusCode, Message: "malformed response: " + err.Error()}
		}
	}
	return nil
}

// readDetail extracts the human-readable detail/message field an error body
// carries, surfaced verbatim to the caller.
func readDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 8192))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Detail != "" {
			return body.Detail
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
