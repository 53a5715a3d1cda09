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
	"sync"
	"time"

	"github.com/0x3st/ainic/internal/platform"
)

// Cloudflare talks to a CDN-style DNS API: per-record CRUD under
// /zones/{id}/dns_records with a proxied flag, no server-side bulk endpoint.
// BulkUpdateRRSets is emulated client-side, one key at a time; deployments on
// this backend keep local shadow copies of their RRSets (dns.shadow_records)
// precisely because the batch is not atomic upstream.
type Cloudflare struct {
	baseURL   string
	token     string
	accountID string
	http      *http.Client

	mu      sync.Mutex
	zoneIDs map[string]string
}

func NewCloudflare(baseURL, token, accountID string) *Cloudflare {
	return &Cloudflare{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		accountID: accountID,
		http:      &http.Client{Timeout: 30 * time.Second},
		zoneIDs:   make(map[string]string),
	}
}

type cfEnvelope struct {
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Result json.RawMessage `json:"result"`
}

type cfZone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type cfRecord struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

func (c *Cloudflare) CreateZone(ctx context.Context, name string) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"name":    name,
		"account": map[string]string{"id": c.accountID},
	})
	var zone cfZone
	if err := c.do(ctx, http.MethodPost, "/zones", payload, &zone); err != nil {
		return err
	}
	c.mu.Lock()
	c.zoneIDs[name] = zone.ID
	c.mu.Unlock()
	return nil
}

func (c *Cloudflare) DeleteZone(ctx context.Context, name string) error {
	id, err := c.zoneID(ctx, name)
	if errors.Is(err, platform.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodDelete, "/zones/"+id, nil, nil); err != nil && !errors.Is(err, platform.ErrNotFound) {
		return err
	}
	c.mu.Lock()
	delete(c.zoneIDs, name)
	c.mu.Unlock()
	return nil
}

func (c *Cloudflare) GetRRSets(ctx context.Context, zone string) ([]RRSet, error) {
	records, err := c.listRecords(ctx, zone)
	if err != nil {
		return nil, err
	}
	return groupRecords(zone, records), nil
}

func (c *Cloudflare) GetRRSet(ctx context.Context, zone, subname, rtype string) (*RRSet, error) {
	sets, err := c.GetRRSets(ctx, zone)
	if err != nil {
		return nil, err
	}
	want := RRKey{Subname: subname, Type: strings.ToUpper(rtype)}
	for i := range sets {
		if sets[i].Key() == want {
			return &sets[i], nil
		}
	}
	return nil, platform.ErrNotFound
}

func (c *Cloudflare) PutRRSet(ctx context.Context, zone string, rr RRSet) error {
	id, err := c.zoneID(ctx, zone)
	if err != nil {
		return err
	}
	if err := c.deleteKey(ctx, id, zone, rr.Subname, rr.Type); err != nil {
		return err
	}
	name := absoluteName(zone, rr.Subname)
	for _, value := range rr.Records {
		payload, _ := json.Marshal(cfRecord{
			Type:    strings.ToUpper(rr.Type),
			Name:    name,
			Content: value,
			TTL:     rr.TTL,
			Proxied: rr.Proxied,
		})
		if err := c.do(ctx, http.MethodPost, "/zones/"+id+"/dns_records", payload, nil); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cloudflare) DeleteRRSet(ctx context.Context, zone, subname, rtype string) error {
	id, err := c.zoneID(ctx, zone)
	if errors.Is(err, platform.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return c.deleteKey(ctx, id, zone, subname, rtype)
}

func (c *Cloudflare) BulkUpdateRRSets(ctx context.Context, zone string, rrsets []RRSet) error {
	for _, rr := range rrsets {
		if len(rr.Records) == 0 {
			if err := c.DeleteRRSet(ctx, zone, rr.Subname, rr.Type); err != nil {
				return err
			}
			continue
		}
		if err := c.PutRRSet(ctx, zone, rr); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cloudflare) AddNSDelegation(ctx context.Context, parentZone, childLabel string, nameServers []string) error {
	return c.PutRRSet(ctx, parentZone, RRSet{
		Subname: childLabel,
		Type:    "NS",
		TTL:     3600,
		Records: nameServers,
	})
}

func (c *Cloudflare) RemoveNSDelegation(ctx context.Context, parentZone, childLabel string) error {
	return c.DeleteRRSet(ctx, parentZone, childLabel, "NS")
}

// deleteKey removes every record sharing one (subname, type) key.
func (c *Cloudflare) deleteKey(ctx context.Context, zoneID, zone, subname, rtype string) error {
	name := absoluteName(zone, subname)
	path := fmt.Sprintf("/zones/%s/dns_records?name=%s&type=%s",
		zoneID, url.QueryEscape(name), url.QueryEscape(strings.ToUpper(rtype)))
	var records []cfRecord
	if err := c.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			return nil
		}
		return err
	}
	for _, rec := range records {
		err := c.do(ctx, http.MethodDelete, "/zones/"+zoneID+"/dns_records/"+rec.ID, nil, nil)
		if err != nil && !errors.Is(err, platform.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (c *Cloudflare) listRecords(ctx context.Context, zone string) ([]cfRecord, error) {
	id, err := c.zoneID(ctx, zone)
	if err != nil {
		return nil, err
	}
	var records []cfRecord
	if err := c.do(ctx, http.MethodGet, "/zones/"+id+"/dns_records?per_page=500", nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Cloudflare) zoneID(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	id, ok := c.zoneIDs[name]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	var zones []cfZone
	if err := c.do(ctx, http.MethodGet, "/zones?name="+url.QueryEscape(name), nil, &zones); err != nil {
		return "", err
	}
	if len(zones) == 0 {
		return "", platform.ErrNotFound
	}
	c.mu.Lock()
	c.zoneIDs[name] = zones[0].ID
	c.mu.Unlock()
	return zones[0].ID, nil
}

// groupRecords folds the provider's flat record list into RRSets keyed by
// (subname, type).
func groupRecords(zone string, records []cfRecord) []RRSet {
	index := make(map[RRKey]int)
	var sets []RRSet
	for _, rec := range records {
		key := RRKey{Subname: relativeName(zone, rec.Name), Type: strings.ToUpper(rec.Type)}
		i, ok := index[key]
		if !ok {
			sets = append(sets, RRSet{
				Subname: key.Subname,
				Type:    key.Type,
				TTL:     rec.TTL,
				Proxied: rec.Proxied,
			})
			i = len(sets) - 1
			index[key] = i
		}
		sets[i].Records = append(sets[i].Records, rec.Content)
	}
	return sets
}

func absoluteName(zone, subname string) string {
	if subname == "" {
		return zone
	}
	return subname + "." + zone
}

func relativeName(zone, name string) string {
	name = strings.TrimSuffix(name, ".")
	zone = strings.TrimSuffix(zone, ".")
	if name == zone {
		return ""
	}
	return strings.TrimSuffix(name, "."+zone)
}

func (c *Cloudflare) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
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

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var envelope cfEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil || !envelope.Success {
		msg := ""
		if len(envelope.Errors) > 0 {
			msg = envelope.Errors[0].Message
		}
		status := resp.StatusCode
		// A 2xx with success=false (or an unparsable body) is still a failure.
		if status >= 200 && status <= 299 {
			status = 502
		}
		return providerErr(status, msg)
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return &platform.ProviderError{StatusCode: resp.StatusCode, Message: "malformed response: " + err.Error()}
		}
	}
	return nil
}
