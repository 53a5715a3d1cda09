package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x3st/ainic/internal/platform"
)

// cfFake is an in-memory zone/record store behind the envelope-wrapped API
// surface the Cloudflare client speaks.
type cfFake struct {
	mu      sync.Mutex
	nextID  int
	zones   map[string]string     // name -> zone ID
	records map[string][]cfRecord // zone ID -> flat records
	lookups int                   // GET /zones?name= calls
}

func newCFServer(t *testing.T) (*httptest.Server, *cfFake) {
	t.Helper()
	f := &cfFake{zones: make(map[string]string), records: make(map[string][]cfRecord)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /zones", f.createZone)
	mux.HandleFunc("GET /zones", f.listZones)
	mux.HandleFunc("DELETE /zones/{id}", f.deleteZone)
	mux.HandleFunc("GET /zones/{id}/dns_records", f.listRecords)
	mux.HandleFunc("POST /zones/{id}/dns_records", f.createRecord)
	mux.HandleFunc("DELETE /zones/{id}/dns_records/{rid}", f.deleteRecord)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, f
}

func (f *cfFake) respond(w http.ResponseWriter, result interface{}) {
	raw, _ := json.Marshal(result)
	_ = json.NewEncoder(w).Encode(cfEnvelope{Success: true, Result: raw})
}

func (f *cfFake) createZone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	f.nextID++
	id := fmt.Sprintf("zone-%d", f.nextID)
	f.zones[req.Name] = id
	f.mu.Unlock()
	f.respond(w, cfZone{ID: id, Name: req.Name})
}

func (f *cfFake) listZones(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	f.mu.Lock()
	f.lookups++
	id, ok := f.zones[name]
	f.mu.Unlock()
	if !ok {
		f.respond(w, []cfZone{})
		return
	}
	f.respond(w, []cfZone{{ID: id, Name: name}})
}

func (f *cfFake) deleteZone(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	for name, zid := range f.zones {
		if zid == id {
			delete(f.zones, name)
		}
	}
	delete(f.records, id)
	f.mu.Unlock()
	f.respond(w, nil)
}

func (f *cfFake) listRecords(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	name := r.URL.Query().Get("name")
	rtype := r.URL.Query().Get("type")

	f.mu.Lock()
	defer f.mu.Unlock()
	out := []cfRecord{}
	for _, rec := range f.records[id] {
		if name != "" && rec.Name != name {
			continue
		}
		if rtype != "" && rec.Type != rtype {
			continue
		}
		out = append(out, rec)
	}
	f.respond(w, out)
}

func (f *cfFake) createRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var rec cfRecord
	_ = json.NewDecoder(r.Body).Decode(&rec)

	f.mu.Lock()
	f.nextID++
	rec.ID = fmt.Sprintf("rec-%d", f.nextID)
	f.records[id] = append(f.records[id], rec)
	f.mu.Unlock()
	f.respond(w, rec)
}

func (f *cfFake) deleteRecord(w http.ResponseWriter, r *http.Request) {
	id, rid := r.PathValue("id"), r.PathValue("rid")
	f.mu.Lock()
	recs := f.records[id]
	for i, rec := range recs {
		if rec.ID == rid {
			f.records[id] = append(recs[:i], recs[i+1:]...)
			break
		}
	}
	f.mu.Unlock()
	f.respond(w, nil)
}

const cfZoneName = "blog.ainic.example"

func TestCloudflarePutRRSetCreatesPerValueRecords(t *testing.T) {
	srv, fake := newCFServer(t)
	c := NewCloudflare(srv.URL, "tok", "acct")
	require.NoError(t, c.CreateZone(context.Background(), cfZoneName))

	err := c.PutRRSet(context.Background(), cfZoneName, RRSet{
		Subname: "www", Type: "A", TTL: 300,
		Records: []string{"192.0.2.1", "192.0.2.2"},
		Proxied: true,
	})
	require.NoError(t, err)

	id := fake.zones[cfZoneName]
	require.Len(t, fake.records[id], 2, "one flat record per value")
	for _, rec := range fake.records[id] {
		assert.Equal(t, "www."+cfZoneName, rec.Name)
		assert.Equal(t, "A", rec.Type)
		assert.True(t, rec.Proxied)
	}

	// Reading back folds the flat records into one RRSet.
	rr, err := c.GetRRSet(context.Background(), cfZoneName, "www", "A")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"192.0.2.1", "192.0.2.2"}, rr.Records)
	assert.True(t, rr.Proxied)
}

func TestCloudflarePutRRSetReplacesExistingKey(t *testing.T) {
	srv, fake := newCFServer(t)
	c := NewCloudflare(srv.URL, "tok", "acct")
	require.NoError(t, c.CreateZone(context.Background(), cfZoneName))

	rr := RRSet{Subname: "www", Type: "A", TTL: 300, Records: []string{"192.0.2.1"}}
	require.NoError(t, c.PutRRSet(context.Background(), cfZoneName, rr))
	rr.Records = []string{"192.0.2.9"}
	require.NoError(t, c.PutRRSet(context.Background(), cfZoneName, rr))

	id := fake.zones[cfZoneName]
	require.Len(t, fake.records[id], 1, "the previous records for the key must be gone")
	assert.Equal(t, "192.0.2.9", fake.records[id][0].Content)
}

func TestCloudflareBulkUpdateEmulation(t *testing.T) {
	srv, fake := newCFServer(t)
	c := NewCloudflare(srv.URL, "tok", "acct")
	require.NoError(t, c.CreateZone(context.Background(), cfZoneName))
	require.NoError(t, c.PutRRSet(context.Background(), cfZoneName, RRSet{
		Subname: "old", Type: "TXT", TTL: 300, Records: []string{`"stale"`},
	}))

	// One upsert plus one deletion entry (empty record list), like the
	// reconciler emits.
	err := c.BulkUpdateRRSets(context.Background(), cfZoneName, []RRSet{
		{Subname: "", Type: "A", TTL: 300, Records: []string{"192.0.2.1"}},
		{Subname: "old", Type: "TXT", TTL: 300, Records: []string{}},
	})
	require.NoError(t, err)

	sets, err := c.GetRRSets(context.Background(), cfZoneName)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, RRKey{Subname: "", Type: "A"}, sets[0].Key(), "apex name folds back to the empty subname")
	assert.Equal(t, []string{"192.0.2.1"}, sets[0].Records)

	id := fake.zones[cfZoneName]
	for _, rec := range fake.records[id] {
		assert.NotEqual(t, "TXT", rec.Type, "deletion entry must remove the stale key")
	}
}

func TestCloudflareZoneIDLookupIsCached(t *testing.T) {
	srv, fake := newCFServer(t)
	c := NewCloudflare(srv.URL, "tok", "acct")
	require.NoError(t, c.CreateZone(context.Background(), cfZoneName))

	// The ID learned at zone creation is reused without a lookup.
	require.NoError(t, c.PutRRSet(context.Background(), cfZoneName, RRSet{
		Subname: "www", Type: "A", TTL: 300, Records: []string{"192.0.2.1"},
	}))
	assert.Equal(t, 0, fake.lookups)

	// A fresh client resolves the ID once and caches it.
	c2 := NewCloudflare(srv.URL, "tok", "acct")
	_, err := c2.GetRRSets(context.Background(), cfZoneName)
	require.NoError(t, err)
	_, err = c2.GetRRSets(context.Background(), cfZoneName)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.lookups)
}

func TestCloudflareDeleteAbsentZoneIsSuccess(t *testing.T) {
	srv, _ := newCFServer(t)
	c := NewCloudflare(srv.URL, "tok", "acct")

	assert.NoError(t, c.DeleteZone(context.Background(), "ghost.ainic.example"))
	assert.NoError(t, c.DeleteRRSet(context.Background(), "ghost.ainic.example", "www", "A"))
}

func TestCloudflareEnvelopeFailureMapsToBadGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// HTTP 200, but the envelope reports failure.
		io.WriteString(w, `{"success":false,"errors":[{"code":1003,"message":"Invalid zone identifier"}]}`)
	}))
	t.Cleanup(srv.Close)
	c := NewCloudflare(srv.URL, "tok", "acct")

	err := c.CreateZone(context.Background(), cfZoneName)
	var perr *platform.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 502, perr.StatusCode)
	assert.Equal(t, "Invalid zone identifier", perr.Message)
}

func TestCloudflareGroupRecords(t *testing.T) {
	sets := groupRecords(cfZoneName, []cfRecord{
		{Type: "A", Name: "www." + cfZoneName, Content: "192.0.2.1", TTL: 300},
		{Type: "A", Name: "www." + cfZoneName, Content: "192.0.2.2", TTL: 300},
		{Type: "TXT", Name: cfZoneName, Content: `"v=spf1 -all"`, TTL: 3600},
	})
	require.Len(t, sets, 2)

	byKey := make(map[RRKey]RRSet)
	for _, s := range sets {
		byKey[s.Key()] = s
	}
	a := byKey[RRKey{Subname: "www", Type: "A"}]
	assert.ElementsMatch(t, []string{"192.0.2.1", "192.0.2.2"}, a.Records)
	txt := byKey[RRKey{Subname: "", Type: "TXT"}]
	assert.Equal(t, []string{`"v=spf1 -all"`}, txt.Records)
}

func TestRelativeName(t *testing.T) {
	assert.Equal(t, "", relativeName(cfZoneName, cfZoneName))
	assert.Equal(t, "", relativeName(cfZoneName, cfZoneName+"."))
	assert.Equal(t, "www", relativeName(cfZoneName, "www."+cfZoneName))
	assert.Equal(t, "a.b", relativeName(cfZoneName, "a.b."+cfZoneName+"."))
}
