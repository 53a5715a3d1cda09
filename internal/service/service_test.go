package service

import (
	"context"
	"fmt"

	"github.com/0x3st/ainic/internal/config"
	"github.com/0x3st/ainic/internal/model"
	"github.com/0x3st/ainic/internal/platform"
	"github.com/0x3st/ainic/internal/provider"
)

// fakeDNS is an in-memory provider recording every call it receives.
type fakeDNS struct {
	calls []string
	zones map[string]map[provider.RRKey]provider.RRSet
	bulks map[string][][]provider.RRSet

	failCreateZone error
	failDelegation error
	failGetRRSet   error
}

var defaultNS = []string{"ns1.ainic-dns.example.", "ns2.ainic-dns.example."}

func newFakeDNS(existingZones ...string) *fakeDNS {
	f := &fakeDNS{
		zones: make(map[string]map[provider.RRKey]provider.RRSet),
		bulks: make(map[string][][]provider.RRSet),
	}
	for _, z := range existingZones {
		f.addZone(z)
	}
	return f
}

func (f *fakeDNS) addZone(name string) {
	f.zones[name] = map[provider.RRKey]provider.RRSet{
		{Subname: "", Type: "NS"}: {Subname: "", Type: "NS", TTL: 3600, Records: defaultNS},
	}
}

func (f *fakeDNS) record(format string, args ...interface{}) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeDNS) CreateZone(_ context.Context, name string) error {
	f.record("create_zone %s", name)
	if f.failCreateZone != nil {
		return f.failCreateZone
	}
	if _, ok := f.zones[name]; ok {
		return platform.ErrConflict
	}
	f.addZone(name)
	return nil
}

func (f *fakeDNS) DeleteZone(_ context.Context, name string) error {
	f.record("delete_zone %s", name)
	delete(f.zones, name)
	return nil
}

func (f *fakeDNS) GetRRSets(_ context.Context, zone string) ([]provider.RRSet, error) {
	f.record("get_rrsets %s", zone)
	sets, ok := f.zones[zone]
	if !ok {
		return nil, platform.ErrNotFound
	}
	var out []provider.RRSet
	for _, rr := range sets {
		out = append(out, rr)
	}
	return out, nil
}

func (f *fakeDNS) GetRRSet(_ context.Context, zone, subname, rtype string) (*provider.RRSet, error) {
	f.record("get_rrset %s %s/%s", zone, subname, rtype)
	if f.failGetRRSet != nil {
		return nil, f.failGetRRSet
	}
	sets, ok := f.zones[zone]
	if !ok {
		return nil, platform.ErrNotFound
	}
	rr, ok := sets[provider.RRKey{Subname: subname, Type: rtype}]
	if !ok {
		return nil, platform.ErrNotFound
	}
	return &rr, nil
}

func (f *fakeDNS) PutRRSet(_ context.Context, zone string, rr provider.RRSet) error {
	f.record("put_rrset %s %s/%s", zone, rr.Subname, rr.Type)
	sets, ok := f.zones[zone]
	if !ok {
		return platform.ErrNotFound
	}
	sets[rr.Key()] = rr
	return nil
}

func (f *fakeDNS) DeleteRRSet(_ context.Context, zone, subname, rtype string) error {
	f.record("delete_rrset %s %s/%s", zone, subname, rtype)
	if sets, ok := f.zones[zone]; ok {
		delete(sets, provider.RRKey{Subname: subname, Type: rtype})
	}
	return nil
}

func (f *fakeDNS) BulkUpdateRRSets(_ context.Context, zone string, rrsets []provider.RRSet) error {
	f.record("bulk_update %s (%d)", zone, len(rrsets))
	sets, ok := f.zones[zone]
	if !ok {
		return platform.ErrNotFound
	}
	f.bulks[zone] = append(f.bulks[zone], rrsets)
	for _, rr := range rrsets {
		if len(rr.Records) == 0 {
			delete(sets, rr.Key())
			continue
		}
		sets[rr.Key()] = rr
	}
	return nil
}

func (f *fakeDNS) AddNSDelegation(ctx context.Context, parentZone, childLabel string, nameServers []string) error {
	f.record("add_delegation %s %s", parentZone, childLabel)
	if f.failDelegation != nil {
		return f.failDelegation
	}
	return f.PutRRSet(ctx, parentZone, provider.RRSet{
		Subname: childLabel, Type: "NS", TTL: 3600, Records: nameServers,
	})
}

func (f *fakeDNS) RemoveNSDelegation(ctx context.Context, parentZone, childLabel string) error {
	f.record("remove_delegation %s %s", parentZone, childLabel)
	return f.DeleteRRSet(ctx, parentZone, childLabel, "NS")
}

// fakeStore is an in-memory Store.
type fakeStore struct {
	nextID  int64
	domains map[string]*model.Domain
	records map[int64][]model.DNSRecord
	audits  []model.AuditEntry

	failDeleteRecord error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		domains: make(map[string]*model.Domain),
		records: make(map[int64][]model.DNSRecord),
	}
}

func (s *fakeStore) CreateDomain(label, fqdn, owner string) (*model.Domain, error) {
	if _, ok := s.domains[label]; ok {
		return nil, platform.ErrConflict
	}
	for _, d := range s.domains {
		if d.Owner == owner {
			return nil, platform.ErrConflict
		}
	}
	s.nextID++
	d := &model.Domain{ID: s.nextID, Label: label, FQDN: fqdn, Owner: owner, Status: model.StatusPending}
	s.domains[label] = d
	return d, nil
}

func (s *fakeStore) GetDomainByLabel(label string) (*model.Domain, error) {
	d, ok := s.domains[label]
	if !ok {
		return nil, platform.ErrNotFound
	}
	return d, nil
}

func (s *fakeStore) ActivateDomain(id int64, nameServers []string) error {
	for _, d := range s.domains {
		if d.ID == id {
			d.Status = model.StatusActive
			d.NameServers = nameServers
			return nil
		}
	}
	return platform.ErrNotFound
}

func (s *fakeStore) SetDomainStatus(label, status, reason string) error {
	d, ok := s.domains[label]
	if !ok {
		return platform.ErrNotFound
	}
	d.Status = status
	d.Reason = reason
	return nil
}

func (s *fakeStore) DeleteDomain(id int64) error {
	for label, d := range s.domains {
		if d.ID == id {
			delete(s.domains, label)
			return nil
		}
	}
	return nil
}

func (s *fakeStore) ReplaceDomainRecords(domainID int64, records []model.DNSRecord, synced bool) error {
	for i := range records {
		records[i].Synced = synced
	}
	s.records[domainID] = records
	return nil
}

func (s *fakeStore) UpsertDomainRecord(r model.DNSRecord) error {
	rows := s.records[r.DomainID]
	for i := range rows {
		if rows[i].Subname == r.Subname && rows[i].Type == r.Type {
			rows[i] = r
			return nil
		}
	}
	s.records[r.DomainID] = append(rows, r)
	return nil
}

func (s *fakeStore) DeleteDomainRecord(domainID int64, subname, rtype string) error {
	if s.failDeleteRecord != nil {
		return s.failDeleteRecord
	}
	rows := s.records[domainID]
	for i := range rows {
		if rows[i].Subname == subname && rows[i].Type == rtype {
			s.records[domainID] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *fakeStore) ListDomainRecords(domainID int64) ([]model.DNSRecord, error) {
	return s.records[domainID], nil
}

func (s *fakeStore) MarkDomainRecordsSynced(domainID int64, synced bool) error {
	rows := s.records[domainID]
	for i := range rows {
		rows[i].Synced = synced
	}
	return nil
}

func (s *fakeStore) LogAudit(entry model.AuditEntry) error {
	s.audits = append(s.audits, entry)
	return nil
}

func (s *fakeStore) lastAudit() *model.AuditEntry {
	if len(s.audits) == 0 {
		return nil
	}
	return &s.audits[len(s.audits)-1]
}

const testParent = "ainic.example"

func testConfig() *config.Config {
	return &config.Config{
		DNS: config.DNSConfig{
			ParentZone: testParent,
			Provider:   "desec",
		},
		Limits: config.LimitsConfig{
			MaxRecords:     8,
			ReservedLabels: []string{"www", "mail"},
		},
	}
}

func newTestService(dns *fakeDNS, store *fakeStore) *Service {
	return New(testConfig(), store, dns)
}
