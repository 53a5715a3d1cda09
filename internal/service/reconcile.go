package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/0x3st/ainic/internal/model"
	"github.com/0x3st/ainic/internal/platform"
	"github.com/0x3st/ainic/internal/provider"
	"github.com/0x3st/ainic/internal/validate"
)

// ListRecords returns the domain's currently published, user-manageable
// RRSets. The provider is the source of truth; shadow rows are never read
// here.
func (s *Service) ListRecords(ctx context.Context, d *model.Domain) ([]provider.RRSet, error) {
	current, err := s.dns.GetRRSets(ctx, d.FQDN)
	if err != nil {
		return nil, err
	}
	var out []provider.RRSet
	for _, rr := range current {
		if validate.IsManagedType(rr.Type) {
			out = append(out, rr)
		}
	}
	return out, nil
}

// ReconcileRecords converges the zone to exactly the desired set in one bulk
// call. Every currently published allow-listed RRSet whose key is absent
// from the desired set is scheduled for deletion by emitting the same key
// with an empty record list; types outside the allow-list are never touched.
func (s *Service) ReconcileRecords(ctx context.Context, actor string, d *model.Domain, desired []provider.RRSet, ip string) (updated, deleted int, err error) {
	if len(desired) > s.cfg.Limits.MaxRecords {
		return 0, 0, platform.Invalid("records", "at most %d record sets are allowed per domain", s.cfg.Limits.MaxRecords)
	}
	if err := validate.Batch(batchEntries(desired)); err != nil {
		return 0, 0, err
	}

	current, err := s.dns.GetRRSets(ctx, d.FQDN)
	if err != nil {
		return 0, 0, err
	}

	// Desired CNAMEs must not collide with unmanaged types already at the
	// same name (the managed ones are being replaced wholesale anyway).
	if err := checkUnmanagedConflicts(desired, current); err != nil {
		return 0, 0, err
	}

	newKeys := make(map[provider.RRKey]bool, len(desired))
	payload := make([]provider.RRSet, 0, len(desired))
	for _, rr := range desired {
		rr.Type = strings.ToUpper(rr.Type)
		newKeys[rr.Key()] = true
		payload = append(payload, rr)
	}

	for _, rr := range current {
		if !validate.IsManagedType(rr.Type) || newKeys[rr.Key()] {
			continue
		}
		payload = append(payload, provider.RRSet{
			Subname: rr.Subname,
			Type:    strings.ToUpper(rr.Type),
			TTL:     rr.TTL,
			Records: []string{},
		})
		deleted++
	}
	updated = len(desired)

	if len(payload) > 0 {
		if err := s.dns.BulkUpdateRRSets(ctx, d.FQDN, payload); err != nil {
			return 0, 0, err
		}
	}

	if s.cfg.DNS.ShadowRecords {
		if err := s.db.ReplaceDomainRecords(d.ID, shadowRecords(d.ID, desired), true); err != nil {
			return 0, 0, fmt.Errorf("records published but shadow copy failed: %w", err)
		}
	}

	s.audit(model.AuditEntry{
		Username:  actor,
		Action:    "reconcile_records",
		Target:    d.FQDN,
		Detail:    fmt.Sprintf(`{"updated":%d,"deleted":%d}`, updated, deleted),
		IPAddress: ip,
	})
	return updated, deleted, nil
}

// PutRecord validates and upserts a single RRSet, checking CNAME exclusivity
// only against the other records at that specific subname.
func (s *Service) PutRecord(ctx context.Context, actor string, d *model.Domain, rr provider.RRSet, ip string) error {
	rr.Type = strings.ToUpper(rr.Type)
	if err := validate.RRSet(rr.Subname, rr.Type, rr.TTL, rr.Records); err != nil {
		return err
	}

	current, err := s.dns.GetRRSets(ctx, d.FQDN)
	if err != nil {
		return err
	}

	var typesAtSubname []string
	managed := 0
	exists := false
	for _, cur := range current {
		if validate.IsManagedType(cur.Type) {
			managed++
		}
		if cur.Key() == rr.Key() {
			exists = true
		}
		if cur.Subname == rr.Subname {
			typesAtSubname = append(typesAtSubname, cur.Type)
		}
	}
	if err := validate.CNAMEConflict(rr.Subname, rr.Type, typesAtSubname); err != nil {
		return err
	}
	if !exists && managed >= s.cfg.Limits.MaxRecords {
		return platform.Invalid("records", "at most %d record sets are allowed per domain", s.cfg.Limits.MaxRecords)
	}

	if err := s.dns.PutRRSet(ctx, d.FQDN, rr); err != nil {
		return err
	}

	if s.cfg.DNS.ShadowRecords {
		if err := s.db.UpsertDomainRecord(model.DNSRecord{
			DomainID: d.ID,
			Subname:  rr.Subname,
			Type:     rr.Type,
			TTL:      rr.TTL,
			Values:   rr.Records,
			Proxied:  rr.Proxied,
			Synced:   true,
		}); err != nil {
			return fmt.Errorf("record published but shadow copy failed: %w", err)
		}
	}

	s.audit(model.AuditEntry{
		Username:  actor,
		Action:    "put_record",
		Target:    d.FQDN,
		Detail:    fmt.Sprintf(`{"subname":%q,"type":%q,"updated":1}`, rr.Subname, rr.Type),
		IPAddress: ip,
	})
	return nil
}

// DeleteRecord removes one RRSet. An already-absent set is success.
func (s *Service) DeleteRecord(ctx context.Context, actor string, d *model.Domain, subname, rtype, ip string) error {
	rtype = strings.ToUpper(rtype)
	if !validate.IsManagedType(rtype) {
		return platform.Invalid("type", "%q is not an allowed record type", rtype)
	}
	if err := validate.Subname(subname); err != nil {
		return err
	}

	if err := s.dns.DeleteRRSet(ctx, d.FQDN, subname, rtype); err != nil && !errors.Is(err, platform.ErrNotFound) {
		return err
	}

	if s.cfg.DNS.ShadowRecords {
		// A stale row left here would be resurrected by a later restore.
		if err := s.db.DeleteDomainRecord(d.ID, subname, rtype); err != nil {
			return fmt.Errorf("record deleted but shadow copy failed: %w", err)
		}
	}

	s.audit(model.AuditEntry{
		Username:  actor,
		Action:    "delete_record",
		Target:    d.FQDN,
		Detail:    fmt.Sprintf(`{"subname":%q,"type":%q,"deleted":1}`, subname, rtype),
		IPAddress: ip,
	})
	return nil
}

func batchEntries(desired []provider.RRSet) []validate.BatchEntry {
	entries := make([]validate.BatchEntry, 0, len(desired))
	for _, rr := range desired {
		entries = append(entries, validate.BatchEntry{
			Subname: rr.Subname,
			Type:    rr.Type,
			TTL:     rr.TTL,
			Records: rr.Records,
		})
	}
	return entries
}

func checkUnmanagedConflicts(desired, current []provider.RRSet) error {
	unmanagedAt := make(map[string][]string)
	for _, cur := range current {
		if !validate.IsManagedType(cur.Type) {
			unmanagedAt[cur.Subname] = append(unmanagedAt[cur.Subname], cur.Type)
		}
	}
	for _, rr := range desired {
		if strings.ToUpper(rr.Type) != "CNAME" {
			continue
		}
		if err := validate.CNAMEConflict(rr.Subname, rr.Type, unmanagedAt[rr.Subname]); err != nil {
			return err
		}
	}
	return nil
}

func shadowRecords(domainID int64, desired []provider.RRSet) []model.DNSRecord {
	records := make([]model.DNSRecord, 0, len(desired))
	for _, rr := range desired {
		records = append(records, model.DNSRecord{
			DomainID: domainID,
			Subname:  rr.Subname,
			Type:     strings.ToUpper(rr.Type),
			TTL:      rr.TTL,
			Values:   rr.Records,
			Proxied:  rr.Proxied,
		})
	}
	return records
}
