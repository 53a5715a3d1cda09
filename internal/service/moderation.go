package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/0x3st/ainic/internal/model"
	"github.com/0x3st/ainic/internal/provider"
)

// SuspendDomain pulls the NS delegation so the subdomain stops resolving,
// keeping the child zone (and any shadow rows) intact for a later restore.
func (s *Service) SuspendDomain(ctx context.Context, actor string, d *model.Domain, reason, ip string) error {
	if s.cfg.DNS.ShadowRecords {
		// Snapshot the published state first so restore has something to
		// push back even if the rows had drifted.
		if current, err := s.ListRecords(ctx, d); err == nil {
			if err := s.db.ReplaceDomainRecords(d.ID, shadowRecords(d.ID, current), false); err != nil {
				log.Warnf("shadow snapshot for %s failed: %v", d.FQDN, err)
			}
		}
	}

	if err := s.dns.RemoveNSDelegation(ctx, s.cfg.DNS.ParentZone, d.Label); err != nil {
		return err
	}
	if err := s.db.SetDomainStatus(d.Label, model.StatusSuspended, reason); err != nil {
		return err
	}

	s.audit(model.AuditEntry{
		Username:  actor,
		Action:    "suspend_domain",
		Target:    d.FQDN,
		Detail:    fmt.Sprintf(`{"reason":%q}`, reason),
		IPAddress: ip,
	})
	return nil
}

// RestoreDomain re-adds the NS delegation and, on shadow-copy deployments,
// replays the saved RRSets to the provider.
func (s *Service) RestoreDomain(ctx context.Context, actor string, d *model.Domain, ip string) error {
	nameServers := d.NameServers
	if len(nameServers) == 0 {
		ns, err := s.dns.GetRRSet(ctx, d.FQDN, "", "NS")
		if err != nil {
			return err
		}
		nameServers = ns.Records
	}

	if err := s.dns.AddNSDelegation(ctx, s.cfg.DNS.ParentZone, d.Label, nameServers); err != nil {
		return err
	}

	if s.cfg.DNS.ShadowRecords {
		rows, err := s.db.ListDomainRecords(d.ID)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			payload := make([]provider.RRSet, 0, len(rows))
			for _, r := range rows {
				payload = append(payload, provider.RRSet{
					Subname: r.Subname,
					Type:    r.Type,
					TTL:     r.TTL,
					Records: r.Values,
					Proxied: r.Proxied,
				})
			}
			if err := s.dns.BulkUpdateRRSets(ctx, d.FQDN, payload); err != nil {
				return err
			}
			if err := s.db.MarkDomainRecordsSynced(d.ID, true); err != nil {
				log.Warnf("failed to mark records synced for %s: %v", d.FQDN, err)
			}
		}
	}

	if err := s.db.SetDomainStatus(d.Label, model.StatusActive, ""); err != nil {
		return err
	}

	s.audit(model.AuditEntry{
		Username:  actor,
		Action:    "restore_domain",
		Target:    d.FQDN,
		IPAddress: ip,
	})
	return nil
}

// ReviewDomain flags a domain for moderation without touching DNS. Owner
// record mutations are rejected while the domain is not active.
func (s *Service) ReviewDomain(actor string, d *model.Domain, reason, ip string) error {
	if err := s.db.SetDomainStatus(d.Label, model.StatusReview, reason); err != nil {
		return err
	}
	s.audit(model.AuditEntry{
		Username:  actor,
		Action:    "review_domain",
		Target:    d.FQDN,
		Detail:    fmt.Sprintf(`{"reason":%q}`, reason),
		IPAddress: ip,
	})
	return nil
}

// CleanupLabel repairs the orphan window: a crash between the delegation
// removal and the zone delete, or between row insert and zone create, can
// leave provider state with no matching row (or the reverse). Deprovision is
// idempotent at every step, so re-running it converges either way.
func (s *Service) CleanupLabel(ctx context.Context, actor, label, ip string) error {
	if err := s.Deprovision(ctx, label); err != nil {
		return err
	}
	if d, err := s.db.GetDomainByLabel(label); err == nil {
		if err := s.db.DeleteDomain(d.ID); err != nil {
			return err
		}
	}
	s.audit(model.AuditEntry{
		Username:  actor,
		Action:    "cleanup_label",
		Target:    label + "." + s.cfg.DNS.ParentZone,
		IPAddress: ip,
	})
	return nil
}
