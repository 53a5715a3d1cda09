package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/0x3st/ainic/internal/model"
	"github.com/0x3st/ainic/internal/validate"
)

// registration threads the intermediate results of the sequential
// registration steps explicitly, instead of an untyped shared bag.
type registration struct {
	owner string
	label string
	fqdn  string
	row   *model.Domain
	zone  *ProvisionResult
}

// RegisterDomain runs the full registration workflow: validate the label,
// claim it in the store (whose unique constraints are the only race guard),
// provision the delegated zone, then activate the row. Each failure undoes
// the steps already taken, best effort.
func (s *Service) RegisterDomain(ctx context.Context, owner, label, ip string) (*model.Domain, error) {
	reg := &registration{owner: owner, label: label, fqdn: s.childZone(label)}

	if err := validate.Label(reg.label, s.cfg.Limits.ReservedLabels); err != nil {
		return nil, err
	}

	row, err := s.db.CreateDomain(reg.label, reg.fqdn, reg.owner)
	if err != nil {
		return nil, err
	}
	reg.row = row

	zone, err := s.Provision(ctx, reg.label)
	if err != nil {
		// The row insert and zone creation are not one transaction; drop the
		// claimed row so the label is not stuck pending.
		if derr := s.db.DeleteDomain(reg.row.ID); derr != nil {
			log.Warnf("failed to release label %q after provisioning error: %v", reg.label, derr)
		}
		return nil, err
	}
	reg.zone = zone

	if err := s.db.ActivateDomain(reg.row.ID, reg.zone.NameServers); err != nil {
		if derr := s.Deprovision(ctx, reg.label); derr != nil {
			log.Warnf("failed to deprovision %q after activation error: %v", reg.fqdn, derr)
		}
		if derr := s.db.DeleteDomain(reg.row.ID); derr != nil {
			log.Warnf("failed to release label %q after activation error: %v", reg.label, derr)
		}
		return nil, err
	}

	reg.row.Status = model.StatusActive
	reg.row.NameServers = reg.zone.NameServers

	s.audit(model.AuditEntry{
		Username:  owner,
		Action:    "register_domain",
		Target:    reg.fqdn,
		Detail:    fmt.Sprintf(`{"label":%q}`, reg.label),
		IPAddress: ip,
	})
	return reg.row, nil
}

// RemoveDomain tears down the delegated zone and deletes the row. Used by
// both owner deletions and admin deletions.
func (s *Service) RemoveDomain(ctx context.Context, actor string, d *model.Domain, ip string) error {
	if err := s.Deprovision(ctx, d.Label); err != nil {
		return err
	}
	if err := s.db.DeleteDomain(d.ID); err != nil {
		return err
	}
	s.audit(model.AuditEntry{
		Username:  actor,
		Action:    "delete_domain",
		Target:    d.FQDN,
		IPAddress: ip,
	})
	return nil
}
