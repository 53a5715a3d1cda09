package service

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/0x3st/ainic/internal/platform"
)

// ProvisionResult is what a successful zone creation hands back to the
// registration flow.
type ProvisionResult struct {
	FQDN        string
	NameServers []string
}

// Provision creates the delegated child zone plus the NS glue in the parent,
// as one logical unit. No provider transaction spans two zones, so a failure
// after zone creation triggers a compensating zone delete before the error
// is returned.
func (s *Service) Provision(ctx context.Context, label string) (*ProvisionResult, error) {
	child := s.childZone(label)

	if err := s.dns.CreateZone(ctx, child); err != nil {
		return nil, err
	}

	ns, err := s.dns.GetRRSet(ctx, child, "", "NS")
	if err != nil {
		return nil, s.compensateZone(ctx, child, err)
	}

	if err := s.dns.AddNSDelegation(ctx, s.cfg.DNS.ParentZone, label, ns.Records); err != nil {
		return nil, s.compensateZone(ctx, child, err)
	}

	return &ProvisionResult{FQDN: child, NameServers: ns.Records}, nil
}

// compensateZone best-effort deletes a just-created zone after a later step
// failed. The primary error is always the one returned.
func (s *Service) compensateZone(ctx context.Context, child string, primary error) error {
	if derr := s.dns.DeleteZone(ctx, child); derr != nil {
		log.Warnf("compensating zone delete for %s failed: %v", child, derr)
		return &platform.PartialFailure{Primary: primary, Compensation: derr}
	}
	return primary
}

// Deprovision removes the delegation first, then the child zone. Absent
// state at either step is success, so re-running it cleans up a crash that
// left a delegation pointing at a deleted zone.
func (s *Service) Deprovision(ctx context.Context, label string) error {
	if err := s.dns.RemoveNSDelegation(ctx, s.cfg.DNS.ParentZone, label); err != nil && !errors.Is(err, platform.ErrNotFound) {
		return err
	}
	if err := s.dns.DeleteZone(ctx, s.childZone(label)); err != nil && !errors.Is(err, platform.ErrNotFound) {
		return err
	}
	return nil
}
