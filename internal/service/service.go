// Package service composes the provider client and the relational store into
// the platform's operations: registration, provisioning, reconciliation and
// moderation. All provider calls within one operation are strictly
// sequential; uniqueness is guarded by the store's constraints, not by
// in-process locking.
package service

import (
	log "github.com/sirupsen/logrus"

	"github.com/0x3st/ainic/internal/config"
	"github.com/0x3st/ainic/internal/model"
	"github.com/0x3st/ainic/internal/provider"
)

// Store is the slice of the relational store the services need. Satisfied by
// *database.DB.
type Store interface {
	CreateDomain(label, fqdn, owner string) (*model.Domain, error)
	GetDomainByLabel(label string) (*model.Domain, error)
	ActivateDomain(id int64, nameServers []string) error
	SetDomainStatus(label, status, reason string) error
	DeleteDomain(id int64) error

	ReplaceDomainRecords(domainID int64, records []model.DNSRecord, synced bool) error
	UpsertDomainRecord(r model.DNSRecord) error
	DeleteDomainRecord(domainID int64, subname, rtype string) error
	ListDomainRecords(domainID int64) ([]model.DNSRecord, error)
	MarkDomainRecordsSynced(domainID int64, synced bool) error

	LogAudit(entry model.AuditEntry) error
}

type Service struct {
	cfg *config.Config
	db  Store
	dns provider.Client
}

func New(cfg *config.Config, db Store, dns provider.Client) *Service {
	return &Service{cfg: cfg, db: db, dns: dns}
}

// ParentZone returns the zone subdomains are delegated under.
func (s *Service) ParentZone() string {
	return s.cfg.DNS.ParentZone
}

func (s *Service) childZone(label string) string {
	return label + "." + s.cfg.DNS.ParentZone
}

// audit appends one log row. Failures are logged and never fail the parent
// operation.
func (s *Service) audit(entry model.AuditEntry) {
	if err := s.db.LogAudit(entry); err != nil {
		log.Warnf("audit write failed (action=%s target=%s): %v", entry.Action, entry.Target, err)
	}
}
