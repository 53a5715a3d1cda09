package model

import "time"

// Domain lifecycle statuses.
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusReview    = "review"
)

type Domain struct {
	ID          int64     `json:"-"`
	Label       string    `json:"label"`
	FQDN        string    `json:"fqdn"`
	Owner       string    `json:"owner"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	NameServers []string  `json:"name_servers,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// DNSRecord is a local shadow copy of one RRSet, persisted only when the
// active provider requires it (CDN-style backends, see config.DNS).
type DNSRecord struct {
	DomainID  int64
	Subname   string
	Type      string
	TTL       int
	Values    []string
	Proxied   bool
	Synced    bool
	UpdatedAt time.Time
}

type User struct {
	ID         int64
	Username   string
	PassHash   string
	Role       string
	Active     bool
	AuthSource string // "local" or "ldap"
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type AuditEntry struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Target    string    `json:"target,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Abuse report statuses and resolutions.
const (
	ReportOpen     = "open"
	ReportResolved = "resolved"

	ResolveDismiss = "dismiss"
	ResolveReview  = "review"
)

type AbuseReport struct {
	ID         string     `json:"id"`
	TargetFQDN string     `json:"target_fqdn"`
	Reason     string     `json:"reason"`
	ReporterIP string     `json:"-"`
	Status     string     `json:"status"`
	Resolution string     `json:"resolution,omitempty"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}
