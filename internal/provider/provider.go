// Package provider holds the typed clients for the upstream DNS APIs. One
// backend is active per deployment; all of them speak the same Client
// interface so provisioning and reconciliation do not care which.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/0x3st/ainic/internal/platform"
)

// RRSet is the unit of DNS state a provider manages: all records sharing a
// (subname, type) pair. An empty Records slice is the deletion signal on
// bulk updates. Proxied is honored only by CDN-style backends.
type RRSet struct {
	Subname string   `json:"subname"`
	Type    string   `json:"type"`
	TTL     int      `json:"ttl"`
	Records []string `json:"records"`
	Proxied bool     `json:"proxied,omitempty"`
}

// Key returns the identifying (subname, type) pair, type upper-cased.
func (r RRSet) Key() RRKey {
	return RRKey{Subname: r.Subname, Type: strings.ToUpper(r.Type)}
}

type RRKey struct {
	Subname string
	Type    string
}

// Client is the operation surface the rest of the platform depends on.
//
// Error contract: uniqueness violations come back as platform.ErrConflict,
// absent zones/records as platform.ErrNotFound, anything else as a
// *platform.ProviderError carrying the upstream HTTP status. DeleteZone and
// DeleteRRSet are idempotent: an upstream 404 is success, not an error.
type Client interface {
	// CreateZone creates an authoritative zone named by FQDN.
	CreateZone(ctx context.Context, name string) error
	// DeleteZone removes a zone and everything in it.
	DeleteZone(ctx context.Context, name string) error

	// GetRRSets returns the zone's full current state.
	GetRRSets(ctx context.Context, zone string) ([]RRSet, error)
	// GetRRSet returns one RRSet; empty subname addresses the apex.
	GetRRSet(ctx context.Context, zone, subname, rtype string) (*RRSet, error)
	// PutRRSet idempotently upserts one RRSet.
	PutRRSet(ctx context.Context, zone string, rr RRSet) error
	// DeleteRRSet removes one RRSet.
	DeleteRRSet(ctx context.Context, zone, subname, rtype string) error
	// BulkUpdateRRSets applies upserts and deletions (empty Records) in a
	// single batch call.
	BulkUpdateRRSets(ctx context.Context, zone string, rrsets []RRSet) error

	// AddNSDelegation writes the NS RRSet for childLabel in the parent zone.
	AddNSDelegation(ctx context.Context, parentZone, childLabel string, nameServers []string) error
	// RemoveNSDelegation deletes that NS RRSet; absent is success.
	RemoveNSDelegation(ctx context.Context, parentZone, childLabel string) error
}

// providerErr builds the normalized error for a non-2xx upstream response.
func providerErr(status int, message string) error {
	switch status {
	case 409:
		return wrapSentinel(platform.ErrConflict, message)
	case 404:
		return wrapSentinel(platform.ErrNotFound, message)
	}
	if message == "" {
		message = "upstream request failed"
	}
	return &platform.ProviderError{StatusCode: status, Message: message}
}

// wrapSentinel keeps the sentinel matchable through errors.Is while carrying
// the upstream detail text verbatim.
func wrapSentinel(sentinel error, detail string) error {
	if detail == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, detail)
}
