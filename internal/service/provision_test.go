package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x3st/ainic/internal/model"
	"github.com/0x3st/ainic/internal/platform"
)

func TestProvisionCreatesZoneAndDelegation(t *testing.T) {
	dns := newFakeDNS(testParent)
	svc := newTestService(dns, newFakeStore())

	res, err := svc.Provision(context.Background(), "blog")
	require.NoError(t, err)
	assert.Equal(t, "blog.ainic.example", res.FQDN)
	assert.Equal(t, defaultNS, res.NameServers)

	_, ok := dns.zones["blog.ainic.example"]
	assert.True(t, ok, "child zone should exist")
	rr, err := dns.GetRRSet(context.Background(), testParent, "blog", "NS")
	require.NoError(t, err)
	assert.Equal(t, defaultNS, rr.Records)
}

func TestProvisionRollsBackZoneOnDelegationFailure(t *testing.T) {
	dns := newFakeDNS(testParent)
	dns.failDelegation = &platform.ProviderError{StatusCode: 502, Message: "upstream down"}
	svc := newTestService(dns, newFakeStore())

	_, err := svc.Provision(context.Background(), "blog")
	require.Error(t, err)

	var perr *platform.ProviderError
	assert.True(t, errors.As(err, &perr), "primary error must survive compensation")
	_, ok := dns.zones["blog.ainic.example"]
	assert.False(t, ok, "child zone must be deleted after failed delegation")
	assert.Contains(t, dns.calls, "delete_zone blog.ainic.example")
}

func TestDeprovisionIsIdempotent(t *testing.T) {
	dns := newFakeDNS(testParent)
	svc := newTestService(dns, newFakeStore())

	// Nothing was ever provisioned for this label.
	require.NoError(t, svc.Deprovision(context.Background(), "ghost"))
	// And running it twice is still fine.
	require.NoError(t, svc.Deprovision(context.Background(), "ghost"))
}

func TestRegisterDomainActivatesRow(t *testing.T) {
	dns := newFakeDNS(testParent)
	store := newFakeStore()
	svc := newTestService(dns, store)

	d, err := svc.RegisterDomain(context.Background(), "alice", "blog", "203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, d.Status)
	assert.Equal(t, "blog.ainic.example", d.FQDN)
	assert.Equal(t, defaultNS, d.NameServers)

	require.NotNil(t, store.lastAudit())
	assert.Equal(t, "register_domain", store.lastAudit().Action)
	assert.Equal(t, "203.0.113.9", store.lastAudit().IPAddress)
}

func TestRegisterDomainReleasesLabelOnProvisionFailure(t *testing.T) {
	dns := newFakeDNS(testParent)
	dns.failDelegation = &platform.ProviderError{StatusCode: 502, Message: "upstream down"}
	store := newFakeStore()
	svc := newTestService(dns, store)

	_, err := svc.RegisterDomain(context.Background(), "alice", "blog", "")
	require.Error(t, err)

	_, gerr := store.GetDomainByLabel("blog")
	assert.ErrorIs(t, gerr, platform.ErrNotFound, "failed registration must not leave the label claimed")
	_, ok := dns.zones["blog.ainic.example"]
	assert.False(t, ok)

	// The label is free again, so a retry after the outage succeeds.
	dns.failDelegation = nil
	_, err = svc.RegisterDomain(context.Background(), "alice", "blog", "")
	require.NoError(t, err)
}

func TestRegisterDomainRejectsReservedAndMalformedLabels(t *testing.T) {
	dns := newFakeDNS(testParent)
	svc := newTestService(dns, newFakeStore())

	for _, label := range []string{"www", "ab", "-bad", "Bad", "a b"} {
		_, err := svc.RegisterDomain(context.Background(), "alice", label, "")
		var verr *platform.ValidationError
		assert.True(t, errors.As(err, &verr), "label %q should be rejected", label)
	}
	assert.Empty(t, dns.calls, "invalid labels must never reach the provider")
}

func TestRegisterDomainDuplicateLabel(t *testing.T) {
	dns := newFakeDNS(testParent)
	store := newFakeStore()
	svc := newTestService(dns, store)

	_, err := svc.RegisterDomain(context.Background(), "alice", "blog", "")
	require.NoError(t, err)

	_, err = svc.RegisterDomain(context.Background(), "bob", "blog", "")
	assert.ErrorIs(t, err, platform.ErrConflict)
}

func TestRemoveDomainDeletesZoneAndRow(t *testing.T) {
	dns := newFakeDNS(testParent)
	store := newFakeStore()
	svc := newTestService(dns, store)

	d, err := svc.RegisterDomain(context.Background(), "alice", "blog", "")
	require.NoError(t, err)

	require.NoError(t, svc.RemoveDomain(context.Background(), "alice", d, ""))

	_, ok := dns.zones["blog.ainic.example"]
	assert.False(t, ok)
	_, err = dns.GetRRSet(context.Background(), testParent, "blog", "NS")
	assert.ErrorIs(t, err, platform.ErrNotFound, "delegation must be gone")
	_, err = store.GetDomainByLabel("blog")
	assert.ErrorIs(t, err, platform.ErrNotFound)
}
