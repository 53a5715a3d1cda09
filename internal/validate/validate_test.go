package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x3st/ainic/internal/platform"
)

func TestLabel(t *testing.T) {
	reserved := []string{"www", "mail"}

	valid := []string{"abc", "my-site", "a1b2c3", "site-42", "0ab"}
	for _, l := range valid {
		assert.NoError(t, Label(l, reserved), "label %q", l)
	}

	invalid := []string{
		"",
		"ab",           // too short
		"-abc",         // leading hyphen
		"abc-",         // trailing hyphen
		"Abc",          // uppercase
		"a_b.c",        // bad characters
		"www",          // reserved
		"with space",
	}
	for _, l := range invalid {
		err := Label(l, reserved)
		require.Error(t, err, "label %q", l)
		var vErr *platform.ValidationError
		assert.ErrorAs(t, err, &vErr, "label %q", l)
	}
}

func TestLabelIdempotent(t *testing.T) {
	// Re-validating yields the same verdict regardless of call order.
	for i := 0; i < 3; i++ {
		assert.NoError(t, Label("stable", nil))
		assert.Error(t, Label("-unstable", nil))
	}
}

func TestRecordContent(t *testing.T) {
	assert.NoError(t, Record("A", "93.184.216.34"))
	assert.Error(t, Record("A", "10.0.0.1"), "private range")
	assert.Error(t, Record("A", "127.0.0.1"), "loopback")
	assert.Error(t, Record("A", "169.254.1.1"), "link local")
	assert.Error(t, Record("A", "not-an-ip"))
	assert.Error(t, Record("A", "2001:db8::1"), "IPv6 in an A record")

	assert.NoError(t, Record("AAAA", "2606:2800:220:1::1946"))
	assert.Error(t, Record("AAAA", "93.184.216.34"))

	assert.NoError(t, Record("CNAME", "example.org."))
	assert.NoError(t, Record("CNAME", "host.example.org"))
	assert.Error(t, Record("CNAME", ""))
	assert.Error(t, Record("CNAME", "nodots"))

	assert.NoError(t, Record("TXT", "v=spf1 -all"))
	assert.Error(t, Record("TXT", ""))

	assert.Error(t, Record("MX", "10 mail.example.org."), "type outside the allow-list")
}

func TestRRSet(t *testing.T) {
	assert.NoError(t, RRSet("", "A", 3600, []string{"93.184.216.34"}))
	assert.NoError(t, RRSet("www", "CNAME", 3600, []string{"example.org."}))
	assert.NoError(t, RRSet("_dmarc", "TXT", 3600, []string{"v=DMARC1; p=none"}))

	assert.Error(t, RRSet("", "CNAME", 3600, []string{"example.org."}), "CNAME at apex")
	assert.Error(t, RRSet("www", "CNAME", 3600, []string{"a.example.org.", "b.example.org."}), "multi-value CNAME")
	assert.Error(t, RRSet("www", "A", 3600, nil), "empty records")
	assert.Error(t, RRSet("www", "A", 30, []string{"93.184.216.34"}), "TTL below minimum")
	assert.Error(t, RRSet("www", "A", 100000, []string{"93.184.216.34"}), "TTL above maximum")
	assert.Error(t, RRSet("bad name", "A", 3600, []string{"93.184.216.34"}), "bad subname")
	assert.Error(t, RRSet("www", "NS", 3600, []string{"ns1.example.org."}), "NS is not user-manageable")
}

func TestBatch(t *testing.T) {
	assert.NoError(t, Batch([]BatchEntry{
		{Subname: "", Type: "A", TTL: 3600, Records: []string{"93.184.216.34"}},
		{Subname: "www", Type: "CNAME", TTL: 3600, Records: []string{"example.org."}},
	}))

	err := Batch([]BatchEntry{
		{Subname: "www", Type: "CNAME", TTL: 3600, Records: []string{"example.org."}},
		{Subname: "www", Type: "TXT", TTL: 3600, Records: []string{"hello"}},
	})
	require.Error(t, err, "CNAME and TXT at the same subname")
	var vErr *platform.ValidationError
	assert.ErrorAs(t, err, &vErr)

	assert.Error(t, Batch([]BatchEntry{
		{Subname: "www", Type: "A", TTL: 3600, Records: []string{"93.184.216.34"}},
		{Subname: "www", Type: "A", TTL: 7200, Records: []string{"93.184.216.35"}},
	}), "duplicate key")
}

func TestCNAMEConflict(t *testing.T) {
	assert.NoError(t, CNAMEConflict("www", "A", []string{"A", "TXT"}))
	assert.NoError(t, CNAMEConflict("www", "CNAME", []string{"CNAME"}), "replacing itself")
	assert.Error(t, CNAMEConflict("www", "CNAME", []string{"A"}))
	assert.Error(t, CNAMEConflict("www", "TXT", []string{"CNAME"}))
}

func TestIsManagedType(t *testing.T) {
	assert.True(t, IsManagedType("A"))
	assert.True(t, IsManagedType("cname"))
	assert.False(t, IsManagedType("NS"))
	assert.False(t, IsManagedType("SOA"))
}
