// Package validate holds the pure input checks performed before any network
// or database call: label syntax, record content, TTL ranges and CNAME
// exclusivity. Every function is side-effect free and returns nil or a
// *platform.ValidationError.
package validate

import (
	"net/netip"
	"regexp"
	"strings"

	"github.com/miekg/dns"

	"github.com/0x3st/ainic/internal/platform"
)

const (
	MinLabelLength = 3
	MaxLabelLength = 63

	MinTTL = 60
	MaxTTL = 86400

	maxTXTLength = 4096
)

// managedTypes is the allow-list of record types users may manage. Anything
// outside it (NS, SOA, DNSSEC types) is never touched by reconciliation.
var managedTypes = map[string]bool{
	"A":     true,
	"AAAA":  true,
	"CNAME": true,
	"TXT":   true,
}

var labelRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

var subnameLabelRe = regexp.MustCompile(`^[a-z0-9_]([a-z0-9_-]*[a-z0-9_])?$`)

// IsManagedType reports whether a record type is on the user allow-list.
func IsManagedType(t string) bool {
	return managedTypes[strings.ToUpper(t)]
}

// ManagedTypes returns the allow-list, for error messages.
func ManagedTypes() []string {
	return []string{"A", "AAAA", "CNAME", "TXT"}
}

// Label checks a subdomain label: 3-63 chars, lowercase alphanumeric plus
// hyphen, no leading or trailing hyphen, not reserved.
func Label(label string, reserved []string) error {
	if len(label) < MinLabelLength {
		return platform.Invalid("label", "must be at least %d characters", MinLabelLength)
	}
	if len(label) > MaxLabelLength {
		return platform.Invalid("label", "must be at most %d characters", MaxLabelLength)
	}
	if !labelRe.MatchString(label) {
		return platform.Invalid("label", "only lowercase letters, digits and hyphens are allowed, with no leading or trailing hyphen")
	}
	for _, r := range reserved {
		if label == r {
			return platform.Invalid("label", "%q is reserved", label)
		}
	}
	return nil
}

// Subname checks the relative name of an RRSet. Empty means the zone apex.
// Underscores are allowed for service records like _dmarc.
func Subname(subname string) error {
	if subname == "" {
		return nil
	}
	if len(subname) > 100 {
		return platform.Invalid("subname", "too long")
	}
	for _, part := range strings.Split(subname, ".") {
		if part == "" || len(part) > MaxLabelLength || !subnameLabelRe.MatchString(part) {
			return platform.Invalid("subname", "%q is not a valid subname", subname)
		}
	}
	return nil
}

// TTL checks the time-to-live range.
func TTL(ttl int) error {
	if ttl < MinTTL || ttl > MaxTTL {
		return platform.Invalid("ttl", "must be between %d and %d seconds", MinTTL, MaxTTL)
	}
	return nil
}

// Record checks one record value for legality under its type. A records must
// be public IPv4 literals, AAAA valid IPv6, CNAME a hostname, TXT any
// non-empty bounded string.
func Record(rtype, value string) error {
	switch strings.ToUpper(rtype) {
	case "A":
		addr, err := netip.ParseAddr(value)
		if err != nil || !addr.Is4() {
			return platform.Invalid("records", "%q is not a valid IPv4 address", value)
		}
		if addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsMulticast() || addr.IsUnspecified() {
			return platform.Invalid("records", "%q is in a private or reserved range", value)
		}
	case "AAAA":
		addr, err := netip.ParseAddr(value)
		if err != nil || !addr.Is6() || addr.Is4In6() {
			return platform.Invalid("records", "%q is not a valid IPv6 address", value)
		}
	case "CNAME", "NS":
		if value == "" {
			return platform.Invalid("records", "hostname must not be empty")
		}
		if _, ok := dns.IsDomainName(value); !ok || !strings.Contains(strings.Trim(value, "."), ".") {
			return platform.Invalid("records", "%q is not a valid hostname", value)
		}
	case "TXT":
		if value == "" {
			return platform.Invalid("records", "TXT value must not be empty")
		}
		if len(value) > maxTXTLength {
			return platform.Invalid("records", "TXT value exceeds %d characters", maxTXTLength)
		}
	default:
		return platform.Invalid("type", "%q is not an allowed record type (allowed: %s)", rtype, strings.Join(ManagedTypes(), ", "))
	}
	return nil
}

// RRSet checks one desired RRSet in full: type allow-listed, subname and TTL
// legal, at least one record, every record value legal, no CNAME at the apex
// and no multi-value CNAME.
func RRSet(subname, rtype string, ttl int, records []string) error {
	t := strings.ToUpper(rtype)
	if !managedTypes[t] {
		return platform.Invalid("type", "%q is not an allowed record type (allowed: %s)", rtype, strings.Join(ManagedTypes(), ", "))
	}
	if err := Subname(subname); err != nil {
		return err
	}
	if err := TTL(ttl); err != nil {
		return err
	}
	if len(records) == 0 {
		return platform.Invalid("records", "at least one record value is required")
	}
	if t == "CNAME" {
		if subname == "" {
			return platform.Invalid("records", "CNAME is not allowed at the zone apex")
		}
		if len(records) > 1 {
			return platform.Invalid("records", "a CNAME set can hold only one value")
		}
	}
	for _, v := range records {
		if err := Record(t, v); err != nil {
			return err
		}
	}
	return nil
}

// rrKey identifies an RRSet within a batch.
type rrKey struct {
	Subname string
	Type    string
}

// BatchEntry is the minimal view of a desired RRSet a batch check needs.
type BatchEntry struct {
	Subname string
	Type    string
	TTL     int
	Records []string
}

// Batch validates a desired full set: every entry legal, no duplicate
// (subname, type) keys, and CNAME exclusivity across the batch — a CNAME at a
// subname excludes every other type at that same subname.
func Batch(desired []BatchEntry) error {
	seen := make(map[rrKey]bool, len(desired))
	cname := make(map[string]bool)
	other := make(map[string]bool)

	for _, e := range desired {
		if err := RRSet(e.Subname, e.Type, e.TTL, e.Records); err != nil {
			return err
		}
		t := strings.ToUpper(e.Type)
		k := rrKey{Subname: e.Subname, Type: t}
		if seen[k] {
			return platform.Invalid("records", "duplicate entry for %q/%s", displaySubname(e.Subname), t)
		}
		seen[k] = true
		if t == "CNAME" {
			cname[e.Subname] = true
		} else {
			other[e.Subname] = true
		}
	}

	for s := range cname {
		if other[s] {
			return platform.Invalid("records", "CNAME at %q conflicts with other record types at the same name", displaySubname(s))
		}
	}
	return nil
}

// CNAMEConflict checks a single candidate against the types already present
// at its subname, for the single-record upsert path.
func CNAMEConflict(subname, rtype string, existingTypes []string) error {
	t := strings.ToUpper(rtype)
	for _, et := range existingTypes {
		et = strings.ToUpper(et)
		if et == t {
			continue // same key, it will be replaced
		}
		if t == "CNAME" || et == "CNAME" {
			return platform.Invalid("records", "CNAME at %q conflicts with existing %s records at the same name", displaySubname(subname), et)
		}
	}
	return nil
}

func displaySubname(s string) string {
	if s == "" {
		return "@"
	}
	return s
}
