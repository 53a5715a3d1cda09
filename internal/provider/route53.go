package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/google/uuid"

	"github.com/0x3st/ainic/internal/platform"
)

// Route53 adapts the AWS Route 53 API to the Client interface, for
// deployments whose parent zone is Route53-hosted. ChangeResourceRecordSets
// gives a genuinely atomic batch, so this backend needs no shadow copies.
type Route53 struct {
	client *route53.Client

	mu      sync.Mutex
	zoneIDs map[string]string
}

func NewRoute53(ctx context.Context, region, accessKeyID, secretAccessKey string) (*Route53, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Route53{
		client:  route53.NewFromConfig(awsCfg),
		zoneIDs: make(map[string]string),
	}, nil
}

func (c *Route53) CreateZone(ctx context.Context, name string) error {
	out, err := c.client.CreateHostedZone(ctx, &route53.CreateHostedZoneInput{
		Name:            aws.String(name),
		CallerReference: aws.String(uuid.NewString()),
	})
	if err != nil {
		var exists *types.HostedZoneAlreadyExists
		if errors.As(err, &exists) {
			return platform.ErrConflict
		}
		return awsErr(err)
	}
	c.mu.Lock()
	c.zoneIDs[canonical(name)] = extractZoneID(*out.HostedZone.Id)
	c.mu.Unlock()
	return nil
}

func (c *Route53) DeleteZone(ctx context.Context, name string) error {
	id, err := c.zoneID(ctx, name)
	if errors.Is(err, platform.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := c.client.DeleteHostedZone(ctx, &route53.DeleteHostedZoneInput{Id: aws.String(id)}); err != nil {
		var missing *types.NoSuchHostedZone
		if errors.As(err, &missing) {
			return nil
		}
		return awsErr(err)
	}
	c.mu.Lock()
	delete(c.zoneIDs, canonical(name))
	c.mu.Unlock()
	return nil
}

func (c *Route53) GetRRSets(ctx context.Context, zone string) ([]RRSet, error) {
	id, err := c.zoneID(ctx, zone)
	if err != nil {
		return nil, err
	}

	var sets []RRSet
	var nextName *string
	var nextType types.RRType

	for {
		input := &route53.ListResourceRecordSetsInput{HostedZoneId: aws.String(id)}
		if nextName != nil {
			input.StartRecordName = nextName
			input.StartRecordType = nextType
		}

		result, err := c.client.ListResourceRecordSets(ctx, input)
		if err != nil {
			return nil, awsErr(err)
		}

		for _, rrs := range result.ResourceRecordSets {
			if rrs.AliasTarget != nil {
				continue // alias records have no portable RRSet form
			}
			rr := RRSet{
				Subname: relativeName(zone, *rrs.Name),
				Type:    string(rrs.Type),
			}
			if rrs.TTL != nil {
				rr.TTL = int(*rrs.TTL)
			}
			for _, r := range rrs.ResourceRecords {
				rr.Records = append(rr.Records, unquoteTXT(string(rrs.Type), *r.Value))
			}
			sets = append(sets, rr)
		}

		if !result.IsTruncated {
			break
		}
		nextName = result.NextRecordName
		nextType = result.NextRecordType
	}
	return sets, nil
}

func (c *Route53) GetRRSet(ctx context.Context, zone, subname, rtype string) (*RRSet, error) {
	sets, err := c.GetRRSets(ctx, zone)
	if err != nil {
		return nil, err
	}
	want := RRKey{Subname: subname, Type: strings.ToUpper(rtype)}
	for i := range sets {
		if sets[i].Key() == want {
			return &sets[i], nil
		}
	}
	return nil, platform.ErrNotFound
}

func (c *Route53) PutRRSet(ctx context.Context, zone string, rr RRSet) error {
	if len(rr.Records) == 0 {
		return c.DeleteRRSet(ctx, zone, rr.Subname, rr.Type)
	}
	id, err := c.zoneID(ctx, zone)
	if err != nil {
		return err
	}
	return c.change(ctx, id, []types.Change{upsertChange(zone, rr)})
}

func (c *Route53) DeleteRRSet(ctx context.Context, zone, subname, rtype string) error {
	// Route 53 DELETE must match the existing set exactly, so read it first.
	current, err := c.GetRRSet(ctx, zone, subname, rtype)
	if errors.Is(err, platform.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	id, err := c.zoneID(ctx, zone)
	if err != nil {
		return err
	}
	return c.change(ctx, id, []types.Change{deleteChange(zone, *current)})
}

func (c *Route53) BulkUpdateRRSets(ctx context.Context, zone string, rrsets []RRSet) error {
	id, err := c.zoneID(ctx, zone)
	if err != nil {
		return err
	}

	var current []RRSet
	var changes []types.Change
	for _, rr := range rrsets {
		if len(rr.Records) > 0 {
			changes = append(changes, upsertChange(zone, rr))
			continue
		}
		// Deletion entries need the currently published values.
		if current == nil {
			if current, err = c.GetRRSets(ctx, zone); err != nil {
				return err
			}
		}
		for _, cur := range current {
			if cur.Key() == rr.Key() {
				changes = append(changes, deleteChange(zone, cur))
				break
			}
		}
	}
	if len(changes) == 0 {
		return nil
	}
	return c.change(ctx, id, changes)
}

func (c *Route53) AddNSDelegation(ctx context.Context, parentZone, childLabel string, nameServers []string) error {
	return c.PutRRSet(ctx, parentZone, RRSet{
		Subname: childLabel,
		Type:    "NS",
		TTL:     3600,
		Records: nameServers,
	})
}

func (c *Route53) RemoveNSDelegation(ctx context.Context, parentZone, childLabel string) error {
	return c.DeleteRRSet(ctx, parentZone, childLabel, "NS")
}

func (c *Route53) change(ctx context.Context, zoneID string, changes []types.Change) error {
	_, err := c.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &types.ChangeBatch{
			Comment: aws.String("Changed via ainic"),
			Changes: changes,
		},
	})
	if err != nil {
		return awsErr(err)
	}
	return nil
}

func (c *Route53) zoneID(ctx context.Context, name string) (string, error) {
	key := canonical(name)
	c.mu.Lock()
	id, ok := c.zoneIDs[key]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	result, err := c.client.ListHostedZonesByName(ctx, &route53.ListHostedZonesByNameInput{
		DNSName: aws.String(key),
	})
	if err != nil {
		return "", awsErr(err)
	}
	for _, z := range result.HostedZones {
		if canonical(*z.Name) == key {
			id := extractZoneID(*z.Id)
			c.mu.Lock()
			c.zoneIDs[key] = id
			c.mu.Unlock()
			return id, nil
		}
	}
	return "", platform.ErrNotFound
}

func upsertChange(zone string, rr RRSet) types.Change {
	var resourceRecords []types.ResourceRecord
	for _, v := range rr.Records {
		resourceRecords = append(resourceRecords, types.ResourceRecord{
			Value: aws.String(quoteTXT(rr.Type, v)),
		})
	}
	return types.Change{
		Action: types.ChangeActionUpsert,
		ResourceRecordSet: &types.ResourceRecordSet{
			Name:            aws.String(absoluteName(zone, rr.Subname)),
			Type:            types.RRType(strings.ToUpper(rr.Type)),
			TTL:             aws.Int64(int64(rr.TTL)),
			ResourceRecords: resourceRecords,
		},
	}
}

func deleteChange(zone string, rr RRSet) types.Change {
	change := upsertChange(zone, rr)
	change.Action = types.ChangeActionDelete
	return change
}

// quoteTXT wraps TXT values in the quotes Route 53 requires on the wire.
func quoteTXT(rtype, value string) string {
	if strings.ToUpper(rtype) != "TXT" || strings.HasPrefix(value, `"`) {
		return value
	}
	return `"` + value + `"`
}

func unquoteTXT(rtype, value string) string {
	if strings.ToUpper(rtype) != "TXT" {
		return value
	}
	return strings.Trim(value, `"`)
}

func canonical(name string) string {
	return strings.TrimSuffix(name, ".")
}

func extractZoneID(fullID string) string {
	parts := strings.Split(fullID, "/")
	return parts[len(parts)-1]
}

func awsErr(err error) error {
	return &platform.ProviderError{StatusCode: 502, Message: err.Error()}
}
