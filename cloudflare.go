package dyndns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudflare/cloudflare-go"
	"github.com/go-logr/logr"
)

// NewCloudflare constructs a [Provider] that manages records through the
// Cloudflare v4 API. The token needs Zone read and DNS edit permissions
// for the zone holding the record.
func NewCloudflare(token string) (cf *Cloudflare, err error) {
	cf = new(Cloudflare)
	cf.api, err = cloudflare.NewWithAPIToken(token)
	if err != nil {
		return nil, fmt.Errorf("error creating cloudflare api client: %w", err)
	}
	cf.logger = logr.Discard()
	return cf, err
}

// Cloudflare implements [Provider] for the Cloudflare v4 API.
//
// It should be constructed using NewCloudflare. Record operations need a
// record name to locate the zone, so a [RecordFilter] with an empty Name
// is rejected.
type Cloudflare struct {
	api    *cloudflare.API
	logger logr.Logger

	mu    sync.Mutex
	zones map[string]string // record name to zone ID, filled on first use
}

// ListRecords implements [Provider]. Cloudflare has no editable flag of
// its own; records locked by the platform are reported as not editable.
func (cf *Cloudflare) ListRecords(ctx context.Context, filter RecordFilter) ([]Record, error) {
	// this nil check feels odd and redundant, but it's technically possible for someone to use the type directly and cause a program crash.
	if cf.api == nil {
		return nil, errors.New("dyndns.Cloudflare should be constructed with dyndns.NewCloudflare")
	}
	zid, err := cf.zoneID(ctx, filter.Name)
	if err != nil {
		return nil, err
	}

	records, _, err := cf.api.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(zid), cloudflare.ListDNSRecordsParams{
		Type: filter.Type,
		Name: filter.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("error listing records for %s: %w", filter.Name, err)
	}
	var out []Record
	for _, r := range records {
		rec := Record{
			Name:     r.Name,
			Type:     r.Type,
			Value:    r.Content,
			Editable: !r.Locked,
			Comment:  r.Comment,
		}
		if filter.Matches(rec) {
			out = append(out, rec)
		}
	}
	cf.logger.V(1).Info("listed records", "zone", zid, "total", len(records), "matching", len(out))
	return out, nil
}

// AddRecord implements [Provider]. Records are created with a short TTL
// since the whole point is an address that changes.
func (cf *Cloudflare) AddRecord(ctx context.Context, r Record) error {
	if cf.api == nil {
		return errors.New("dyndns.Cloudflare should be constructed with dyndns.NewCloudflare")
	}
	zid, err := cf.zoneID(ctx, r.Name)
	if err != nil {
		return err
	}
	record, err := cf.api.CreateDNSRecord(ctx, cloudflare.ZoneIdentifier(zid), cloudflare.CreateDNSRecordParams{
		Type:    r.Type,
		Name:    r.Name,
		Content: r.Value,
		ZoneID:  zid,
		TTL:     60,
		Comment: r.Comment,
	})
	if err != nil {
		return fmt.Errorf("error creating DNS record: %w", err)
	}
	cf.logger.V(1).Info("created record", "id", record.ID, "name", r.Name, "content", r.Value)
	return nil
}

// RemoveRecord implements [Provider]. The record is located by name, type,
// and content; removing a record that is already gone is not an error.
func (cf *Cloudflare) RemoveRecord(ctx context.Context, r Record) error {
	if cf.api == nil {
		return errors.New("dyndns.Cloudflare should be constructed with dyndns.NewCloudflare")
	}
	zid, err := cf.zoneID(ctx, r.Name)
	if err != nil {
		return err
	}
	records, _, err := cf.api.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(zid), cloudflare.ListDNSRecordsParams{
		Type: r.Type,
		Name: r.Name,
	})
	if err != nil {
		return fmt.Errorf("error listing records for %s: %w", r.Name, err)
	}
	for _, existing := range records {
		if existing.Content != r.Value {
			continue
		}
		if err := cf.api.DeleteDNSRecord(ctx, cloudflare.ZoneIdentifier(zid), existing.ID); err != nil {
			return fmt.Errorf("unable to delete DNS record %s: %w", existing.ID, err)
		}
		cf.logger.V(1).Info("deleted record", "id", existing.ID, "content", existing.Content)
	}
	return nil
}

// zoneID finds the zone whose name is the longest suffix of the record
// name, so records in delegated subzones land in the right place. Results
// are memoized; one zone listing per record name is plenty for a client
// that runs three operations per pass.
func (cf *Cloudflare) zoneID(ctx context.Context, record string) (zid string, err error) {
	if record == "" {
		return "", errors.New("a record name is required to pick a zone")
	}
	cf.mu.Lock()
	defer cf.mu.Unlock()
	if zid, ok := cf.zones[record]; ok {
		return zid, nil
	}

	zones, err := cf.api.ListZones(ctx)
	if err != nil {
		return "", fmt.Errorf("error listing zones: %w", err)
	}
	max := 0
	for _, z := range zones {
		if strings.HasSuffix(record, z.Name) && len(z.Name) > max {
			max, zid = len(z.Name), z.ID
		}
	}
	if max == 0 {
		return "", fmt.Errorf("unable to find a zone matching \"%s\"", record)
	}
	if cf.zones == nil {
		cf.zones = map[string]string{}
	}
	cf.zones[record] = zid
	return zid, nil
}
