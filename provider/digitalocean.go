package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/digitalocean/godo"
	"github.com/sirupsen/logrus"

	"freesend/models"
)

// recordCreateDelay spaces out record creation calls to stay under the DNS
// provider's rate limit. A throttle, not a correctness mechanism.
const recordCreateDelay = 500 * time.Millisecond

// domainsService is the subset of godo's DomainsService the manager uses,
// extracted so tests can fake it.
type domainsService interface {
	Get(ctx context.Context, name string) (*godo.Domain, *godo.Response, error)
	Records(ctx context.Context, domain string, opt *godo.ListOptions) ([]godo.DomainRecord, *godo.Response, error)
	CreateRecord(ctx context.Context, domain string, createRequest *godo.DomainRecordEditRequest) (*godo.DomainRecord, *godo.Response, error)
}

// ReconcileResult reports what a reconciliation pass did.
type ReconcileResult struct {
	Created   []models.DNSRecord `json:"created"`
	Existing  []models.DNSRecord `json:"existing"`
	Conflicts []string           `json:"conflicts,omitempty"`
	Failures  []string           `json:"failures,omitempty"`
}

// DNSManager creates missing DNS records on DigitalOcean for domains managed
// there. Reconciliation is idempotent: records that already exist are left
// alone, so a second pass over the same set creates nothing.
type DNSManager struct {
	domains domainsService
	delay   time.Duration
	logger  *logrus.Logger
}

func NewDNSManager(token string, logger *logrus.Logger) *DNSManager {
	client := godo.NewFromToken(token)
	return &DNSManager{
		domains: client.Domains,
		delay:   recordCreateDelay,
		logger:  logger,
	}
}

// IsManaged reports whether the domain is registered with DigitalOcean DNS.
func (d *DNSManager) IsManaged(ctx context.Context, domain string) (bool, error) {
	_, resp, err := d.domains.Get(ctx, domain)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up domain %s: %w", domain, err)
	}
	return true, nil
}

// EnsureRecords creates every wanted record that does not already exist. A
// non-CNAME record matches on type+name+value; a CNAME matches on name alone
// since a name holds at most one CNAME, and a pre-existing CNAME with a
// different target is reported as a conflict but never overwritten. Creation
// failures are logged and skipped so the remaining records still get created.
func (d *DNSManager) EnsureRecords(ctx context.Context, domain string, wanted []models.DNSRecord) (*ReconcileResult, error) {
	existing, err := d.listAllRecords(ctx, domain)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{}
	for _, record := range wanted {
		relName := relativeRecordName(record.Name, domain)

		if record.Type == "CNAME" {
			if match := findByName(existing, "CNAME", relName); match != nil {
				if !sameRecordData(match.Data, cnameTarget(record)) {
					result.Conflicts = append(result.Conflicts, fmt.Sprintf(
						"CNAME %s already points at %s, wanted %s", record.Name, match.Data, record.Value))
				} else {
					result.Existing = append(result.Existing, record)
				}
				continue
			}
		} else if recordExists(existing, record, relName) {
			result.Existing = append(result.Existing, record)
			continue
		}

		req := editRequestFor(record, relName)
		if _, _, err := d.domains.CreateRecord(ctx, domain, req); err != nil {
			d.logger.WithError(err).WithFields(logrus.Fields{
				"domain": domain,
				"type":   record.Type,
				"name":   record.Name,
			}).Warn("failed to create DNS record, skipping")
			result.Failures = append(result.Failures, fmt.Sprintf("%s %s: %v", record.Type, record.Name, err))
			continue
		}
		result.Created = append(result.Created, record)
		time.Sleep(d.delay)
	}

	return result, nil
}

func (d *DNSManager) listAllRecords(ctx context.Context, domain string) ([]godo.DomainRecord, error) {
	var all []godo.DomainRecord
	opt := &godo.ListOptions{Page: 1, PerPage: 200}
	for {
		records, resp, err := d.domains.Records(ctx, domain, opt)
		if err != nil {
			return nil, fmt.Errorf("failed to list records for %s: %w", domain, err)
		}
		all = append(all, records...)

		if resp == nil || resp.Links == nil || resp.Links.IsLastPage() {
			break
		}
		opt.Page++
	}
	return all, nil
}

func findByName(existing []godo.DomainRecord, recordType, name string) *godo.DomainRecord {
	for i := range existing {
		if existing[i].Type == recordType && strings.EqualFold(existing[i].Name, name) {
			return &existing[i]
		}
	}
	return nil
}

func recordExists(existing []godo.DomainRecord, record models.DNSRecord, relName string) bool {
	wantData := recordData(record)
	for _, e := range existing {
		if e.Type != record.Type || !strings.EqualFold(e.Name, relName) {
			continue
		}
		if record.Type == "MX" {
			if e.Priority == record.Priority && sameRecordData(e.Data, wantData) {
				return true
			}
			continue
		}
		if sameRecordData(e.Data, wantData) {
			return true
		}
	}
	return false
}

func editRequestFor(record models.DNSRecord, relName string) *godo.DomainRecordEditRequest {
	req := &godo.DomainRecordEditRequest{
		Type: record.Type,
		Name: relName,
		TTL:  record.TTL,
	}
	switch record.Type {
	case "MX":
		req.Data = mxHost(record) + "."
		req.Priority = record.Priority
	case "CNAME":
		req.Data = cnameTarget(record) + "."
	default:
		req.Data = record.Value
	}
	return req
}

// recordData is the value compared against what the provider returns.
func recordData(record models.DNSRecord) string {
	switch record.Type {
	case "MX":
		return mxHost(record)
	case "CNAME":
		return cnameTarget(record)
	default:
		return record.Value
	}
}

// mxHost strips the leading priority from a generated MX value ("10 host").
func mxHost(record models.DNSRecord) string {
	fields := strings.Fields(record.Value)
	if len(fields) == 2 {
		return fields[1]
	}
	return record.Value
}

func cnameTarget(record models.DNSRecord) string {
	return record.Value
}

// relativeRecordName converts a fully qualified record name to the form the
// provider stores ("@" for the apex).
func relativeRecordName(name, domain string) string {
	if strings.EqualFold(name, domain) {
		return "@"
	}
	return strings.TrimSuffix(name, "."+domain)
}

// sameRecordData compares record values ignoring case and trailing dots.
func sameRecordData(a, b string) bool {
	return strings.EqualFold(strings.TrimSuffix(a, "."), strings.TrimSuffix(b, "."))
}
