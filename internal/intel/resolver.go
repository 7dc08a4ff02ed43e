// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package intel

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"netshield.dev/netshield/internal/shielderr"
)

// Lookup is the result of resolving an IP literal to the enrichment
// fields spec.md §3 names.
type Lookup struct {
	Country      string
	ASN          string
	ASNDesc      string
	NetworkName  string
	NetworkCIDR  string
	AbuseContact string
}

// Resolver performs the actual enrichment lookup. Downloading or
// maintaining the underlying threat-feed/GeoIP data is out of scope
// (spec.md §1); Resolver only describes the lookup contract the
// enrichment worker drives.
type Resolver interface {
	Resolve(ip net.IP) (Lookup, error)
}

// GeoIPResolver resolves country and ASN fields from a pair of local
// MaxMind-format databases (a City-type db and an ASN-type db), the
// enrichment data source the rest of this pack's dependency set
// (oschwald/geoip2-golang, oschwald/maxminddb-golang) already provides.
// Network transport to a remote WHOIS/RDAP service is explicitly out of
// scope, so GeoIPResolver never dials out — a closed or absent database
// surfaces as shielderr.EnrichmentTransport, matching the "transport
// unreachable" failure taxonomy of spec.md §4.5 even though no network
// call is actually made.
type GeoIPResolver struct {
	city *geoip2.Reader
	asn  *geoip2.Reader // optional; nil if no ASN database is configured
}

// NewGeoIPResolver opens the City database at cityPath and, if asnPath is
// non-empty, the ASN database at asnPath.
func NewGeoIPResolver(cityPath, asnPath string) (*GeoIPResolver, error) {
	city, err := geoip2.Open(cityPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open geoip city database: %s", shielderr.EnrichmentTransport, err)
	}
	r := &GeoIPResolver{city: city}
	if asnPath != "" {
		asn, err := geoip2.Open(asnPath)
		if err != nil {
			city.Close()
			return nil, fmt.Errorf("%w: open geoip asn database: %s", shielderr.EnrichmentTransport, err)
		}
		r.asn = asn
	}
	return r, nil
}

// Close releases the underlying database handles.
func (r *GeoIPResolver) Close() error {
	if r.asn != nil {
		r.asn.Close()
	}
	return r.city.Close()
}

// Resolve implements Resolver.
func (r *GeoIPResolver) Resolve(ip net.IP) (Lookup, error) {
	rec, err := r.city.City(ip)
	if err != nil {
		return Lookup{}, fmt.Errorf("%w: %s", shielderr.EnrichmentTransport, err)
	}
	country := rec.Country.IsoCode
	if country == "" {
		return Lookup{}, fmt.Errorf("%w: no country record for %s", shielderr.EnrichmentData, ip)
	}

	out := Lookup{Country: country}
	if r.asn != nil {
		if asnRec, err := r.asn.ASN(ip); err == nil {
			out.ASN = fmt.Sprintf("AS%d", asnRec.AutonomousSystemNumber)
			out.ASNDesc = asnRec.AutonomousSystemOrganization
		}
	}
	return out, nil
}

// StubResolver is a deterministic, no-network resolver used when no
// GeoIP database is configured. It always succeeds with empty
// enrichment fields, leaving scoring to rely purely on live traffic
// behavior.
type StubResolver struct{}

// Resolve implements Resolver.
func (StubResolver) Resolve(ip net.IP) (Lookup, error) {
	return Lookup{}, nil
}
