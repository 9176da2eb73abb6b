package rate

import (
	"net"
	"net/netip"
	"strings"
	"time"
)

// unparseableIP is the sentinel identifier used when a remote address
// cannot be parsed, so malformed traffic is still counted under one key.
const unparseableIP = "unparseable"

const minuteBucketLayout = "200601021504"

// ClientKey is the normalized client identity a request is counted under.
// IP is always set (canonical form or the sentinel); Username is empty for
// anonymous attempts.
type ClientKey struct {
	IP       string
	Username string
}

// NewClientKey derives a ClientKey from a raw remote address and an
// optional username. The address may carry a port. Usernames are compared
// case-insensitively, so the key stores the lowercased form.
func NewClientKey(remoteAddr, username string) ClientKey {
	return ClientKey{
		IP:       CanonicalIP(remoteAddr),
		Username: strings.ToLower(strings.TrimSpace(username)),
	}
}

// CanonicalIP reduces a remote address to the canonical string form of its
// IP, or the sentinel when it cannot be parsed.
func CanonicalIP(remoteAddr string) string {
	remoteAddr = strings.TrimSpace(remoteAddr)
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		remoteAddr = host
	}
	addr, err := netip.ParseAddr(remoteAddr)
	if err != nil {
		return unparseableIP
	}
	return addr.String()
}

// CurrentKeys returns the keys to increment for a failed attempt at the
// given instant: one per active scope, all in the current minute bucket.
func CurrentKeys(ck ClientKey, at time.Time) []string {
	bucket := at.UTC().Format(minuteBucketLayout)

	keys := []string{"rlip:" + ck.IP + ":" + bucket}
	if ck.Username != "" {
		keys = append(keys, "rlacct:"+ck.IP+":"+ck.Username+":"+bucket)
	}
	return keys
}

// ScopeWindows returns, per active scope, the keys a budget check must
// sum for the given instant: one minute-bucket key per minute of the
// trailing window. Scopes are budgeted independently; a single failure
// counts once per scope, never twice against the same budget. Pure
// function.
func ScopeWindows(ck ClientKey, at time.Time, windowMinutes int) [][]string {
	if windowMinutes < 1 {
		windowMinutes = 1
	}

	buckets := make([]string, 0, windowMinutes)
	for i := 0; i < windowMinutes; i++ {
		buckets = append(buckets, at.UTC().Add(-time.Duration(i)*time.Minute).Format(minuteBucketLayout))
	}

	ipScope := make([]string, 0, windowMinutes)
	for _, bucket := range buckets {
		ipScope = append(ipScope, "rlip:"+ck.IP+":"+bucket)
	}
	scopes := [][]string{ipScope}

	if ck.Username != "" {
		acctScope := make([]string, 0, windowMinutes)
		for _, bucket := range buckets {
			acctScope = append(acctScope, "rlacct:"+ck.IP+":"+ck.Username+":"+bucket)
		}
		scopes = append(scopes, acctScope)
	}
	return scopes
}

// WindowKeys flattens [ScopeWindows] into one key list. The admin reset
// path uses it to compute which counters to delete.
func WindowKeys(ck ClientKey, at time.Time, windowMinutes int) []string {
	scopes := ScopeWindows(ck, at, windowMinutes)
	keys := make([]string, 0, 2*windowMinutes)
	for _, scope := range scopes {
		keys = append(keys, scope...)
	}
	return keys
}

// AccountScopePattern returns the glob matching every account-scope key
// an IP's traffic could have produced, across all usernames and buckets.
func AccountScopePattern(ip string) string {
	return "rlacct:" + ip + ":*"
}
