// Package token issues and verifies the refresh and access tokens used by
// the login and exchange flows. Both kinds are HS256-signed JWTs sharing one
// claim shape; they differ only in the type claim and TTL. The exchange
// endpoint additionally accepts a short-lived signed outer envelope whose
// payload carries the refresh token, bound to the same shared secret.
package token
