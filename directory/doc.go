// Package directory looks up user accounts for credential verification.
// The engine only ever reads from it; account provisioning is out of scope.
package directory
