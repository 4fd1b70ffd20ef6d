// Package authz implements clients for the external authorization service:
// an HTTP client and an in-memory rule list for tests and the demo.
package authz
