// Package directory implements the Identity Directory client: an HTTP
// client against a directory service and an in-memory directory for tests
// and the demo.
package directory
