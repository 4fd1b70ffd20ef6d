// Package app assembles the messaging core: it builds the dependency graph
// from a Config and hands the CLI ready services.
package app
