// Package module defines the contract the ingest and retention modules share with their CLIs
package module

// Module is a named bundle of ports. Ports returns a struct whose exported fields
// are the port interfaces, which PortsOf looks up by type
type Module interface {
	Ports() any
	Name() string
}
