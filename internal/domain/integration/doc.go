// Package integration defines the ports through which the fulfillment core
// talks to external dropshipping suppliers: the SupplierGateway interface
// with its typed request/response structs, the token lifecycle contracts,
// and the error taxonomy shared by all adapters. Concrete adapters live in
// internal/infrastructure/supplierapi.
package integration
