// Package session owns the connection lifecycle against the counter
// contract: acquiring the signer, validating the configured address and its
// on-chain deployment, and holding the all-or-nothing session triple that
// the gateway layer operates on.
package session
