// Package web3 houses blockchain connectivity for the counter client: the
// static network descriptor table, the wallet bridge and signer abstractions,
// the session lifecycle and the typed contract gateway. Subpackages depend on
// the descriptors defined here; nothing in this tree persists state beyond
// the in-memory session.
package web3
