// Package counter is the typed gateway over the deployed Counter contract.
// It is the sole read/write path once a session exists, classifies failures
// into the client's error taxonomy and exposes the diagnostic snapshot used
// to surface misconfiguration to an operator.
package counter
