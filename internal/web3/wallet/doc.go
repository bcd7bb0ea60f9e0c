// Package wallet models the boundary with the user's wallet: the raw
// request bridge, the closed set of provider error codes the client branches
// on, transaction signers and the chain reconciler. Everything here talks to
// an external actor that may prompt the user and answer at its own pace.
package wallet
