// Package config provides centralized configuration management for the
// counter client: the wallet bridge endpoint, signer selection, the target
// contract address, the network descriptor table location and logging
// behaviour. Values not supplied in the JSON file receive conservative
// defaults relative to the config file's directory.
package config
