package counter

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// abiJSON is the interface descriptor of the deployed Counter contract. The
// client consumes exactly these five members; the contract itself is assumed
// correct and immutable.
const abiJSON = `[
  {"inputs":[],"name":"getCounter","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"incrementCounter","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[],"name":"decrementCounter","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[],"name":"resetCounter","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[],"name":"owner","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

var (
	abiOnce   sync.Once
	parsedABI abi.ABI
	abiErr    error
)

// ABI returns the parsed Counter interface descriptor.
func ABI() (abi.ABI, error) {
	abiOnce.Do(func() {
		parsedABI, abiErr = abi.JSON(strings.NewReader(abiJSON))
	})
	return parsedABI, abiErr
}
