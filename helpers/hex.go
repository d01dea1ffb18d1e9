package helpers

import (
	"encoding/hex"
	"strings"
)

// MustHex decodes hex ignoring whitespace, "10 81 12 00" or "10811200".
func MustHex(s string) []byte {
	b, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		panic(err)
	}
	return b
}
