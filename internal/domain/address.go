package domain

import "github.com/gagliardetto/solana-go"

// addressLength is the base58 length of a 32-byte Solana public key in the
// common case.
const addressLength = 44

// ValidAddress reports whether addr is a well-formed Solana address. The
// length check is a cheap pre-filter; the base58 decode is the authority.
func ValidAddress(addr string) bool {
	if len(addr) != addressLength {
		return false
	}
	_, err := solana.PublicKeyFromBase58(addr)
	return err == nil
}
