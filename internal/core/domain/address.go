package domain

import (
	"fmt"

	"github.com/mr-tron/base58"
)

const publicKeyLen = 32

// ValidateAddress checks that addr is a base58 encoded 32-byte public key.
func ValidateAddress(addr string) error {
	raw, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, err)
	}

	if len(raw) != publicKeyLen {
		return fmt.Errorf("%w: decoded to %d bytes, want %d", ErrInvalidAddress, len(raw), publicKeyLen)
	}

	return nil
}

func ShortenAddress(addr string) string {
	if len(addr) <= 8 {
		return addr
	}

	return addr[:4] + "..." + addr[len(addr)-4:]
}
