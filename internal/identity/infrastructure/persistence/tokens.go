package persistence

import (
	"fmt"

	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/crypto"
)

// tokenCodec seals calendar tokens on the way into a row and opens them on
// the way out.
type tokenCodec struct {
	sealer crypto.Sealer
}

func newTokenCodec(sealer crypto.Sealer) tokenCodec {
	if sealer == nil {
		sealer = crypto.Plaintext{}
	}
	return tokenCodec{sealer: sealer}
}

func (c tokenCodec) seal(access, refresh string) (string, string, error) {
	a, err := c.sealer.Seal(access)
	if err != nil {
		return "", "", fmt.Errorf("seal access token: %w", err)
	}
	r, err := c.sealer.Seal(refresh)
	if err != nil {
		return "", "", fmt.Errorf("seal refresh token: %w", err)
	}
	return a, r, nil
}

func (c tokenCodec) open(access, refresh string) (string, string, error) {
	a, err := c.sealer.Open(access)
	if err != nil {
		return "", "", fmt.Errorf("open access token: %w", err)
	}
	r, err := c.sealer.Open(refresh)
	if err != nil {
		return "", "", fmt.Errorf("open refresh token: %w", err)
	}
	return a, r, nil
}
