package jscrypto

import (
	"errors"
	"fmt"
	"sort"
)

// Scheme names a sealing construction.
type Scheme string

const (
	// SchemeAESCTRHMAC is AES-128-CTR with an HMAC-SHA256 tag. The nonce and
	// keys are derived from SHA-256 of the key name, so sealing is
	// deterministic.
	SchemeAESCTRHMAC Scheme = "aes-128-ctr-hmac-sha256"
	// SchemeXChaCha20Poly1305 uses a random nonce per seal.
	SchemeXChaCha20Poly1305 Scheme = "xchacha20-poly1305"

	DefaultScheme = SchemeAESCTRHMAC

	// additionalData authenticates every sealed message.
	additionalData = "jscrypto"
)

var (
	ErrOpen          = errors.New("jscrypto: message authentication failed")
	ErrUnknownScheme = errors.New("jscrypto: unknown scheme")
)

// Sealer seals and opens text under one key.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

var constructors = map[Scheme]func(key string) (Sealer, error){
	SchemeAESCTRHMAC:        newCTRHMAC,
	SchemeXChaCha20Poly1305: newXChaCha,
}

// Schemes lists the supported schemes in sorted order.
func Schemes() []string {
	out := make([]string, 0, len(constructors))
	for s := range constructors {
		out = append(out, string(s))
	}
	sort.Strings(out)
	return out
}

// ParseScheme validates a scheme name. The empty string selects the default.
func ParseScheme(name string) (Scheme, error) {
	if name == "" {
		return DefaultScheme, nil
	}
	s := Scheme(name)
	if _, ok := constructors[s]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownScheme, name)
	}
	return s, nil
}

// NewSealer derives a Sealer for key under scheme.
func NewSealer(scheme Scheme, key string) (Sealer, error) {
	ctor, ok := constructors[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
	return ctor(key)
}
