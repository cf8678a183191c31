package jscrypto

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const xchachaInfo = "andjs jscrypto xchacha20-poly1305"

type xchacha struct {
	aead cipher.AEAD
}

func newXChaCha(key string) (Sealer, error) {
	k := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(key), nil, []byte(xchachaInfo)), k); err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(k)
	if err != nil {
		return nil, err
	}
	return &xchacha{aead: aead}, nil
}

func (x *xchacha) Seal(plaintext string) (string, error) {
	nonce := make([]byte, x.aead.NonceSize(), x.aead.NonceSize()+len(plaintext)+x.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := x.aead.Seal(nonce, nonce, []byte(plaintext), []byte(additionalData))
	return base64.StdEncoding.EncodeToString(out), nil
}

func (x *xchacha) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < x.aead.NonceSize()+x.aead.Overhead() {
		return "", ErrOpen
	}
	nonce, ct := raw[:x.aead.NonceSize()], raw[x.aead.NonceSize():]
	pt, err := x.aead.Open(nil, nonce, ct, []byte(additionalData))
	if err != nil {
		return "", ErrOpen
	}
	return string(pt), nil
}
