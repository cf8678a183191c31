package jscrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"hash"
)

const (
	ctrNonceSize = 12
	ctrTagSize   = sha256.Size
	ctrKeySize   = 16
)

// ctrHMAC is AES-128-CTR with an HMAC-SHA256 tag over
// le64(len(ad)) || le64(len(ct)) || nonce || ad || zero padding || ct,
// the padding aligning ct to a SHA-256 block.
type ctrHMAC struct {
	block  cipher.Block
	macKey []byte
	nonce  [ctrNonceSize]byte
}

func newCTRHMAC(key string) (Sealer, error) {
	digest := sha256.Sum256([]byte(key))

	var nonce [ctrNonceSize]byte
	copy(nonce[:], digest[:ctrNonceSize])

	derived := sha256.Sum256(append(digest[:], nonce[:]...))
	material := append(derived[:], digest[:ctrKeySize]...)

	block, err := aes.NewCipher(material[:ctrKeySize])
	if err != nil {
		return nil, err
	}
	return &ctrHMAC{
		block:  block,
		macKey: material[ctrKeySize:],
		nonce:  nonce,
	}, nil
}

func (c *ctrHMAC) Seal(plaintext string) (string, error) {
	ct := make([]byte, len(plaintext), len(plaintext)+ctrTagSize)
	c.stream().XORKeyStream(ct, []byte(plaintext))
	ct = append(ct, c.tag(ct)...)
	return base64.StdEncoding.EncodeToString(ct), nil
}

func (c *ctrHMAC) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < ctrTagSize {
		return "", ErrOpen
	}

	ct, tag := raw[:len(raw)-ctrTagSize], raw[len(raw)-ctrTagSize:]
	if !hmac.Equal(tag, c.tag(ct)) {
		return "", ErrOpen
	}

	pt := make([]byte, len(ct))
	c.stream().XORKeyStream(pt, ct)
	return string(pt), nil
}

func (c *ctrHMAC) stream() cipher.Stream {
	var iv [aes.BlockSize]byte
	copy(iv[:], c.nonce[:])
	return cipher.NewCTR(c.block, iv[:])
}

func (c *ctrHMAC) tag(ct []byte) []byte {
	mac := hmac.New(sha256.New, c.macKey)
	writeUint64(mac, uint64(len(additionalData)))
	writeUint64(mac, uint64(len(ct)))
	mac.Write(c.nonce[:])
	mac.Write([]byte(additionalData))

	prefix := 16 + ctrNonceSize + len(additionalData)
	padding := (sha256.BlockSize - prefix%sha256.BlockSize) % sha256.BlockSize
	mac.Write(make([]byte, padding))

	mac.Write(ct)
	return mac.Sum(nil)
}

func writeUint64(h hash.Hash, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	h.Write(buf[:])
}
