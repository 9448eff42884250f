package tls13

import "encoding/binary"

// Per-direction record-protection state: an AEAD, its fixed IV (XORed
// with the sequence number by xorNonceAEAD), and a monotonic sequence
// counter that must never repeat for the lifetime of the key. Grounded
// on original_source/src/tls13handshake.rs's ClientCipherState0/
// ServerCipherState0/DuplexCipherStateH/DuplexCipherState1 tuple
// structs, collapsed into one reusable type per direction rather than
// bertie's four distinct phase-tagged tuples — the phase is tracked by
// which state-machine struct owns the cipherState, not by its type.
type cipherState struct {
	aead aead
	seq  uint64
}

func newCipherState(algorithm AeadAlgorithm, key, iv []byte) (*cipherState, error) {
	a, err := newAEAD(algorithm, key, iv)
	if err != nil {
		return nil, err
	}
	return &cipherState{aead: a}, nil
}

func (c *cipherState) nonce() []byte {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], c.seq)
	return n[:]
}

// Seal encrypts plaintext as record content type ty, authenticating
// additionalData (the record header), and advances the sequence
// counter. It returns an error once the counter would wrap, per
// spec.md's "never reused" invariant.
func (c *cipherState) Seal(ty ContentType, plaintext, additionalData []byte) ([]byte, error) {
	if c.seq == ^uint64(0) {
		return nil, newError(KindSequenceTooLong, "cipherState: sequence number exhausted")
	}
	inner := append(append([]byte(nil), plaintext...), byte(ty))
	ct := c.aead.Seal(nil, c.nonce(), inner, additionalData)
	c.seq++
	return ct, nil
}

// Open decrypts ciphertext, verifying additionalData, strips the
// trailing content-type octet and any zero padding, and advances the
// sequence counter.
func (c *cipherState) Open(ciphertext, additionalData []byte) (ContentType, []byte, error) {
	if c.seq == ^uint64(0) {
		return 0, nil, newError(KindSequenceTooLong, "cipherState: sequence number exhausted")
	}
	pt, err := c.aead.Open(nil, c.nonce(), ciphertext, additionalData)
	if err != nil {
		return 0, nil, err
	}
	c.seq++
	i := len(pt) - 1
	for i >= 0 && pt[i] == 0 {
		i--
	}
	if i < 0 {
		return 0, nil, newError(KindParseFailed, "cipherState: empty inner plaintext")
	}
	return ContentType(pt[i]), pt[:i], nil
}

// duplexCipherState owns one read and one write cipherState for a
// single phase (handshake or application traffic), mirroring bertie's
// DuplexCipherStateH/DuplexCipherState1.
type duplexCipherState struct {
	read  *cipherState
	write *cipherState
}
