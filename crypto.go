package tls13

import (
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/cipher"
	"encoding/binary"
	"io"
	"math/big"

	"gitlab.com/yawning/bsaes.git"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// Cryptographic facade: hash/HMAC/HKDF, AEAD, KEM and signature
// primitives, one function group per concern. AEAD nonce construction
// (xorNonceAEAD) is ported from the teacher's cipher_suites.go; the
// AES-128-GCM path swaps crypto/aes for gitlab.com/yawning/bsaes.git's
// constant-time bitsliced block cipher, the way the teacher's
// aesNewCipher indirection allows swapping the underlying cipher.Block.

func hash(h HashAlgorithm, data []byte) []byte {
	switch h {
	case HashSHA256:
		sum := sha256.Sum256(data)
		return sum[:]
	default:
		return nil
	}
}

func hmacSum(h HashAlgorithm, key, data []byte) []byte {
	switch h {
	case HashSHA256:
		mac := hmac.New(sha256.New, key)
		mac.Write(data)
		return mac.Sum(nil)
	default:
		return nil
	}
}

// hkdfExtract implements RFC 5869 HKDF-Extract directly as
// HMAC(salt, ikm) via hmacSum; a nil salt is a hash-length run of
// zero bytes.
func hkdfExtract(h HashAlgorithm, salt, ikm []byte) []byte {
	if salt == nil {
		salt = make([]byte, h.size())
	}
	return hmacSum(h, salt, ikm)
}

// labelTLS13 is the "tls13 " prefix RFC 8446 §7.1 prepends to every
// HkdfLabel.label field.
const labelTLS13 = "tls13 "

// hkdfExpandLabel implements RFC 8446's HKDF-Expand-Label.
//
//	HkdfLabel.length = Length
//	HkdfLabel.label  = "tls13 " + Label
//	HkdfLabel.context = Context
func hkdfExpandLabel(h HashAlgorithm, secret []byte, label string, context []byte, length int) ([]byte, error) {
	if length >= 1<<16 {
		return nil, newError(KindPayloadTooLong, "hkdfExpandLabel: length too large")
	}
	full := labelTLS13 + label
	if len(full) > 255 {
		return nil, newError(KindParseFailed, "hkdfExpandLabel: label too long")
	}
	info := make([]byte, 0, 2+1+len(full)+1+len(context))
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(length))
	info = append(info, lenBuf[:]...)
	info = append(info, byte(len(full)))
	info = append(info, full...)
	info = append(info, byte(len(context)))
	info = append(info, context...)

	r := hkdfExpandReader(h, secret, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, wrapError(KindCryptoFailure, "hkdfExpandLabel: expand failed", err)
	}
	return out, nil
}

func hkdfExpandReader(h HashAlgorithm, prk, info []byte) io.Reader {
	switch h {
	case HashSHA256:
		return hkdf.Expand(sha256.New, prk, info)
	default:
		return nil
	}
}

// deriveSecret implements RFC 8446's Derive-Secret(Secret, Label,
// Messages) = HKDF-Expand-Label(Secret, Label, Hash(Messages),
// Hash.length).
func deriveSecret(h HashAlgorithm, secret []byte, label string, transcriptHash []byte) ([]byte, error) {
	return hkdfExpandLabel(h, secret, label, transcriptHash, h.size())
}

// aead is the per-record sealing/opening interface. It adds nothing to
// cipher.AEAD: TLS 1.3 uses implicit nonces only, so no explicit-nonce
// length is exposed.
type aead interface {
	cipher.AEAD
}

// xorNonceAEAD wraps a cipher.AEAD to XOR an 8-byte big-endian
// sequence number into the low bytes of a fixed per-direction IV, the
// TLS 1.3 nonce construction. Ported from the teacher's
// xorNonceAEAD/xorNonceAEADTLS13 wrapper type.
type xorNonceAEAD struct {
	nonceMask [aeadIVLen]byte
	aead      cipher.AEAD
}

func newXorNonceAEAD(inner cipher.AEAD, iv []byte) *xorNonceAEAD {
	x := &xorNonceAEAD{aead: inner}
	copy(x.nonceMask[:], iv)
	return x
}

func (x *xorNonceAEAD) NonceSize() int { return 8 }
func (x *xorNonceAEAD) Overhead() int  { return x.aead.Overhead() }

func (x *xorNonceAEAD) Seal(out, nonce, plaintext, additionalData []byte) []byte {
	for i, b := range nonce {
		x.nonceMask[4+i] ^= b
	}
	result := x.aead.Seal(out, x.nonceMask[:], plaintext, additionalData)
	for i, b := range nonce {
		x.nonceMask[4+i] ^= b
	}
	return result
}

func (x *xorNonceAEAD) Open(out, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	for i, b := range nonce {
		x.nonceMask[4+i] ^= b
	}
	result, err := x.aead.Open(out, x.nonceMask[:], ciphertext, additionalData)
	for i, b := range nonce {
		x.nonceMask[4+i] ^= b
	}
	if err != nil {
		return nil, wrapError(KindInvalidTag, "xorNonceAEAD: open failed", err)
	}
	return result, nil
}

// newAEAD constructs the negotiated record-protection AEAD, keyed and
// wrapped in xorNonceAEAD per RFC 8446 §5.3.
func newAEAD(a AeadAlgorithm, key, iv []byte) (aead, error) {
	switch a {
	case AeadAES128GCM:
		block, err := bsaes.NewCipher(key)
		if err != nil {
			return nil, wrapError(KindCryptoFailure, "newAEAD: bsaes.NewCipher", err)
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, wrapError(KindCryptoFailure, "newAEAD: cipher.NewGCM", err)
		}
		return newXorNonceAEAD(gcm, iv), nil
	case AeadChaCha20Poly1305:
		c, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, wrapError(KindCryptoFailure, "newAEAD: chacha20poly1305.New", err)
		}
		return newXorNonceAEAD(c, iv), nil
	default:
		return nil, newError(KindUnsupportedAlgorithm, "newAEAD: unsupported aead algorithm")
	}
}

// --- KEM ---

// dhPrivLen returns the number of entropy bytes kemKeygen consumes for
// the given group's private key material, matching
// original_source/src/tls13handshake.rs's dh_priv_len(ks).
func dhPrivLen(k KemScheme) int {
	switch k {
	case KemX25519, KemSecp256r1:
		return 32
	default:
		return 0
	}
}

// kemKeygen generates an ephemeral key-exchange keypair for the given
// group from caller-supplied entropy, returning (secret, public).
// entropy must be exactly dhPrivLen(k) bytes; callers are responsible
// for first checking overall buffer length against 32+dhPrivLen(k) per
// spec.md §4.6 (the leading 32 bytes are the handshake random, not KEM
// material).
func kemKeygen(k KemScheme, entropy []byte) (priv, pub []byte, err error) {
	if len(entropy) != dhPrivLen(k) {
		return nil, nil, newError(KindInsufficientEntropy, "kemKeygen: wrong entropy length for group")
	}
	switch k {
	case KemX25519:
		sk := make([]byte, 32)
		copy(sk, entropy)
		pk, err := curve25519.X25519(sk, curve25519.Basepoint)
		if err != nil {
			return nil, nil, wrapError(KindCryptoFailure, "kemKeygen: X25519", err)
		}
		return sk, pk, nil
	case KemSecp256r1:
		priv, err := ecdh.P256().NewPrivateKey(entropy)
		if err != nil {
			return nil, nil, wrapError(KindCryptoFailure, "kemKeygen: ecdh.NewPrivateKey", err)
		}
		return priv.Bytes(), priv.PublicKey().Bytes(), nil
	default:
		return nil, nil, newError(KindUnsupportedAlgorithm, "kemKeygen: unsupported group")
	}
}

// kemDecap computes the shared secret given our private share and the
// peer's public share.
func kemDecap(k KemScheme, priv, peerPub []byte) ([]byte, error) {
	switch k {
	case KemX25519:
		shared, err := curve25519.X25519(priv, peerPub)
		if err != nil {
			return nil, wrapError(KindCryptoFailure, "kemDecap: X25519", err)
		}
		return shared, nil
	case KemSecp256r1:
		sk, err := ecdh.P256().NewPrivateKey(priv)
		if err != nil {
			return nil, wrapError(KindCryptoFailure, "kemDecap: NewPrivateKey", err)
		}
		pk, err := ecdh.P256().NewPublicKey(peerPub)
		if err != nil {
			return nil, wrapError(KindCryptoFailure, "kemDecap: NewPublicKey", err)
		}
		shared, err := sk.ECDH(pk)
		if err != nil {
			return nil, wrapError(KindCryptoFailure, "kemDecap: ECDH", err)
		}
		return shared, nil
	default:
		return nil, newError(KindUnsupportedAlgorithm, "kemDecap: unsupported group")
	}
}

// --- Signatures ---

// verifySignature verifies sig over msg using the given scheme and
// raw public key bytes extracted by cert.go.
func verifySignature(s SignatureScheme, pubKey, msg, sig []byte) error {
	switch s {
	case SignatureECDSASecp256r1SHA256:
		if len(pubKey) != 65 || pubKey[0] != 0x04 {
			return newError(KindParseFailed, "verifySignature: malformed P-256 point")
		}
		x := new(big.Int).SetBytes(pubKey[1:33])
		y := new(big.Int).SetBytes(pubKey[33:65])
		pub := &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}
		if len(sig) != 64 {
			return newError(KindParseFailed, "verifySignature: raw ecdsa signature must be 64 bytes")
		}
		r := new(big.Int).SetBytes(sig[:32])
		sVal := new(big.Int).SetBytes(sig[32:])
		digest := hash(HashSHA256, msg)
		if !ecdsa.Verify(pub, digest, r, sVal) {
			return newError(KindCryptoFailure, "verifySignature: ecdsa verify failed")
		}
		return nil
	case SignatureRSAPSSRSAEPSSSHA256:
		pub, err := parseRSAPublicKey(pubKey)
		if err != nil {
			return err
		}
		digest := hash(HashSHA256, msg)
		opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: crypto.SHA256}
		if err := rsa.VerifyPSS(pub, crypto.SHA256, digest, sig, opts); err != nil {
			return wrapError(KindCryptoFailure, "verifySignature: rsa-pss verify failed", err)
		}
		return nil
	default:
		return newError(KindUnsupportedAlgorithm, "verifySignature: unsupported scheme")
	}
}

// sign produces a CertificateVerify signature over msg using the given
// scheme and private key. Used by the server (and, hypothetically, a
// client under mutual auth, which this core's Non-goals exclude).
func sign(s SignatureScheme, priv crypto.Signer, msg []byte) ([]byte, error) {
	digest := hash(HashSHA256, msg)
	switch s {
	case SignatureECDSASecp256r1SHA256:
		ecdsaPriv, ok := priv.(*ecdsa.PrivateKey)
		if !ok {
			return nil, newError(KindUnsupportedAlgorithm, "sign: not an ecdsa key")
		}
		r, sVal, err := ecdsa.Sign(rand.Reader, ecdsaPriv, digest)
		if err != nil {
			return nil, wrapError(KindCryptoFailure, "sign: ecdsa.Sign", err)
		}
		raw := make([]byte, 64)
		r.FillBytes(raw[:32])
		sVal.FillBytes(raw[32:])
		return raw, nil
	case SignatureRSAPSSRSAEPSSSHA256:
		rsaPriv, ok := priv.(*rsa.PrivateKey)
		if !ok {
			return nil, newError(KindUnsupportedAlgorithm, "sign: not an rsa key")
		}
		opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: crypto.SHA256}
		sig, err := rsa.SignPSS(rand.Reader, rsaPriv, crypto.SHA256, digest, opts)
		if err != nil {
			return nil, wrapError(KindCryptoFailure, "sign: rsa.SignPSS", err)
		}
		return sig, nil
	default:
		return nil, newError(KindUnsupportedAlgorithm, "sign: unsupported scheme")
	}
}
