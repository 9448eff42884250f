package tls13

// HashAlgorithm enumerates the transcript/HKDF hash functions this core
// supports. Only SHA-256 is wired: both TLS_AES_128_GCM_SHA256 and
// TLS_CHACHA20_POLY1305_SHA256 bind to SHA-256.
type HashAlgorithm int

const (
	HashSHA256 HashAlgorithm = iota
)

func (h HashAlgorithm) size() int {
	switch h {
	case HashSHA256:
		return 32
	default:
		return 0
	}
}

// AeadAlgorithm enumerates the record-protection AEADs this core
// supports.
type AeadAlgorithm int

const (
	AeadAES128GCM AeadAlgorithm = iota
	AeadChaCha20Poly1305
)

func (a AeadAlgorithm) keySize() int {
	switch a {
	case AeadAES128GCM:
		return 16
	case AeadChaCha20Poly1305:
		return 32
	default:
		return 0
	}
}

// SignatureScheme enumerates the CertificateVerify signature schemes
// this core supports.
type SignatureScheme int

const (
	SignatureECDSASecp256r1SHA256 SignatureScheme = iota
	SignatureRSAPSSRSAEPSSSHA256
)

// KemScheme enumerates the key-exchange groups this core supports.
type KemScheme int

const (
	KemX25519 KemScheme = iota
	KemSecp256r1
)

// Algorithms is the six-field negotiated-algorithm tuple threaded
// through the handshake states. Field order follows the original
// verified source's Algorithms(HashAlgorithm, AeadAlgorithm,
// SignatureScheme, KemScheme, psk_mode, zero_rtt) tuple.
type Algorithms struct {
	Hash      HashAlgorithm
	Aead      AeadAlgorithm
	Signature SignatureScheme
	Kem       KemScheme
	PSKMode   bool
	ZeroRTT   bool
}

// EntropyLen returns the minimum entropy buffer length GetClientHello/
// GetServerHello require for this KEM group: 32 bytes of handshake
// random plus the group's private-key material length.
func EntropyLen(k KemScheme) int { return 32 + dhPrivLen(k) }

// HashLen returns the digest size of the negotiated hash, in bytes.
func (a Algorithms) HashLen() int { return a.Hash.size() }

// AeadKeyLen returns the key size of the negotiated AEAD, in bytes.
func (a Algorithms) AeadKeyLen() int { return a.Aead.keySize() }

const aeadIVLen = 12
const aeadTagLen = 16
