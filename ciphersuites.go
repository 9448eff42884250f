package tls13

// Wire-code tables for cipher suites, groups and signature schemes.
// Shaped directly on the teacher's cipherSuiteTLS13/cipherSuitesTLS13
// table and mutualCipherSuiteTLS13/cipherSuiteTLS13ByID lookup
// functions, narrowed to the two suites this core negotiates.

type cipherSuiteTLS13 struct {
	id   uint16
	aead AeadAlgorithm
	hash HashAlgorithm
}

var cipherSuitesTLS13 = []*cipherSuiteTLS13{
	{id: 0x1301, aead: AeadAES128GCM, hash: HashSHA256},     // TLS_AES_128_GCM_SHA256
	{id: 0x1303, aead: AeadChaCha20Poly1305, hash: HashSHA256}, // TLS_CHACHA20_POLY1305_SHA256
}

func cipherSuiteTLS13ByID(id uint16) *cipherSuiteTLS13 {
	for _, cs := range cipherSuitesTLS13 {
		if cs.id == id {
			return cs
		}
	}
	return nil
}

// mutualCipherSuiteTLS13 returns the first suite in have that also
// appears in want, or nil if none match. have is the offered list
// (e.g. from a ClientHello); want is the set this implementation
// supports (always cipherSuitesTLS13 in practice, but kept as a
// parameter for testability, following the teacher's signature).
func mutualCipherSuiteTLS13(have []uint16, want []*cipherSuiteTLS13) *cipherSuiteTLS13 {
	for _, id := range have {
		for _, cs := range want {
			if cs.id == id {
				return cs
			}
		}
	}
	return nil
}

const (
	groupX25519     uint16 = 0x001D
	groupSecp256r1  uint16 = 0x0017
	sigEcdsaSecp256r1Sha256 uint16 = 0x0403
	sigRsaPssRsaeSha256     uint16 = 0x0804
)

func groupWireCode(k KemScheme) (uint16, error) {
	switch k {
	case KemX25519:
		return groupX25519, nil
	case KemSecp256r1:
		return groupSecp256r1, nil
	default:
		return 0, newError(KindUnsupportedAlgorithm, "groupWireCode: unknown group")
	}
}

func groupFromWireCode(code uint16) (KemScheme, error) {
	switch code {
	case groupX25519:
		return KemX25519, nil
	case groupSecp256r1:
		return KemSecp256r1, nil
	default:
		return 0, newError(KindUnsupportedAlgorithm, "groupFromWireCode: unsupported group")
	}
}

func signatureWireCode(s SignatureScheme) (uint16, error) {
	switch s {
	case SignatureECDSASecp256r1SHA256:
		return sigEcdsaSecp256r1Sha256, nil
	case SignatureRSAPSSRSAEPSSSHA256:
		return sigRsaPssRsaeSha256, nil
	default:
		return 0, newError(KindUnsupportedAlgorithm, "signatureWireCode: unknown scheme")
	}
}

func signatureFromWireCode(code uint16) (SignatureScheme, error) {
	switch code {
	case sigEcdsaSecp256r1Sha256:
		return SignatureECDSASecp256r1SHA256, nil
	case sigRsaPssRsaeSha256:
		return SignatureRSAPSSRSAEPSSSHA256, nil
	default:
		return 0, newError(KindUnsupportedAlgorithm, "signatureFromWireCode: unsupported scheme")
	}
}

// cipherSuiteWireID maps negotiated Algorithms to the corresponding
// two-byte TLS 1.3 cipher suite identifier.
func cipherSuiteWireID(a Algorithms) (uint16, error) {
	for _, cs := range cipherSuitesTLS13 {
		if cs.aead == a.Aead && cs.hash == a.Hash {
			return cs.id, nil
		}
	}
	return 0, newError(KindUnsupportedAlgorithm, "cipherSuiteWireID: no matching cipher suite")
}

// keyShareLen returns the wire length of a KEM public key / key share.
func keyShareLen(k KemScheme) int {
	switch k {
	case KemX25519:
		return 32
	case KemSecp256r1:
		return 65 // uncompressed point: 0x04 || X(32) || Y(32)
	default:
		return 0
	}
}
