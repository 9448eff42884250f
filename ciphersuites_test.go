package tls13

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCipherSuiteTLS13ByID(t *testing.T) {
	cs := cipherSuiteTLS13ByID(0x1301)
	require.NotNil(t, cs)
	require.Equal(t, AeadAES128GCM, cs.aead)

	cs = cipherSuiteTLS13ByID(0x1303)
	require.NotNil(t, cs)
	require.Equal(t, AeadChaCha20Poly1305, cs.aead)

	require.Nil(t, cipherSuiteTLS13ByID(0xffff))
}

func TestMutualCipherSuiteTLS13(t *testing.T) {
	have := []uint16{0x9999, 0x1303}
	cs := mutualCipherSuiteTLS13(have, cipherSuitesTLS13)
	require.NotNil(t, cs)
	require.Equal(t, uint16(0x1303), cs.id)

	require.Nil(t, mutualCipherSuiteTLS13([]uint16{0x9999}, cipherSuitesTLS13))
}

func TestCipherSuiteWireID(t *testing.T) {
	id, err := cipherSuiteWireID(Algorithms{Hash: HashSHA256, Aead: AeadAES128GCM})
	require.NoError(t, err)
	require.Equal(t, uint16(0x1301), id)

	id, err = cipherSuiteWireID(Algorithms{Hash: HashSHA256, Aead: AeadChaCha20Poly1305})
	require.NoError(t, err)
	require.Equal(t, uint16(0x1303), id)
}

func TestGroupWireCodeRoundTrip(t *testing.T) {
	for _, k := range []KemScheme{KemX25519, KemSecp256r1} {
		code, err := groupWireCode(k)
		require.NoError(t, err)
		back, err := groupFromWireCode(code)
		require.NoError(t, err)
		require.Equal(t, k, back)
	}
	_, err := groupFromWireCode(0xbeef)
	require.Error(t, err)
}

func TestSignatureWireCodeRoundTrip(t *testing.T) {
	for _, s := range []SignatureScheme{SignatureECDSASecp256r1SHA256, SignatureRSAPSSRSAEPSSSHA256} {
		code, err := signatureWireCode(s)
		require.NoError(t, err)
		back, err := signatureFromWireCode(code)
		require.NoError(t, err)
		require.Equal(t, s, back)
	}
	_, err := signatureFromWireCode(0xbeef)
	require.Error(t, err)
}

func TestKeyShareLen(t *testing.T) {
	require.Equal(t, 32, keyShareLen(KemX25519))
	require.Equal(t, 65, keyShareLen(KemSecp256r1))
}

func TestAlgorithmsHashAndAeadLen(t *testing.T) {
	a := Algorithms{Hash: HashSHA256, Aead: AeadAES128GCM}
	require.Equal(t, 32, a.HashLen())
	require.Equal(t, 16, a.AeadKeyLen())

	a.Aead = AeadChaCha20Poly1305
	require.Equal(t, 32, a.AeadKeyLen())
}
