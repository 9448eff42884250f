package tls13

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testEntropy(t *testing.T) []byte {
	t.Helper()
	buf := make([]byte, EntropyLen(KemX25519))
	_, err := rand.Read(buf)
	require.NoError(t, err)
	return buf
}

func certAlgorithms() Algorithms {
	return Algorithms{
		Hash:      HashSHA256,
		Aead:      AeadAES128GCM,
		Signature: SignatureECDSASecp256r1SHA256,
		Kem:       KemX25519,
	}
}

func selfSignedECDSACert(t *testing.T) ([]byte, *ecdsa.PrivateKey) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "tls13-test"},
		NotBefore:    time.Unix(0, 0),
		NotAfter:     time.Unix(0, 0).Add(365 * 24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	return der, priv
}

func selfSignedRSACert(t *testing.T) ([]byte, *rsa.PrivateKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "tls13-test-rsa"},
		NotBefore:    time.Unix(0, 0),
		NotAfter:     time.Unix(0, 0).Add(365 * 24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	return der, priv
}

func runCertificateHandshake(t *testing.T) (*ClientPostClientFinished, *ServerComplete) {
	t.Helper()
	algorithms := certAlgorithms()
	certDER, signer := selfSignedECDSACert(t)
	cfg := ServerConfig{Algorithms: algorithms, CertDER: certDER, SigningKey: signer}

	clientHello, clientSt, err := GetClientHello(algorithms, []byte("example.com"), nil, testEntropy(t))
	require.NoError(t, err)

	serverPostCH, err := PutClientHello(cfg, clientHello)
	require.NoError(t, err)

	serverHello, serverPostSH, err := GetServerHello(serverPostCH, testEntropy(t))
	require.NoError(t, err)

	clientPostSH, err := PutServerHello(serverHello, clientSt)
	require.NoError(t, err)

	encExt, cert, certVerify, serverPostCV, err := GetServerSignature(serverPostSH)
	require.NoError(t, err)

	clientPostCV, err := PutServerSignature(encExt, cert, certVerify, clientPostSH)
	require.NoError(t, err)

	serverFin, serverPostSF, err := GetServerFinished(serverPostCV)
	require.NoError(t, err)

	clientPostSF, err := PutServerFinished(serverFin, clientPostCV)
	require.NoError(t, err)

	clientFin, clientPostCF, err := GetClientFinished(clientPostSF)
	require.NoError(t, err)

	serverComplete, err := PutClientFinished(clientFin, serverPostSF)
	require.NoError(t, err)

	return clientPostCF, serverComplete
}

func TestFullHandshakeCertificateMode(t *testing.T) {
	clientPostCF, serverComplete := runCertificateHandshake(t)
	clientRMS, err := ClientComplete(clientPostCF)
	require.NoError(t, err)
	require.Equal(t, serverComplete.ResumptionMasterSecret, clientRMS)
	require.Len(t, clientRMS, 32)
}

func TestFullHandshakeCertificateModeDerivesUsableAppKeys(t *testing.T) {
	algorithms := certAlgorithms()
	certDER, signer := selfSignedECDSACert(t)
	cfg := ServerConfig{Algorithms: algorithms, CertDER: certDER, SigningKey: signer}

	clientHello, clientSt, err := GetClientHello(algorithms, []byte("example.com"), nil, testEntropy(t))
	require.NoError(t, err)
	serverPostCH, err := PutClientHello(cfg, clientHello)
	require.NoError(t, err)
	serverHello, serverPostSH, err := GetServerHello(serverPostCH, testEntropy(t))
	require.NoError(t, err)
	clientPostSH, err := PutServerHello(serverHello, clientSt)
	require.NoError(t, err)
	encExt, cert, certVerify, serverPostCV, err := GetServerSignature(serverPostSH)
	require.NoError(t, err)
	clientPostCV, err := PutServerSignature(encExt, cert, certVerify, clientPostSH)
	require.NoError(t, err)
	serverFin, serverPostSF, err := GetServerFinished(serverPostCV)
	require.NoError(t, err)
	clientPostSF, err := PutServerFinished(serverFin, clientPostCV)
	require.NoError(t, err)

	serverAppRead, clientAppWrite := clientPostSF.ClientGet1RTTKeys()
	clientAppRead, serverAppWrite := serverPostSF.ServerGet1RTTKeys()

	ct, err := clientAppWrite.Seal(ContentTypeApplicationData, []byte("ping"), nil)
	require.NoError(t, err)
	_, pt, err := clientAppRead.Open(ct, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("ping"), pt)

	ct, err = serverAppWrite.Seal(ContentTypeApplicationData, []byte("pong"), nil)
	require.NoError(t, err)
	_, pt, err = serverAppRead.Open(ct, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("pong"), pt)
}

func TestFullHandshakePSKMode(t *testing.T) {
	algorithms := certAlgorithms()
	algorithms.PSKMode = true

	ticket := &SessionTicket{Identity: []byte("resumption-ticket"), PSK: make([]byte, 32)}
	for i := range ticket.PSK {
		ticket.PSK[i] = byte(i)
	}
	cfg := ServerConfig{
		Algorithms: algorithms,
		LookupTicket: func(identity []byte) ([]byte, bool) {
			if string(identity) == string(ticket.Identity) {
				return ticket.PSK, true
			}
			return nil, false
		},
	}

	clientHello, clientSt, err := GetClientHello(algorithms, []byte("example.com"), ticket, testEntropy(t))
	require.NoError(t, err)

	serverPostCH, err := PutClientHello(cfg, clientHello)
	require.NoError(t, err)
	require.True(t, serverPostCH.usingPSK)

	serverHello, serverPostSH, err := GetServerHello(serverPostCH, testEntropy(t))
	require.NoError(t, err)

	clientPostSH, err := PutServerHello(serverHello, clientSt)
	require.NoError(t, err)

	encExt, serverPostCV, err := GetSkipServerSignature(serverPostSH)
	require.NoError(t, err)

	clientPostCV, err := PutSkipServerSignature(encExt, clientPostSH)
	require.NoError(t, err)

	serverFin, serverPostSF, err := GetServerFinished(serverPostCV)
	require.NoError(t, err)

	clientPostSF, err := PutServerFinished(serverFin, clientPostCV)
	require.NoError(t, err)

	clientFin, clientPostCF, err := GetClientFinished(clientPostSF)
	require.NoError(t, err)

	serverComplete, err := PutClientFinished(clientFin, serverPostSF)
	require.NoError(t, err)

	clientRMS, err := ClientComplete(clientPostCF)
	require.NoError(t, err)
	require.Equal(t, serverComplete.ResumptionMasterSecret, clientRMS)
}

func TestPutClientHelloRejectsUnknownPSKIdentity(t *testing.T) {
	algorithms := certAlgorithms()
	algorithms.PSKMode = true
	ticket := &SessionTicket{Identity: []byte("real-ticket"), PSK: make([]byte, 32)}

	clientHello, _, err := GetClientHello(algorithms, []byte("example.com"), ticket, testEntropy(t))
	require.NoError(t, err)

	cfg := ServerConfig{
		Algorithms: algorithms,
		LookupTicket: func(identity []byte) ([]byte, bool) {
			return nil, false
		},
	}
	serverPostCH, err := PutClientHello(cfg, clientHello)
	require.NoError(t, err)
	require.False(t, serverPostCH.usingPSK)
}

func TestPutServerHelloRejectsCipherSuiteMismatch(t *testing.T) {
	algorithms := certAlgorithms()
	_, clientSt, err := GetClientHello(algorithms, []byte("example.com"), nil, testEntropy(t))
	require.NoError(t, err)

	wrongSuite := ServerHelloMsg{
		Random:      [32]byte{1},
		CipherSuite: 0x1303,
		Extensions:  ServerExtensions{KeyShare: &KeyShareEntry{Group: KemX25519, Data: make([]byte, 32)}},
	}
	sh, err := EncodeServerHello(wrongSuite)
	require.NoError(t, err)
	_, err = PutServerHello(sh, clientSt)
	require.Error(t, err)
}

func TestPutServerFinishedRejectsTamperedVerifyData(t *testing.T) {
	algorithms := certAlgorithms()
	certDER, signer := selfSignedECDSACert(t)
	cfg := ServerConfig{Algorithms: algorithms, CertDER: certDER, SigningKey: signer}

	clientHello, clientSt, err := GetClientHello(algorithms, []byte("example.com"), nil, testEntropy(t))
	require.NoError(t, err)
	serverPostCH, err := PutClientHello(cfg, clientHello)
	require.NoError(t, err)
	serverHello, serverPostSH, err := GetServerHello(serverPostCH, testEntropy(t))
	require.NoError(t, err)
	clientPostSH, err := PutServerHello(serverHello, clientSt)
	require.NoError(t, err)
	encExt, cert, certVerify, serverPostCV, err := GetServerSignature(serverPostSH)
	require.NoError(t, err)
	clientPostCV, err := PutServerSignature(encExt, cert, certVerify, clientPostSH)
	require.NoError(t, err)

	tamperedFin := EncodeFinished(make([]byte, 32))
	_, err = PutServerFinished(tamperedFin, clientPostCV)
	require.Error(t, err)
}

func TestGetServerSignatureRejectedInPSKMode(t *testing.T) {
	algorithms := certAlgorithms()
	algorithms.PSKMode = true
	ticket := &SessionTicket{Identity: []byte("tid"), PSK: make([]byte, 32)}
	cfg := ServerConfig{
		Algorithms: algorithms,
		LookupTicket: func(identity []byte) ([]byte, bool) {
			return ticket.PSK, true
		},
	}
	clientHello, _, err := GetClientHello(algorithms, []byte("example.com"), ticket, testEntropy(t))
	require.NoError(t, err)
	serverPostCH, err := PutClientHello(cfg, clientHello)
	require.NoError(t, err)
	serverHello, serverPostSH, err := GetServerHello(serverPostCH, testEntropy(t))
	require.NoError(t, err)
	_ = serverHello

	_, _, _, _, err = GetServerSignature(serverPostSH)
	require.Error(t, err)
}

func TestFullHandshakeCertificateModeRSA(t *testing.T) {
	algorithms := certAlgorithms()
	algorithms.Signature = SignatureRSAPSSRSAEPSSSHA256
	certDER, signer := selfSignedRSACert(t)
	cfg := ServerConfig{Algorithms: algorithms, CertDER: certDER, SigningKey: signer}

	clientHello, clientSt, err := GetClientHello(algorithms, []byte("example.com"), nil, testEntropy(t))
	require.NoError(t, err)
	serverPostCH, err := PutClientHello(cfg, clientHello)
	require.NoError(t, err)
	serverHello, serverPostSH, err := GetServerHello(serverPostCH, testEntropy(t))
	require.NoError(t, err)
	clientPostSH, err := PutServerHello(serverHello, clientSt)
	require.NoError(t, err)
	encExt, cert, certVerify, serverPostCV, err := GetServerSignature(serverPostSH)
	require.NoError(t, err)
	clientPostCV, err := PutServerSignature(encExt, cert, certVerify, clientPostSH)
	require.NoError(t, err)
	serverFin, serverPostSF, err := GetServerFinished(serverPostCV)
	require.NoError(t, err)
	clientPostSF, err := PutServerFinished(serverFin, clientPostCV)
	require.NoError(t, err)
	clientFin, clientPostCF, err := GetClientFinished(clientPostSF)
	require.NoError(t, err)
	serverComplete, err := PutClientFinished(clientFin, serverPostSF)
	require.NoError(t, err)

	clientRMS, err := ClientComplete(clientPostCF)
	require.NoError(t, err)
	require.Equal(t, serverComplete.ResumptionMasterSecret, clientRMS)
}

func TestZeroRTTKeysClientServerSymmetry(t *testing.T) {
	algorithms := certAlgorithms()
	algorithms.PSKMode = true
	algorithms.ZeroRTT = true

	ticket := &SessionTicket{Identity: []byte("0rtt-ticket"), PSK: make([]byte, 32)}
	for i := range ticket.PSK {
		ticket.PSK[i] = byte(i + 1)
	}
	cfg := ServerConfig{
		Algorithms: algorithms,
		LookupTicket: func(identity []byte) ([]byte, bool) {
			if string(identity) == string(ticket.Identity) {
				return ticket.PSK, true
			}
			return nil, false
		},
	}

	clientHello, clientSt, err := GetClientHello(algorithms, []byte("example.com"), ticket, testEntropy(t))
	require.NoError(t, err)
	serverPostCH, err := PutClientHello(cfg, clientHello)
	require.NoError(t, err)
	require.True(t, serverPostCH.usingPSK)

	clientZeroRTT, err := clientSt.ClientGet0RTTKeys()
	require.NoError(t, err)
	serverZeroRTT, err := serverPostCH.ServerGet0RTTKeys()
	require.NoError(t, err)

	require.Equal(t, clientZeroRTT.Key, serverZeroRTT.Key)
	require.Equal(t, clientZeroRTT.IV, serverZeroRTT.IV)
	require.Equal(t, clientZeroRTT.EarlyExporterSecret, serverZeroRTT.EarlyExporterSecret)

	writeState, err := newCipherState(algorithms.Aead, clientZeroRTT.Key, clientZeroRTT.IV)
	require.NoError(t, err)
	readState, err := newCipherState(algorithms.Aead, serverZeroRTT.Key, serverZeroRTT.IV)
	require.NoError(t, err)

	ct, err := writeState.Seal(ContentTypeApplicationData, []byte("early data"), nil)
	require.NoError(t, err)
	_, pt, err := readState.Open(ct, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("early data"), pt)
}

func TestZeroRTTKeysRejectedWithoutNegotiation(t *testing.T) {
	algorithms := certAlgorithms()
	_, clientSt, err := GetClientHello(algorithms, []byte("example.com"), nil, testEntropy(t))
	require.NoError(t, err)

	_, err = clientSt.ClientGet0RTTKeys()
	require.Error(t, err)
}

func TestGetClientHelloRejectsInsufficientEntropy(t *testing.T) {
	algorithms := certAlgorithms()
	short := make([]byte, EntropyLen(algorithms.Kem)-1)
	_, _, err := GetClientHello(algorithms, []byte("example.com"), nil, short)
	require.Error(t, err)
	require.True(t, errors.Is(err, newError(KindInsufficientEntropy, "")))
}

func TestGetServerHelloRejectsInsufficientEntropy(t *testing.T) {
	algorithms := certAlgorithms()
	certDER, signer := selfSignedECDSACert(t)
	cfg := ServerConfig{Algorithms: algorithms, CertDER: certDER, SigningKey: signer}

	clientHello, _, err := GetClientHello(algorithms, []byte("example.com"), nil, testEntropy(t))
	require.NoError(t, err)
	serverPostCH, err := PutClientHello(cfg, clientHello)
	require.NoError(t, err)

	short := make([]byte, EntropyLen(algorithms.Kem)-1)
	_, _, err = GetServerHello(serverPostCH, short)
	require.Error(t, err)
	require.True(t, errors.Is(err, newError(KindInsufficientEntropy, "")))
}

// TestDeterministicHandshakeScenarioS1 reproduces the fixed-vector
// non-PSK scenario: client_random = 0xAA*32, server_random = 0xBB*32,
// X25519 private halves 0x01*32 and 0x02*32. The handshake must
// complete and both sides must agree on the resumption master secret.
func TestDeterministicHandshakeScenarioS1(t *testing.T) {
	algorithms := certAlgorithms()
	certDER, signer := selfSignedECDSACert(t)
	cfg := ServerConfig{Algorithms: algorithms, CertDER: certDER, SigningKey: signer}

	clientEntropy := append(bytes.Repeat([]byte{0xAA}, 32), bytes.Repeat([]byte{0x01}, 32)...)
	serverEntropy := append(bytes.Repeat([]byte{0xBB}, 32), bytes.Repeat([]byte{0x02}, 32)...)

	clientHello, clientSt, err := GetClientHello(algorithms, []byte("example.com"), nil, clientEntropy)
	require.NoError(t, err)
	require.Equal(t, clientEntropy[:32], clientSt.random[:])

	serverPostCH, err := PutClientHello(cfg, clientHello)
	require.NoError(t, err)
	serverHello, serverPostSH, err := GetServerHello(serverPostCH, serverEntropy)
	require.NoError(t, err)

	clientPostSH, err := PutServerHello(serverHello, clientSt)
	require.NoError(t, err)
	encExt, cert, certVerify, serverPostCV, err := GetServerSignature(serverPostSH)
	require.NoError(t, err)
	clientPostCV, err := PutServerSignature(encExt, cert, certVerify, clientPostSH)
	require.NoError(t, err)
	serverFin, serverPostSF, err := GetServerFinished(serverPostCV)
	require.NoError(t, err)
	clientPostSF, err := PutServerFinished(serverFin, clientPostCV)
	require.NoError(t, err)
	clientFin, clientPostCF, err := GetClientFinished(clientPostSF)
	require.NoError(t, err)
	serverComplete, err := PutClientFinished(clientFin, serverPostSF)
	require.NoError(t, err)

	clientRMS, err := ClientComplete(clientPostCF)
	require.NoError(t, err)
	require.Equal(t, serverComplete.ResumptionMasterSecret, clientRMS)

	serverAppRead, clientAppWrite := clientPostSF.ClientGet1RTTKeys()
	clientAppRead, serverAppWrite := serverPostSF.ServerGet1RTTKeys()
	ct, err := clientAppWrite.Seal(ContentTypeApplicationData, []byte("s1"), nil)
	require.NoError(t, err)
	_, pt, err := clientAppRead.Open(ct, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("s1"), pt)
	_ = serverAppRead
	_ = serverAppWrite
}

// TestDeterministicHandshakeScenarioS2 reproduces the fixed-vector
// PSK-only resumption scenario: PSK = 0xCC*32. No Certificate/
// CertificateVerify is exchanged.
func TestDeterministicHandshakeScenarioS2(t *testing.T) {
	algorithms := certAlgorithms()
	algorithms.PSKMode = true

	ticket := &SessionTicket{Identity: []byte("s2-ticket"), PSK: bytes.Repeat([]byte{0xCC}, 32)}
	algorithms.Aead = AeadChaCha20Poly1305
	cfg := ServerConfig{
		Algorithms: algorithms,
		LookupTicket: func(identity []byte) ([]byte, bool) {
			if string(identity) == string(ticket.Identity) {
				return ticket.PSK, true
			}
			return nil, false
		},
	}

	clientHello, clientSt, err := GetClientHello(algorithms, []byte("example.com"), ticket, testEntropy(t))
	require.NoError(t, err)
	serverPostCH, err := PutClientHello(cfg, clientHello)
	require.NoError(t, err)
	require.True(t, serverPostCH.usingPSK)

	serverHello, serverPostSH, err := GetServerHello(serverPostCH, testEntropy(t))
	require.NoError(t, err)
	clientPostSH, err := PutServerHello(serverHello, clientSt)
	require.NoError(t, err)
	encExt, serverPostCV, err := GetSkipServerSignature(serverPostSH)
	require.NoError(t, err)
	clientPostCV, err := PutSkipServerSignature(encExt, clientPostSH)
	require.NoError(t, err)
	serverFin, serverPostSF, err := GetServerFinished(serverPostCV)
	require.NoError(t, err)
	clientPostSF, err := PutServerFinished(serverFin, clientPostCV)
	require.NoError(t, err)
	clientFin, clientPostCF, err := GetClientFinished(clientPostSF)
	require.NoError(t, err)
	serverComplete, err := PutClientFinished(clientFin, serverPostSF)
	require.NoError(t, err)

	clientRMS, err := ClientComplete(clientPostCF)
	require.NoError(t, err)
	require.Equal(t, serverComplete.ResumptionMasterSecret, clientRMS)
}

// TestPutClientHelloRejectsBinderMismatch covers a client that offers
// a PSK identity the server recognizes but whose binder HMAC does not
// verify (e.g. computed over the wrong PSK). The server must hard-fail
// rather than silently falling back to a full, unauthenticated
// handshake.
func TestPutClientHelloRejectsBinderMismatch(t *testing.T) {
	algorithms := certAlgorithms()
	algorithms.PSKMode = true
	ticket := &SessionTicket{Identity: []byte("s2-ticket"), PSK: bytes.Repeat([]byte{0xCC}, 32)}

	cfg := ServerConfig{
		Algorithms: algorithms,
		LookupTicket: func(identity []byte) ([]byte, bool) {
			if string(identity) == string(ticket.Identity) {
				return ticket.PSK, true
			}
			return nil, false
		},
	}

	_, kemPub, err := kemKeygen(algorithms.Kem, testEntropy(t)[32:])
	require.NoError(t, err)

	ch := ClientHelloMsg{
		Random:             [32]byte{0xAA},
		CipherSuites:       []uint16{0x1301},
		CompressionMethods: []byte{0x00},
		Extensions: ClientExtensions{
			ServerName:          []byte("example.com"),
			SupportedGroups:     []KemScheme{algorithms.Kem},
			SignatureAlgorithms: []SignatureScheme{algorithms.Signature},
			KeyShares:           []KeyShareEntry{{Group: algorithms.Kem, Data: kemPub}},
			PSKKeyExchangeModes: true,
			PreSharedKey: &PSKExtension{
				Identity:  ticket.Identity,
				TicketAge: 0,
				Binder:    make([]byte, algorithms.Hash.size()), // all-zero: wrong binder
			},
		},
	}
	msg, err := EncodeClientHello(ch)
	require.NoError(t, err)

	_, err = PutClientHello(cfg, msg)
	require.Error(t, err)
	require.True(t, errors.Is(err, newError(KindMacFailed, "")))
}

// TestGetServerSignatureNilSigningKeyFailsCleanly covers a server
// config with no CertDER/SigningKey (as a PSK-only server would have)
// that is nonetheless driven into GetServerSignature: it must
// return an error, never panic on the nil crypto.Signer.
func TestGetServerSignatureNilSigningKeyFailsCleanly(t *testing.T) {
	algorithms := certAlgorithms()
	cfg := ServerConfig{Algorithms: algorithms}

	clientHello, _, err := GetClientHello(algorithms, []byte("example.com"), nil, testEntropy(t))
	require.NoError(t, err)
	serverPostCH, err := PutClientHello(cfg, clientHello)
	require.NoError(t, err)
	serverHello, serverPostSH, err := GetServerHello(serverPostCH, testEntropy(t))
	require.NoError(t, err)
	_ = serverHello

	require.NotPanics(t, func() {
		_, _, _, _, err = GetServerSignature(serverPostSH)
		require.Error(t, err)
	})
}
