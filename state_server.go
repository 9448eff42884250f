package tls13

import (
	"crypto"
)

// Server-side linear handshake state machine, mirroring state_client.go.
// Ported from original_source/src/tls13handshake.rs's
// ServerPostClientHello/ServerPostServerHello/
// ServerPostCertificateVerify/ServerPostServerFinished chain and their
// put_client_hello/server_get_0rtt_keys/get_server_hello/
// get_server_signature/get_skip_server_signature/get_server_finished/
// server_get_1rtt_keys/put_client_finished/server_complete functions.

// ServerConfig names the algorithms this server is willing to
// negotiate, its certificate (DER, leaf only) and signing key when
// certificate-authenticated mode may be selected, and a PSK lookup for
// resumption.
type ServerConfig struct {
	Algorithms  Algorithms
	CertDER     []byte
	SigningKey  crypto.Signer
	LookupTicket func(identity []byte) (psk []byte, ok bool)
}

// ServerPostClientHello is produced by PutClientHello and consumed by
// GetServerHello.
type ServerPostClientHello struct {
	cfg         ServerConfig
	algorithms  Algorithms
	clientShare []byte
	transcript  *Transcript
	earlySecret []byte
	usingPSK    bool
}

// PutClientHello negotiates algorithms against a ClientHello and
// returns the state needed to produce a ServerHello. Negotiation is
// deliberately narrow: the first mutually supported cipher suite, the
// client's (single) key share for the configured group, and — when
// offered — a PSK identity this server recognizes.
func PutClientHello(cfg ServerConfig, ch HandshakeData) (*ServerPostClientHello, error) {
	if ch.Type != HandshakeClientHello {
		return nil, newError(KindProtocolViolation, "PutClientHello: expected ClientHello")
	}
	msg, err := ParseClientHello(ch.Body)
	if err != nil {
		return nil, err
	}
	suite := mutualCipherSuiteTLS13(msg.CipherSuites, []*cipherSuiteTLS13{cipherSuiteTLS13ByID(mustWireID(cfg.Algorithms))})
	if suite == nil {
		return nil, newError(KindNegotiationFailed, "PutClientHello: no mutual cipher suite")
	}

	var clientShare []byte
	for _, ks := range msg.Extensions.KeyShares {
		if ks.Group == cfg.Algorithms.Kem {
			clientShare = ks.Data
			break
		}
	}
	if clientShare == nil {
		return nil, newError(KindNegotiationFailed, "PutClientHello: no matching key_share")
	}

	algorithms := cfg.Algorithms
	usingPSK := false
	var earlySecret []byte
	if msg.Extensions.PreSharedKey != nil && msg.Extensions.PSKKeyExchangeModes && cfg.LookupTicket != nil {
		if psk, ok := cfg.LookupTicket(msg.Extensions.PreSharedKey.Identity); ok {
			earlySecret = deriveEarlySecret(algorithms.Hash, psk)
			binderKey, err := deriveBinderKey(algorithms.Hash, earlySecret, true)
			if err != nil {
				return nil, err
			}
			binderListLen := 1 + algorithms.Hash.size()
			empty := NewTranscript(algorithms.Hash)
			binderHash, err := empty.HashTruncatedClientHello(ch, binderListLen)
			if err != nil {
				return nil, err
			}
			finKey, err := deriveFinishedKey(algorithms.Hash, binderKey)
			if err != nil {
				return nil, err
			}
			expected := computeVerifyData(algorithms.Hash, finKey, binderHash)
			if err := checkEqConstantTime(expected, msg.Extensions.PreSharedKey.Binder); err != nil {
				return nil, wrapError(KindMacFailed, "PutClientHello: psk binder verification failed", err)
			}
			usingPSK = true
		}
	}
	algorithms.PSKMode = usingPSK
	if !usingPSK {
		algorithms.ZeroRTT = false
		earlySecret = nil
	}

	transcript := NewTranscript(algorithms.Hash)
	if err := transcript.Add(ch); err != nil {
		return nil, err
	}

	return &ServerPostClientHello{
		cfg:         cfg,
		algorithms:  algorithms,
		clientShare: clientShare,
		transcript:  transcript,
		earlySecret: earlySecret,
		usingPSK:    usingPSK,
	}, nil
}

func mustWireID(a Algorithms) uint16 {
	id, err := cipherSuiteWireID(a)
	if err != nil {
		return 0
	}
	return id
}

// ServerGet0RTTKeys derives the 0-RTT server read key/IV, valid only
// when PSK resumption with early data was negotiated.
func (st *ServerPostClientHello) ServerGet0RTTKeys() (*zeroRTTKeys, error) {
	if !st.algorithms.PSKMode || !st.algorithms.ZeroRTT {
		return nil, newError(KindNegotiationFailed, "ServerGet0RTTKeys: 0-RTT not negotiated")
	}
	return deriveZeroRTTKeys(st.algorithms.Hash, st.algorithms.Aead, st.earlySecret, st.transcript.Hash())
}

// ServerPostServerHello is produced by GetServerHello and consumed by
// GetServerSignature/GetSkipServerSignature.
type ServerPostServerHello struct {
	cfg          ServerConfig
	algorithms   Algorithms
	transcript   *Transcript
	hs           *handshakeSecrets
	serverWrite  *cipherState
	clientRead   *cipherState
}

// GetServerHello completes the KEM exchange, emits the ServerHello,
// and derives the handshake traffic secrets and handshake-phase
// cipher states.
//
// entropy is the caller-supplied randomness source: the first 32 bytes
// seed the handshake random, the next dhPrivLen(st.algorithms.Kem)
// bytes seed the ephemeral KEM keypair. It must be at least
// 32+dhPrivLen(st.algorithms.Kem) bytes long or GetServerHello fails
// with KindInsufficientEntropy.
func GetServerHello(st *ServerPostClientHello, entropy []byte) (HandshakeData, *ServerPostServerHello, error) {
	need := 32 + dhPrivLen(st.algorithms.Kem)
	if len(entropy) < need {
		return HandshakeData{}, nil, newError(KindInsufficientEntropy, "GetServerHello: entropy buffer too short")
	}
	var random [32]byte
	copy(random[:], entropy[:32])
	kemPriv, kemPub, err := kemKeygen(st.algorithms.Kem, entropy[32:need])
	if err != nil {
		return HandshakeData{}, nil, err
	}
	sharedSecret, err := kemDecap(st.algorithms.Kem, kemPriv, st.clientShare)
	if err != nil {
		return HandshakeData{}, nil, err
	}

	suiteID, err := cipherSuiteWireID(st.algorithms)
	if err != nil {
		return HandshakeData{}, nil, err
	}

	exts := ServerExtensions{KeyShare: &KeyShareEntry{Group: st.algorithms.Kem, Data: kemPub}}
	if st.usingPSK {
		zero := uint16(0)
		exts.SelectedIdentity = &zero
	}

	sh := ServerHelloMsg{Random: random, CipherSuite: suiteID, Extensions: exts}
	msg, err := EncodeServerHello(sh)
	if err != nil {
		return HandshakeData{}, nil, err
	}
	if err := st.transcript.Add(msg); err != nil {
		return HandshakeData{}, nil, err
	}

	hs, err := deriveHandshakeSecrets(st.algorithms.Hash, st.algorithms.Aead, st.earlySecret, sharedSecret, st.transcript.Hash())
	if err != nil {
		return HandshakeData{}, nil, err
	}
	serverWrite, err := newCipherState(st.algorithms.Aead, hs.ServerWriteKey, hs.ServerWriteIV)
	if err != nil {
		return HandshakeData{}, nil, err
	}
	clientRead, err := newCipherState(st.algorithms.Aead, hs.ClientWriteKey, hs.ClientWriteIV)
	if err != nil {
		return HandshakeData{}, nil, err
	}

	return msg, &ServerPostServerHello{
		cfg:         st.cfg,
		algorithms:  st.algorithms,
		transcript:  st.transcript,
		hs:          hs,
		serverWrite: serverWrite,
		clientRead:  clientRead,
	}, nil
}

// HandshakeWriteState exposes the keys needed to encrypt the server's
// encrypted handshake flight.
func (st *ServerPostServerHello) HandshakeWriteState() *cipherState { return st.serverWrite }

// ServerPostCertificateVerify is produced by GetServerSignature or
// GetSkipServerSignature and consumed by GetServerFinished.
type ServerPostCertificateVerify struct {
	cfg         ServerConfig
	algorithms  Algorithms
	transcript  *Transcript
	hs          *handshakeSecrets
	serverWrite *cipherState
	clientRead  *cipherState
}

// GetServerSignature emits EncryptedExtensions, Certificate and a
// signed CertificateVerify in certificate-authenticated mode.
func GetServerSignature(st *ServerPostServerHello) (encExt, cert, certVerify HandshakeData, next *ServerPostCertificateVerify, err error) {
	if st.algorithms.PSKMode {
		return HandshakeData{}, HandshakeData{}, HandshakeData{}, nil, newError(KindPskModeMismatch, "GetServerSignature: not valid in psk_mode")
	}
	encExt, err = EncodeEncryptedExtensions(ServerExtensions{})
	if err != nil {
		return
	}
	if err = st.transcript.Add(encExt); err != nil {
		return
	}

	cert, err = EncodeCertificate(st.cfg.CertDER)
	if err != nil {
		return
	}
	if err = st.transcript.Add(cert); err != nil {
		return
	}

	sigInput := append(append([]byte{}, serverCertificateVerifyPrefix...), st.transcript.Hash()...)
	sig, err := sign(st.algorithms.Signature, st.cfg.SigningKey, sigInput)
	if err != nil {
		return
	}
	certVerify, err = EncodeCertificateVerify(st.algorithms.Signature, sig)
	if err != nil {
		return
	}
	if err = st.transcript.Add(certVerify); err != nil {
		return
	}

	next = &ServerPostCertificateVerify{
		cfg:         st.cfg,
		algorithms:  st.algorithms,
		transcript:  st.transcript,
		hs:          st.hs,
		serverWrite: st.serverWrite,
		clientRead:  st.clientRead,
	}
	return
}

// GetSkipServerSignature emits EncryptedExtensions only, in PSK mode.
func GetSkipServerSignature(st *ServerPostServerHello) (encExt HandshakeData, next *ServerPostCertificateVerify, err error) {
	if !st.algorithms.PSKMode {
		return HandshakeData{}, nil, newError(KindPskModeMismatch, "GetSkipServerSignature: only valid in psk_mode")
	}
	encExt, err = EncodeEncryptedExtensions(ServerExtensions{})
	if err != nil {
		return
	}
	if err = st.transcript.Add(encExt); err != nil {
		return
	}
	next = &ServerPostCertificateVerify{
		cfg:         st.cfg,
		algorithms:  st.algorithms,
		transcript:  st.transcript,
		hs:          st.hs,
		serverWrite: st.serverWrite,
		clientRead:  st.clientRead,
	}
	return
}

// ServerPostServerFinished is produced by GetServerFinished and
// consumed by PutClientFinished.
type ServerPostServerFinished struct {
	algorithms        Algorithms
	transcript        *Transcript
	as                *applicationSecrets
	serverAppWrite    *cipherState
	clientAppRead     *cipherState
	clientFinishedKey []byte
	sfHash            []byte
}

// GetServerFinished emits the server's Finished message and derives
// the application traffic secrets and application-phase cipher
// states.
func GetServerFinished(st *ServerPostCertificateVerify) (HandshakeData, *ServerPostServerFinished, error) {
	verifyData := computeVerifyData(st.algorithms.Hash, st.hs.ServerFinishedKey, st.transcript.Hash())
	fin := EncodeFinished(verifyData)
	if err := st.transcript.Add(fin); err != nil {
		return HandshakeData{}, nil, err
	}
	sfHash := st.transcript.Hash()

	as, err := deriveApplicationSecrets(st.algorithms.Hash, st.algorithms.Aead, st.hs.HandshakeSecret, sfHash)
	if err != nil {
		return HandshakeData{}, nil, err
	}
	serverAppWrite, err := newCipherState(st.algorithms.Aead, as.ServerWriteKey, as.ServerWriteIV)
	if err != nil {
		return HandshakeData{}, nil, err
	}
	clientAppRead, err := newCipherState(st.algorithms.Aead, as.ClientWriteKey, as.ClientWriteIV)
	if err != nil {
		return HandshakeData{}, nil, err
	}

	return fin, &ServerPostServerFinished{
		algorithms:        st.algorithms,
		transcript:        st.transcript,
		as:                as,
		serverAppWrite:    serverAppWrite,
		clientAppRead:     clientAppRead,
		clientFinishedKey: st.hs.ClientFinishedKey,
		sfHash:            sfHash,
	}, nil
}

// ServerGet1RTTKeys exposes the application-phase cipher states.
func (st *ServerPostServerFinished) ServerGet1RTTKeys() (read, write *cipherState) {
	return st.clientAppRead, st.serverAppWrite
}

// ServerComplete is the terminal server state, produced by
// PutClientFinished.
type ServerComplete struct {
	ResumptionMasterSecret []byte
}

// PutClientFinished verifies the client's Finished MAC and returns the
// resumption master secret this connection can use to issue a
// NewSessionTicket.
func PutClientFinished(fin HandshakeData, st *ServerPostServerFinished) (*ServerComplete, error) {
	if fin.Type != HandshakeFinished {
		return nil, newError(KindProtocolViolation, "PutClientFinished: expected Finished")
	}
	expected := computeVerifyData(st.algorithms.Hash, st.clientFinishedKey, st.sfHash)
	if err := checkEqConstantTime(expected, ParseFinished(fin.Body)); err != nil {
		return nil, wrapError(KindMacFailed, "PutClientFinished: verify_data mismatch", err)
	}
	if err := st.transcript.Add(fin); err != nil {
		return nil, err
	}
	rms, err := deriveResumptionMasterSecret(st.algorithms.Hash, st.as.MasterSecret, st.transcript.Hash())
	if err != nil {
		return nil, err
	}
	return &ServerComplete{ResumptionMasterSecret: rms}, nil
}
