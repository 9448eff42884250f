package tls13

// Client-side linear handshake state machine. Ported transition-by-
// transition from original_source/src/tls13handshake.rs's
// ClientPostClientHello/ClientPostServerHello/
// ClientPostCertificateVerify/ClientPostServerFinished/
// ClientPostClientFinished/ClientComplete chain and their
// get_client_hello/put_server_hello/put_server_signature/
// put_skip_server_signature/put_server_finished/get_client_finished/
// client_complete functions.
//
// Each state is a distinct struct type passed by pointer: a transition
// takes the prior state and returns the next one, never the same type again.
// Go has no linear types to enforce this statically, so the discipline
// is a calling convention, documented here the way bertie's types
// enforce it algebraically and mint's ClientStateStart.Next enforces
// it by returning a fresh HandshakeState each call.

// SessionTicket is a previously issued NewSessionTicket, reduced to
// what resumption needs: the opaque ticket identity and the
// resumption PSK it names (resumption_master_secret, in this core's
// single-ticket-per-connection model).
type SessionTicket struct {
	Identity []byte
	PSK      []byte
}

// ClientPostClientHello is produced by GetClientHello and consumed by
// PutServerHello.
type ClientPostClientHello struct {
	algorithms  Algorithms
	random      [32]byte
	kemPriv     []byte
	clientHello HandshakeData
	transcript  *Transcript
	earlySecret []byte // nil unless PSKMode
	psk         []byte
}

// GetClientHello builds a ClientHello for the given algorithms and
// server name, optionally offering resumption via ticket (required
// when algorithms.PSKMode is set). It returns the message to send and
// the state needed to process the ServerHello.
//
// entropy is the caller-supplied randomness source: the first 32 bytes
// seed the handshake random, the next dhPrivLen(algorithms.Kem) bytes
// seed the ephemeral KEM keypair. It must be at least
// 32+dhPrivLen(algorithms.Kem) bytes long or GetClientHello fails with
// KindInsufficientEntropy.
func GetClientHello(algorithms Algorithms, serverName []byte, ticket *SessionTicket, entropy []byte) (HandshakeData, *ClientPostClientHello, error) {
	need := 32 + dhPrivLen(algorithms.Kem)
	if len(entropy) < need {
		return HandshakeData{}, nil, newError(KindInsufficientEntropy, "GetClientHello: entropy buffer too short")
	}
	var random [32]byte
	copy(random[:], entropy[:32])

	kemPriv, kemPub, err := kemKeygen(algorithms.Kem, entropy[32:need])
	if err != nil {
		return HandshakeData{}, nil, err
	}

	exts := ClientExtensions{
		ServerName:          serverName,
		SupportedGroups:     []KemScheme{algorithms.Kem},
		SignatureAlgorithms: []SignatureScheme{algorithms.Signature},
		KeyShares:           []KeyShareEntry{{Group: algorithms.Kem, Data: kemPub}},
	}

	suiteID, err := cipherSuiteWireID(algorithms)
	if err != nil {
		return HandshakeData{}, nil, err
	}

	var earlySecret, psk []byte
	if algorithms.PSKMode {
		if ticket == nil {
			return HandshakeData{}, nil, newError(KindNegotiationFailed, "GetClientHello: psk_mode requires a session ticket")
		}
		psk = ticket.PSK
		earlySecret = deriveEarlySecret(algorithms.Hash, psk)
		exts.PSKKeyExchangeModes = true
		exts.PreSharedKey = &PSKExtension{
			Identity:  ticket.Identity,
			TicketAge: 0,
			Binder:    make([]byte, algorithms.Hash.size()),
		}
	}

	ch := ClientHelloMsg{
		Random:             random,
		CipherSuites:       []uint16{suiteID},
		CompressionMethods: []byte{0x00},
		Extensions:         exts,
	}
	msg, err := EncodeClientHello(ch)
	if err != nil {
		return HandshakeData{}, nil, err
	}

	if algorithms.PSKMode {
		binderKey, err := deriveBinderKey(algorithms.Hash, earlySecret, true)
		if err != nil {
			return HandshakeData{}, nil, err
		}
		empty := NewTranscript(algorithms.Hash)
		binderListLen := 1 + algorithms.Hash.size() // 1-byte len prefix + binder
		binderHash, err := empty.HashTruncatedClientHello(msg, binderListLen)
		if err != nil {
			return HandshakeData{}, nil, err
		}
		finKey, err := deriveFinishedKey(algorithms.Hash, binderKey)
		if err != nil {
			return HandshakeData{}, nil, err
		}
		ch.Extensions.PreSharedKey.Binder = computeVerifyData(algorithms.Hash, finKey, binderHash)
		msg, err = EncodeClientHello(ch)
		if err != nil {
			return HandshakeData{}, nil, err
		}
	}

	transcript := NewTranscript(algorithms.Hash)
	if err := transcript.Add(msg); err != nil {
		return HandshakeData{}, nil, err
	}

	return msg, &ClientPostClientHello{
		algorithms:  algorithms,
		random:      random,
		kemPriv:     kemPriv,
		clientHello: msg,
		transcript:  transcript,
		earlySecret: earlySecret,
		psk:         psk,
	}, nil
}

// ClientGet0RTTKeys derives the 0-RTT client write key/IV and early
// exporter secret. Only valid when algorithms.PSKMode && ZeroRTT.
func (st *ClientPostClientHello) ClientGet0RTTKeys() (*zeroRTTKeys, error) {
	if !st.algorithms.PSKMode || !st.algorithms.ZeroRTT {
		return nil, newError(KindNegotiationFailed, "ClientGet0RTTKeys: 0-RTT not negotiated")
	}
	return deriveZeroRTTKeys(st.algorithms.Hash, st.algorithms.Aead, st.earlySecret, st.transcript.Hash())
}

// ClientPostServerHello is produced by PutServerHello and consumed by
// PutServerSignature/PutSkipServerSignature.
type ClientPostServerHello struct {
	algorithms  Algorithms
	transcript  *Transcript
	hs          *handshakeSecrets
	serverRead  *cipherState
	clientWrite *cipherState
}

// PutServerHello processes a ServerHello, completes the KEM, and
// derives the handshake traffic secrets and handshake-phase cipher
// states.
func PutServerHello(sh HandshakeData, st *ClientPostClientHello) (*ClientPostServerHello, error) {
	if sh.Type != HandshakeServerHello {
		return nil, newError(KindProtocolViolation, "PutServerHello: expected ServerHello")
	}
	msg, err := ParseServerHello(sh.Body)
	if err != nil {
		return nil, err
	}
	suite := cipherSuiteTLS13ByID(msg.CipherSuite)
	if suite == nil || suite.aead != st.algorithms.Aead || suite.hash != st.algorithms.Hash {
		return nil, newError(KindNegotiationFailed, "PutServerHello: cipher suite mismatch")
	}
	if msg.Extensions.KeyShare == nil || msg.Extensions.KeyShare.Group != st.algorithms.Kem {
		return nil, newError(KindNegotiationFailed, "PutServerHello: missing or mismatched key_share")
	}
	if st.algorithms.PSKMode != (msg.Extensions.SelectedIdentity != nil) {
		return nil, newError(KindNegotiationFailed, "PutServerHello: psk_mode mismatch")
	}

	sharedSecret, err := kemDecap(st.algorithms.Kem, st.kemPriv, msg.Extensions.KeyShare.Data)
	if err != nil {
		return nil, err
	}

	if err := st.transcript.Add(sh); err != nil {
		return nil, err
	}

	hs, err := deriveHandshakeSecrets(st.algorithms.Hash, st.algorithms.Aead, st.earlySecret, sharedSecret, st.transcript.Hash())
	if err != nil {
		return nil, err
	}
	serverRead, err := newCipherState(st.algorithms.Aead, hs.ServerWriteKey, hs.ServerWriteIV)
	if err != nil {
		return nil, err
	}
	clientWrite, err := newCipherState(st.algorithms.Aead, hs.ClientWriteKey, hs.ClientWriteIV)
	if err != nil {
		return nil, err
	}

	return &ClientPostServerHello{
		algorithms:  st.algorithms,
		transcript:  st.transcript,
		hs:          hs,
		serverRead:  serverRead,
		clientWrite: clientWrite,
	}, nil
}

// HandshakeReadState exposes the keys needed to decrypt the server's
// encrypted handshake flight.
func (st *ClientPostServerHello) HandshakeReadState() *cipherState { return st.serverRead }

// ClientPostCertificateVerify is produced by PutServerSignature or
// PutSkipServerSignature and consumed by PutServerFinished.
type ClientPostCertificateVerify struct {
	algorithms  Algorithms
	transcript  *Transcript
	hs          *handshakeSecrets
	serverRead  *cipherState
	clientWrite *cipherState
}

// PutServerSignature verifies EncryptedExtensions, Certificate and
// CertificateVerify in certificate-authenticated mode.
func PutServerSignature(encExt, cert, certVerify HandshakeData, st *ClientPostServerHello) (*ClientPostCertificateVerify, error) {
	if st.algorithms.PSKMode {
		return nil, newError(KindPskModeMismatch, "PutServerSignature: not valid in psk_mode")
	}
	if encExt.Type != HandshakeEncryptedExtensions || cert.Type != HandshakeCertificate || certVerify.Type != HandshakeCertificateVerify {
		return nil, newError(KindProtocolViolation, "PutServerSignature: unexpected message type")
	}
	if _, err := ParseEncryptedExtensions(encExt.Body); err != nil {
		return nil, err
	}
	if err := st.transcript.Add(encExt); err != nil {
		return nil, err
	}

	certDER, err := ParseCertificate(cert.Body)
	if err != nil {
		return nil, err
	}
	scheme, pubKey, err := VerificationKeyFromCert(certDER)
	if err != nil {
		return nil, err
	}
	if scheme != st.algorithms.Signature {
		return nil, newError(KindInvalidCertificate, "PutServerSignature: certificate key does not match negotiated scheme")
	}
	if err := st.transcript.Add(cert); err != nil {
		return nil, err
	}

	sigScheme, sig, err := ParseCertificateVerify(certVerify.Body)
	if err != nil {
		return nil, err
	}
	if sigScheme != st.algorithms.Signature {
		return nil, newError(KindNegotiationFailed, "PutServerSignature: signature scheme mismatch")
	}
	sigInput := append(append([]byte{}, serverCertificateVerifyPrefix...), st.transcript.Hash()...)
	if err := verifySignature(sigScheme, pubKey, sigInput, sig); err != nil {
		return nil, err
	}
	if err := st.transcript.Add(certVerify); err != nil {
		return nil, err
	}

	return &ClientPostCertificateVerify{
		algorithms:  st.algorithms,
		transcript:  st.transcript,
		hs:          st.hs,
		serverRead:  st.serverRead,
		clientWrite: st.clientWrite,
	}, nil
}

// PutSkipServerSignature processes EncryptedExtensions in PSK mode,
// where no Certificate/CertificateVerify is sent.
func PutSkipServerSignature(encExt HandshakeData, st *ClientPostServerHello) (*ClientPostCertificateVerify, error) {
	if !st.algorithms.PSKMode {
		return nil, newError(KindPskModeMismatch, "PutSkipServerSignature: only valid in psk_mode")
	}
	if encExt.Type != HandshakeEncryptedExtensions {
		return nil, newError(KindProtocolViolation, "PutSkipServerSignature: expected EncryptedExtensions")
	}
	if _, err := ParseEncryptedExtensions(encExt.Body); err != nil {
		return nil, err
	}
	if err := st.transcript.Add(encExt); err != nil {
		return nil, err
	}
	return &ClientPostCertificateVerify{
		algorithms:  st.algorithms,
		transcript:  st.transcript,
		hs:          st.hs,
		serverRead:  st.serverRead,
		clientWrite: st.clientWrite,
	}, nil
}

// serverCertificateVerifyPrefix is RFC 8446 §4.4.3's 98-byte constant
// context string prepended to the transcript hash before signing or
// verifying a server CertificateVerify.
var serverCertificateVerifyPrefix = buildServerCertificateVerifyPrefix()

func buildServerCertificateVerifyPrefix() []byte {
	out := make([]byte, 64, 64+34+1)
	for i := range out {
		out[i] = 0x20
	}
	out = append(out, []byte("TLS 1.3, server CertificateVerify")...)
	out = append(out, 0x00)
	return out
}

// ClientPostServerFinished is produced by PutServerFinished and
// consumed by GetClientFinished.
type ClientPostServerFinished struct {
	algorithms       Algorithms
	transcript       *Transcript
	as               *applicationSecrets
	serverAppRead    *cipherState
	clientAppWrite   *cipherState
	clientFinishedKey []byte
}

// PutServerFinished verifies the server's Finished MAC and derives the
// application traffic secrets and application-phase cipher states.
func PutServerFinished(fin HandshakeData, st *ClientPostCertificateVerify) (*ClientPostServerFinished, error) {
	if fin.Type != HandshakeFinished {
		return nil, newError(KindProtocolViolation, "PutServerFinished: expected Finished")
	}
	expected := computeVerifyData(st.algorithms.Hash, st.hs.ServerFinishedKey, st.transcript.Hash())
	if err := checkEqConstantTime(expected, ParseFinished(fin.Body)); err != nil {
		return nil, wrapError(KindMacFailed, "PutServerFinished: verify_data mismatch", err)
	}
	if err := st.transcript.Add(fin); err != nil {
		return nil, err
	}

	as, err := deriveApplicationSecrets(st.algorithms.Hash, st.algorithms.Aead, st.hs.HandshakeSecret, st.transcript.Hash())
	if err != nil {
		return nil, err
	}
	serverAppRead, err := newCipherState(st.algorithms.Aead, as.ServerWriteKey, as.ServerWriteIV)
	if err != nil {
		return nil, err
	}
	clientAppWrite, err := newCipherState(st.algorithms.Aead, as.ClientWriteKey, as.ClientWriteIV)
	if err != nil {
		return nil, err
	}

	return &ClientPostServerFinished{
		algorithms:        st.algorithms,
		transcript:        st.transcript,
		as:                as,
		serverAppRead:     serverAppRead,
		clientAppWrite:    clientAppWrite,
		clientFinishedKey: st.hs.ClientFinishedKey,
	}, nil
}

// ClientGet1RTTKeys exposes the application-phase cipher states.
func (st *ClientPostServerFinished) ClientGet1RTTKeys() (read, write *cipherState) {
	return st.serverAppRead, st.clientAppWrite
}

// ClientPostClientFinished is produced by GetClientFinished and
// consumed by ClientComplete.
type ClientPostClientFinished struct {
	algorithms Algorithms
	as         *applicationSecrets
	cfHash     []byte
}

// GetClientFinished emits the client's Finished message.
func GetClientFinished(st *ClientPostServerFinished) (HandshakeData, *ClientPostClientFinished, error) {
	verifyData := computeVerifyData(st.algorithms.Hash, st.clientFinishedKey, st.transcript.Hash())
	fin := EncodeFinished(verifyData)
	if err := st.transcript.Add(fin); err != nil {
		return HandshakeData{}, nil, err
	}
	return fin, &ClientPostClientFinished{
		algorithms: st.algorithms,
		as:         st.as,
		cfHash:     st.transcript.Hash(),
	}, nil
}

// ClientComplete finalizes the handshake, returning the resumption
// master secret a later connection can use as a SessionTicket PSK.
func ClientComplete(st *ClientPostClientFinished) ([]byte, error) {
	return deriveResumptionMasterSecret(st.algorithms.Hash, st.as.MasterSecret, st.cfHash)
}
