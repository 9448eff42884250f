package tls13

// RFC 8446 §7.1 key schedule. Ported from
// original_source/src/tls13handshake.rs's hkdf_expand_label/
// derive_secret/derive_binder_key/derive_aead_key_iv/
// derive_0rtt_keys/derive_finished_key/derive_hk_ms/derive_app_keys/
// derive_rms, built on the hkdfExpandLabel/deriveSecret facade in
// crypto.go.
//
// One correction from the source: derive_0rtt_keys there recomputes
// the early-exporter secret with label_c_e_traffic a second time (a
// copy-paste bug) instead of RFC 8446's distinct "e exp master" label.
// deriveZeroRTTKeys below uses the RFC-correct label and returns the
// exporter secret to the caller, which bertie's version never surfaced.
const (
	labelExtBinder          = "ext binder"
	labelResBinder          = "res binder"
	labelCEarlyTraffic      = "c e traffic"
	labelEarlyExporterMaster = "e exp master"
	labelDerived            = "derived"
	labelCHSTraffic         = "c hs traffic"
	labelSHSTraffic         = "s hs traffic"
	labelFinished           = "finished"
	labelKey                = "key"
	labelIV                 = "iv"
	labelCAppTraffic        = "c ap traffic"
	labelSAppTraffic        = "s ap traffic"
	labelExpMaster          = "exp master"
	labelResMaster          = "res master"
)

// deriveEarlySecret computes Early Secret = HKDF-Extract(0, PSK). When
// psk is nil (no PSK offered/accepted), the all-zero IKM of the
// negotiated hash's length is used, per RFC 8446 §7.1's key schedule
// diagram.
func deriveEarlySecret(h HashAlgorithm, psk []byte) []byte {
	if psk == nil {
		psk = make([]byte, h.size())
	}
	return hkdfExtract(h, nil, psk)
}

// deriveBinderKey computes binder_key = Derive-Secret(early_secret,
// "res binder" | "ext binder", ""). resumption selects the resumption
// (ticket-derived) PSK label; external PSKs are out of this core's
// scope (spec.md only wires session-ticket resumption), so callers
// always pass true today.
func deriveBinderKey(h HashAlgorithm, earlySecret []byte, resumption bool) ([]byte, error) {
	label := labelExtBinder
	if resumption {
		label = labelResBinder
	}
	return deriveSecret(h, earlySecret, label, hash(h, nil))
}

// deriveFinishedKey computes finished_key = HKDF-Expand-Label(secret,
// "finished", "", Hash.length).
func deriveFinishedKey(h HashAlgorithm, secret []byte) ([]byte, error) {
	return hkdfExpandLabel(h, secret, labelFinished, nil, h.size())
}

// deriveAEADKeyIV computes {write_key, write_iv} = {HKDF-Expand-Label(
// secret, "key", "", key_length), HKDF-Expand-Label(secret, "iv", "",
// iv_length)} for the given traffic secret.
func deriveAEADKeyIV(h HashAlgorithm, a AeadAlgorithm, secret []byte) (key, iv []byte, err error) {
	key, err = hkdfExpandLabel(h, secret, labelKey, nil, a.keySize())
	if err != nil {
		return nil, nil, err
	}
	iv, err = hkdfExpandLabel(h, secret, labelIV, nil, aeadIVLen)
	if err != nil {
		return nil, nil, err
	}
	return key, iv, nil
}

// zeroRTTKeys bundles everything client_get_0rtt_keys/
// server_get_0rtt_keys need to set up 0-RTT record protection plus the
// early-data key exporter.
type zeroRTTKeys struct {
	Key, IV             []byte
	EarlyExporterSecret []byte
}

// deriveZeroRTTKeys computes the 0-RTT client write key/IV and the
// early exporter master secret from the early secret and the
// ClientHello transcript hash.
func deriveZeroRTTKeys(h HashAlgorithm, a AeadAlgorithm, earlySecret, chTranscriptHash []byte) (*zeroRTTKeys, error) {
	clientEarlyTrafficSecret, err := deriveSecret(h, earlySecret, labelCEarlyTraffic, chTranscriptHash)
	if err != nil {
		return nil, err
	}
	key, iv, err := deriveAEADKeyIV(h, a, clientEarlyTrafficSecret)
	if err != nil {
		return nil, err
	}
	earlyExporterSecret, err := deriveSecret(h, earlySecret, labelEarlyExporterMaster, chTranscriptHash)
	if err != nil {
		return nil, err
	}
	return &zeroRTTKeys{Key: key, IV: iv, EarlyExporterSecret: earlyExporterSecret}, nil
}

// handshakeSecrets bundles the handshake-phase secrets and derived
// keys derive_hk_ms computes in one pass.
type handshakeSecrets struct {
	HandshakeSecret   []byte
	ClientHSTraffic   []byte
	ServerHSTraffic   []byte
	ClientWriteKey    []byte
	ClientWriteIV     []byte
	ServerWriteKey    []byte
	ServerWriteIV     []byte
	ClientFinishedKey []byte
	ServerFinishedKey []byte
}

// deriveHandshakeSecrets runs Derive-Secret(early_secret, "derived",
// "") -> HKDF-Extract(., shared_secret) -> {c,s}_hs_traffic ->
// handshake AEAD keys/finished keys, per RFC 8446 §7.1. A nil
// earlySecret (no PSK in use) is replaced by deriveEarlySecret(h, nil).
func deriveHandshakeSecrets(h HashAlgorithm, a AeadAlgorithm, earlySecret, sharedSecret, shTranscriptHash []byte) (*handshakeSecrets, error) {
	if earlySecret == nil {
		earlySecret = deriveEarlySecret(h, nil)
	}
	derived0, err := deriveSecret(h, earlySecret, labelDerived, hash(h, nil))
	if err != nil {
		return nil, err
	}
	handshakeSecret := hkdfExtract(h, derived0, sharedSecret)

	clientHS, err := deriveSecret(h, handshakeSecret, labelCHSTraffic, shTranscriptHash)
	if err != nil {
		return nil, err
	}
	serverHS, err := deriveSecret(h, handshakeSecret, labelSHSTraffic, shTranscriptHash)
	if err != nil {
		return nil, err
	}
	cKey, cIV, err := deriveAEADKeyIV(h, a, clientHS)
	if err != nil {
		return nil, err
	}
	sKey, sIV, err := deriveAEADKeyIV(h, a, serverHS)
	if err != nil {
		return nil, err
	}
	cFin, err := deriveFinishedKey(h, clientHS)
	if err != nil {
		return nil, err
	}
	sFin, err := deriveFinishedKey(h, serverHS)
	if err != nil {
		return nil, err
	}

	return &handshakeSecrets{
		HandshakeSecret:   handshakeSecret,
		ClientHSTraffic:   clientHS,
		ServerHSTraffic:   serverHS,
		ClientWriteKey:    cKey,
		ClientWriteIV:     cIV,
		ServerWriteKey:    sKey,
		ServerWriteIV:     sIV,
		ClientFinishedKey: cFin,
		ServerFinishedKey: sFin,
	}, nil
}

// applicationSecrets bundles the application-phase secrets derive_app_keys
// computes.
type applicationSecrets struct {
	MasterSecret    []byte
	ClientAppTraffic []byte
	ServerAppTraffic []byte
	ClientWriteKey  []byte
	ClientWriteIV   []byte
	ServerWriteKey  []byte
	ServerWriteIV   []byte
	ExporterSecret  []byte
}

// deriveApplicationSecrets runs Derive-Secret(handshake_secret,
// "derived", "") -> HKDF-Extract(., 0) -> master_secret ->
// {c,s}_ap_traffic/exporter_master, per RFC 8446 §7.1.
func deriveApplicationSecrets(h HashAlgorithm, a AeadAlgorithm, handshakeSecret, sfTranscriptHash []byte) (*applicationSecrets, error) {
	derived1, err := deriveSecret(h, handshakeSecret, labelDerived, hash(h, nil))
	if err != nil {
		return nil, err
	}
	masterSecret := hkdfExtract(h, derived1, make([]byte, h.size()))

	clientAP, err := deriveSecret(h, masterSecret, labelCAppTraffic, sfTranscriptHash)
	if err != nil {
		return nil, err
	}
	serverAP, err := deriveSecret(h, masterSecret, labelSAppTraffic, sfTranscriptHash)
	if err != nil {
		return nil, err
	}
	exporter, err := deriveSecret(h, masterSecret, labelExpMaster, sfTranscriptHash)
	if err != nil {
		return nil, err
	}
	cKey, cIV, err := deriveAEADKeyIV(h, a, clientAP)
	if err != nil {
		return nil, err
	}
	sKey, sIV, err := deriveAEADKeyIV(h, a, serverAP)
	if err != nil {
		return nil, err
	}

	return &applicationSecrets{
		MasterSecret:     masterSecret,
		ClientAppTraffic: clientAP,
		ServerAppTraffic: serverAP,
		ClientWriteKey:   cKey,
		ClientWriteIV:    cIV,
		ServerWriteKey:   sKey,
		ServerWriteIV:    sIV,
		ExporterSecret:   exporter,
	}, nil
}

// deriveResumptionMasterSecret computes resumption_master_secret =
// Derive-Secret(master_secret, "res master", ClientHello...Finished1).
func deriveResumptionMasterSecret(h HashAlgorithm, masterSecret, cfTranscriptHash []byte) ([]byte, error) {
	return deriveSecret(h, masterSecret, labelResMaster, cfTranscriptHash)
}

// computeVerifyData computes a Finished message's verify_data =
// HMAC(finished_key, Transcript-Hash(Handshake Context, ...)).
func computeVerifyData(h HashAlgorithm, finishedKey, transcriptHash []byte) []byte {
	return hmacSum(h, finishedKey, transcriptHash)
}
