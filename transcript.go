package tls13

// Transcript accumulates the wire encoding of every handshake message
// seen so far, in canonical order, and produces the running hash RFC
// 8446's key schedule needs at each cut point. Ported from
// original_source/src/tls13formats.rs's Transcript/transcript_add1/
// get_transcript_hash/get_transcript_hash_truncated_client_hello and
// tls13handshake.rs's per-cut-point TranscriptClientHello/
// TranscriptServerHello/... wrapper types, collapsed into one mutable
// accumulator: Go has no linear types, so cut-point separation is
// enforced at the state-machine layer (each state only exposes the
// transcript operations valid for that point) rather than via a chain
// of distinct transcript types.
type Transcript struct {
	hash HashAlgorithm
	data []byte
}

// NewTranscript starts an empty transcript for the given hash
// algorithm.
func NewTranscript(h HashAlgorithm) *Transcript {
	return &Transcript{hash: h}
}

// Add appends one encoded handshake message to the transcript.
func (t *Transcript) Add(msg HandshakeData) error {
	b, err := msg.Bytes()
	if err != nil {
		return err
	}
	t.data = append(t.data, b...)
	return nil
}

// Hash returns Hash(transcript-so-far).
func (t *Transcript) Hash() []byte {
	return hash(t.hash, t.data)
}

// HashTruncatedClientHello returns the transcript hash computed over
// every message added so far plus the ClientHello, but with the
// ClientHello's PSK binder list truncated to its length prefix (no
// binder values) — RFC 8446 §4.2.11.2's binder-computation transcript.
// clientHello must be the full ClientHello HandshakeData; binderListLen
// is the number of bytes to strip from the tail. Both state machines
// pass 1 + hash length (the single binder entry with its 1-byte length
// prefix), so the binder list's 2-byte length prefix stays hashed.
func (t *Transcript) HashTruncatedClientHello(clientHello HandshakeData, binderListLen int) ([]byte, error) {
	full, err := clientHello.Bytes()
	if err != nil {
		return nil, err
	}
	if binderListLen < 0 || binderListLen > len(full) {
		return nil, newError(KindParseFailed, "HashTruncatedClientHello: bad binder list length")
	}
	truncated := append(append([]byte(nil), t.data...), full[:len(full)-binderListLen]...)
	return hash(t.hash, truncated), nil
}

// Clone returns an independent copy of the transcript, for a caller
// that needs to branch it. The state machines do not use it: the
// binder hash is taken from a fresh NewTranscript.
func (t *Transcript) Clone() *Transcript {
	return &Transcript{hash: t.hash, data: append([]byte(nil), t.data...)}
}
