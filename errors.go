package tls13

import "fmt"

// Kind classifies a handshake failure the way spec.md's Error Handling
// taxonomy does: coarse enough for a caller to decide whether to retry,
// alert, or abort, without leaking which secret comparison failed.
type Kind int

const (
	// KindParseFailed covers malformed wire encodings: bad length
	// prefixes, unknown/invalid ContentType, structurally invalid
	// handshake messages. Malformed certificate DER is KindAsn1Error.
	KindParseFailed Kind = iota
	// KindUnsupportedAlgorithm covers offered/selected algorithms this
	// core does not implement (cipher suite, group, signature scheme).
	KindUnsupportedAlgorithm
	// KindNegotiationFailed covers a handshake that parses fine but
	// cannot be completed: no mutually supported cipher suite/group,
	// missing required extension, PSK/certificate mode conflict.
	KindNegotiationFailed
	// KindCryptoFailure covers signature verification failures and
	// other primitive failures. AEAD open failures are KindInvalidTag.
	KindCryptoFailure
	// KindProtocolViolation covers messages that are well-formed but
	// arrive in the wrong state (e.g. Finished before ServerHello).
	KindProtocolViolation
	// KindPskModeMismatch covers calling a certificate-mode transition
	// in psk_mode or vice versa (e.g. GetServerSignature in psk_mode).
	KindPskModeMismatch
	// KindInsufficientEntropy covers a caller-supplied entropy buffer
	// shorter than 32 + dh_priv_len(group).
	KindInsufficientEntropy
	// KindMacFailed covers a Finished or PSK binder HMAC that does not
	// match the expected verify_data.
	KindMacFailed
	// KindInvalidCertificate covers a certificate whose SubjectPublicKeyInfo
	// does not match the negotiated signature scheme.
	KindInvalidCertificate
	// KindInvalidTag covers an AEAD authentication tag that fails to
	// verify on Open.
	KindInvalidTag
	// KindSequenceTooLong covers a per-direction record sequence number
	// that has exhausted its 64-bit range.
	KindSequenceTooLong
	// KindAsn1Error covers malformed ASN.1/DER encountered while
	// walking a certificate's SubjectPublicKeyInfo.
	KindAsn1Error
	// KindPayloadTooLong covers a length field that would encode a
	// value of 65536 or more in a context that allows only a 2-byte
	// length prefix.
	KindPayloadTooLong
)

func (k Kind) String() string {
	switch k {
	case KindParseFailed:
		return "parse_failed"
	case KindUnsupportedAlgorithm:
		return "unsupported_algorithm"
	case KindNegotiationFailed:
		return "negotiation_failed"
	case KindCryptoFailure:
		return "crypto_failure"
	case KindProtocolViolation:
		return "protocol_violation"
	case KindPskModeMismatch:
		return "psk_mode_mismatch"
	case KindInsufficientEntropy:
		return "insufficient_entropy"
	case KindMacFailed:
		return "mac_failed"
	case KindInvalidCertificate:
		return "invalid_certificate"
	case KindInvalidTag:
		return "invalid_tag"
	case KindSequenceTooLong:
		return "sequence_too_long"
	case KindAsn1Error:
		return "asn1_error"
	case KindPayloadTooLong:
		return "payload_too_long"
	default:
		return "unknown"
	}
}

// Error is the single error type returned across the package API. It
// wraps an underlying error when one exists (e.g. an AEAD Open failure)
// without exposing secret-dependent detail beyond Kind.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tls13: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("tls13: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, &tls13.Error{Kind: tls13.KindCryptoFailure})
// style matching by comparing Kind only, never message text.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func wrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}
