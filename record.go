package tls13

import "encoding/binary"

// Record-layer content-type framing. Ported from
// original_source/src/tls13formats.rs's ContentType/content_type/
// get_content_type and handshake_record/check_handshake_record/
// get_handshake_record. Record I/O itself (fragmentation, fixed-size
// reads off a transport) is an external collaborator per spec.md §1
// ("record stream"); this file only frames/unframes a single
// plaintext TLSPlaintext-shaped record already delivered whole.

// ContentType is RFC 8446 §5.1's outer record content type. The
// four-arm match (not a numeric range check) rejects Invalid (0) and
// any unassigned value the same way, per the supplemented-features
// decision to keep bertie's explicit enumeration.
type ContentType byte

const (
	ContentTypeInvalid         ContentType = 0
	ContentTypeChangeCipherSpec ContentType = 20
	ContentTypeAlert           ContentType = 21
	ContentTypeHandshake       ContentType = 22
	ContentTypeApplicationData ContentType = 23
)

func parseContentType(b byte) (ContentType, error) {
	switch ContentType(b) {
	case ContentTypeChangeCipherSpec, ContentTypeAlert, ContentTypeHandshake, ContentTypeApplicationData:
		return ContentType(b), nil
	default:
		return ContentTypeInvalid, newError(KindParseFailed, "parseContentType: invalid or unknown content type")
	}
}

// Record is a single TLSPlaintext-shaped record: content type, legacy
// (fixed) 0x0303 version, and a length-prefixed fragment.
type Record struct {
	Type     ContentType
	Fragment []byte
}

// EncodeRecord frames fragment as a single record. Callers are
// responsible for staying within the 2^14-byte plaintext record size
// limit (RFC 8446 §5.1); this core does not fragment.
func EncodeRecord(r Record) ([]byte, error) {
	if len(r.Fragment) > 1<<14 {
		return nil, newError(KindParseFailed, "EncodeRecord: fragment exceeds maximum record size")
	}
	out := make([]byte, 0, 5+len(r.Fragment))
	out = append(out, byte(r.Type), 0x03, 0x03)
	var lb [2]byte
	binary.BigEndian.PutUint16(lb[:], uint16(len(r.Fragment)))
	out = append(out, lb[:]...)
	out = append(out, r.Fragment...)
	return out, nil
}

// ParseRecord decodes a single record from the front of buf, returning
// the record and the number of bytes consumed.
func ParseRecord(buf []byte) (Record, int, error) {
	if len(buf) < 5 {
		return Record{}, 0, newError(KindParseFailed, "ParseRecord: short input")
	}
	ty, err := parseContentType(buf[0])
	if err != nil {
		return Record{}, 0, err
	}
	length := int(binary.BigEndian.Uint16(buf[3:5]))
	if length > 1<<14+256 {
		return Record{}, 0, newError(KindParseFailed, "ParseRecord: fragment exceeds maximum record size")
	}
	if len(buf) < 5+length {
		return Record{}, 0, newError(KindParseFailed, "ParseRecord: truncated fragment")
	}
	frag := make([]byte, length)
	copy(frag, buf[5:5+length])
	return Record{Type: ty, Fragment: frag}, 5 + length, nil
}
