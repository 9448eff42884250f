package tls13

import "encoding/binary"

// Extension parsing/encoding and the duplicate-extension check (a
// per-type seen set standing in for bertie's merge rule). Ported from original_source/src/tls13formats.rs's
// EXTS/merge_exts/merge_opts/check_extension(s)/check_server_extension(s)
// and the individual extension codecs (server_name, supported_versions,
// supported_groups, signature_algorithms, key_shares, pre_shared_key,
// psk_key_exchange_modes).

const (
	extServerName          uint16 = 0x0000
	extSupportedGroups     uint16 = 0x000A
	extSignatureAlgorithms uint16 = 0x000D
	extSupportedVersions   uint16 = 0x002B
	extPSKKeyExchangeModes uint16 = 0x002D
	extKeyShare            uint16 = 0x0033
	extPreSharedKey        uint16 = 0x0029
)

const tlsVersion13 uint16 = 0x0304
const pskModeDHEKE byte = 1

// PSKExtension carries the single pre_shared_key identity this core
// supports, per the spec's documented single-identity restriction
// (bertie's check_psk_shared_key hard-codes the same limitation; not
// generalized to an identity list).
type PSKExtension struct {
	Identity  []byte
	TicketAge uint32
	Binder    []byte // 32 bytes (HashSHA256 size); all zero until the binder is computed
}

type KeyShareEntry struct {
	Group KemScheme
	Data  []byte
}

// ClientExtensions is the decoded/to-be-encoded extension set of a
// ClientHello. A nil field means the extension was absent.
type ClientExtensions struct {
	ServerName          []byte
	SupportedGroups     []KemScheme
	SignatureAlgorithms []SignatureScheme
	KeyShares           []KeyShareEntry
	PSKKeyExchangeModes bool
	PreSharedKey        *PSKExtension
}

// ServerExtensions is the decoded/to-be-encoded extension set of a
// ServerHello or EncryptedExtensions message.
type ServerExtensions struct {
	KeyShare         *KeyShareEntry
	SelectedIdentity *uint16 // index into the client's PSK identity list; always 0 here
}

func encodeExtension(ty uint16, data []byte) ([]byte, error) {
	ld, err := lbytes2(data)
	if err != nil {
		return nil, err
	}
	var tb [2]byte
	binary.BigEndian.PutUint16(tb[:], ty)
	return append(tb[:], ld...), nil
}

// encodeClientExtensions does not emit signature_algorithms_cert; only
// signature_algorithms is sent.
func encodeClientExtensions(e ClientExtensions) ([]byte, error) {
	var out []byte

	if e.ServerName != nil {
		name, err := lbytes2(e.ServerName)
		if err != nil {
			return nil, err
		}
		// server_name_list is itself length-prefixed (2 bytes), containing
		// entries of (NameType, length-prefixed name).
		entry := append([]byte{0x00}, name...)
		body, err := lbytes2(entry)
		if err != nil {
			return nil, err
		}
		ext, err := encodeExtension(extServerName, body)
		if err != nil {
			return nil, err
		}
		out = append(out, ext...)
	}

	{
		var vb [1 + 2]byte
		vb[0] = 2
		binary.BigEndian.PutUint16(vb[1:], tlsVersion13)
		ext, err := encodeExtension(extSupportedVersions, vb[:])
		if err != nil {
			return nil, err
		}
		out = append(out, ext...)
	}

	if len(e.SupportedGroups) > 0 {
		var groups []byte
		for _, g := range e.SupportedGroups {
			code, err := groupWireCode(g)
			if err != nil {
				return nil, err
			}
			var gb [2]byte
			binary.BigEndian.PutUint16(gb[:], code)
			groups = append(groups, gb[:]...)
		}
		body, err := lbytes2(groups)
		if err != nil {
			return nil, err
		}
		ext, err := encodeExtension(extSupportedGroups, body)
		if err != nil {
			return nil, err
		}
		out = append(out, ext...)
	}

	if len(e.SignatureAlgorithms) > 0 {
		var sigs []byte
		for _, s := range e.SignatureAlgorithms {
			code, err := signatureWireCode(s)
			if err != nil {
				return nil, err
			}
			var sb [2]byte
			binary.BigEndian.PutUint16(sb[:], code)
			sigs = append(sigs, sb[:]...)
		}
		body, err := lbytes2(sigs)
		if err != nil {
			return nil, err
		}
		ext, err := encodeExtension(extSignatureAlgorithms, body)
		if err != nil {
			return nil, err
		}
		out = append(out, ext...)
	}

	if len(e.KeyShares) > 0 {
		var shares []byte
		for _, ks := range e.KeyShares {
			code, err := groupWireCode(ks.Group)
			if err != nil {
				return nil, err
			}
			var gb [2]byte
			binary.BigEndian.PutUint16(gb[:], code)
			kd, err := lbytes2(ks.Data)
			if err != nil {
				return nil, err
			}
			shares = append(shares, gb[:]...)
			shares = append(shares, kd...)
		}
		body, err := lbytes2(shares)
		if err != nil {
			return nil, err
		}
		ext, err := encodeExtension(extKeyShare, body)
		if err != nil {
			return nil, err
		}
		out = append(out, ext...)
	}

	if e.PSKKeyExchangeModes {
		body, err := lbytes1([]byte{pskModeDHEKE})
		if err != nil {
			return nil, err
		}
		ext, err := encodeExtension(extPSKKeyExchangeModes, body)
		if err != nil {
			return nil, err
		}
		out = append(out, ext...)
	}

	// pre_shared_key MUST be the last extension (RFC 8446 §4.2.11): its
	// binder covers everything encoded before it.
	if e.PreSharedKey != nil {
		psk := e.PreSharedKey
		var idEntry []byte
		id, err := lbytes2(psk.Identity)
		if err != nil {
			return nil, err
		}
		idEntry = append(idEntry, id...)
		var ageB [4]byte
		binary.BigEndian.PutUint32(ageB[:], psk.TicketAge)
		idEntry = append(idEntry, ageB[:]...)
		idList, err := lbytes2(idEntry)
		if err != nil {
			return nil, err
		}

		binder, err := lbytes1(psk.Binder)
		if err != nil {
			return nil, err
		}
		binderList, err := lbytes2(binder)
		if err != nil {
			return nil, err
		}

		body := append(append([]byte{}, idList...), binderList...)
		ext, err := encodeExtension(extPreSharedKey, body)
		if err != nil {
			return nil, err
		}
		out = append(out, ext...)
	}

	return out, nil
}

// parseClientExtensions walks the extension block, erroring if the
// same recognized extension type appears twice (merge_exts/merge_opts
// discipline) and ignoring unrecognized extension types.
func parseClientExtensions(buf []byte) (ClientExtensions, error) {
	var e ClientExtensions
	seen := map[uint16]bool{}
	pos := 0
	for pos < len(buf) {
		if len(buf)-pos < 4 {
			return e, newError(KindParseFailed, "parseClientExtensions: short extension header")
		}
		ty := binary.BigEndian.Uint16(buf[pos:])
		dataLen, err := checkLBytes2(buf[pos+2:])
		if err != nil {
			return e, err
		}
		data := buf[pos+4 : pos+4+dataLen]
		pos += 4 + dataLen

		switch ty {
		case extServerName, extSupportedGroups, extSignatureAlgorithms,
			extKeyShare, extPSKKeyExchangeModes, extPreSharedKey, extSupportedVersions:
			if seen[ty] {
				return e, newError(KindParseFailed, "parseClientExtensions: duplicate recognized extension")
			}
			seen[ty] = true
		}

		switch ty {
		case extServerName:
			n, err := checkLBytes2(data)
			if err != nil {
				return e, err
			}
			list := data[2 : 2+n]
			if len(list) < 3 || list[0] != 0x00 {
				return e, newError(KindParseFailed, "parseClientExtensions: bad server_name entry")
			}
			nameLen, err := checkLBytes2(list[1:])
			if err != nil {
				return e, err
			}
			e.ServerName = append([]byte(nil), list[3:3+nameLen]...)
		case extSupportedGroups:
			n, err := checkLBytes2(data)
			if err != nil {
				return e, err
			}
			groups := data[2 : 2+n]
			for i := 0; i+1 < len(groups); i += 2 {
				g, err := groupFromWireCode(binary.BigEndian.Uint16(groups[i:]))
				if err == nil {
					e.SupportedGroups = append(e.SupportedGroups, g)
				}
			}
		case extSignatureAlgorithms:
			n, err := checkLBytes2(data)
			if err != nil {
				return e, err
			}
			sigs := data[2 : 2+n]
			for i := 0; i+1 < len(sigs); i += 2 {
				s, err := signatureFromWireCode(binary.BigEndian.Uint16(sigs[i:]))
				if err == nil {
					e.SignatureAlgorithms = append(e.SignatureAlgorithms, s)
				}
			}
		case extKeyShare:
			n, err := checkLBytes2(data)
			if err != nil {
				return e, err
			}
			shares := data[2 : 2+n]
			for len(shares) > 0 {
				if len(shares) < 4 {
					return e, newError(KindParseFailed, "parseClientExtensions: short key_share entry")
				}
				group, err := groupFromWireCode(binary.BigEndian.Uint16(shares))
				keyLen, kerr := checkLBytes2(shares[2:])
				if kerr != nil {
					return e, kerr
				}
				keyData := shares[4 : 4+keyLen]
				if err == nil {
					e.KeyShares = append(e.KeyShares, KeyShareEntry{Group: group, Data: append([]byte(nil), keyData...)})
				}
				shares = shares[4+keyLen:]
			}
		case extPSKKeyExchangeModes:
			n, err := checkLBytes1(data)
			if err != nil {
				return e, err
			}
			modes := data[1 : 1+n]
			for _, m := range modes {
				if m == pskModeDHEKE {
					e.PSKKeyExchangeModes = true
				}
			}
		case extPreSharedKey:
			psk, err := parsePSKExtension(data)
			if err != nil {
				return e, err
			}
			e.PreSharedKey = psk
		case extSupportedVersions:
			// value already implied by using this parser; no field to set.
		}
	}
	return e, nil
}

// parsePSKExtension implements bertie's check_psk_shared_key: exactly
// one identity, a 4-byte ticket age, and a single 32-byte binder.
func parsePSKExtension(data []byte) (*PSKExtension, error) {
	idListLen, err := checkLBytes2(data)
	if err != nil {
		return nil, err
	}
	idList := data[2 : 2+idListLen]
	idLen, err := checkLBytes2(idList)
	if err != nil {
		return nil, err
	}
	identity := append([]byte(nil), idList[2:2+idLen]...)
	if len(idList) < 2+idLen+4 {
		return nil, newError(KindParseFailed, "parsePSKExtension: short ticket age")
	}
	age := binary.BigEndian.Uint32(idList[2+idLen : 2+idLen+4])
	if 2+idLen+4 != len(idList) {
		return nil, newError(KindParseFailed, "parsePSKExtension: more than one identity is not supported")
	}

	pos := 2 + idListLen
	binderListLen, err := checkLBytes2(data[pos:])
	if err != nil {
		return nil, err
	}
	binderList := data[pos+2 : pos+2+binderListLen]
	binderLen, err := checkLBytes1(binderList)
	if err != nil {
		return nil, err
	}
	if binderLen != 32 {
		return nil, newError(KindParseFailed, "parsePSKExtension: binder must be 32 bytes")
	}
	binder := append([]byte(nil), binderList[1:1+binderLen]...)
	if 1+binderLen != len(binderList) {
		return nil, newError(KindParseFailed, "parsePSKExtension: more than one binder is not supported")
	}

	return &PSKExtension{Identity: identity, TicketAge: age, Binder: binder}, nil
}

func encodeServerExtensions(e ServerExtensions) ([]byte, error) {
	var out []byte

	{
		var vb [2]byte
		binary.BigEndian.PutUint16(vb[:], tlsVersion13)
		ext, err := encodeExtension(extSupportedVersions, vb[:])
		if err != nil {
			return nil, err
		}
		out = append(out, ext...)
	}

	if e.KeyShare != nil {
		code, err := groupWireCode(e.KeyShare.Group)
		if err != nil {
			return nil, err
		}
		var gb [2]byte
		binary.BigEndian.PutUint16(gb[:], code)
		kd, err := lbytes2(e.KeyShare.Data)
		if err != nil {
			return nil, err
		}
		body := append(gb[:], kd...)
		ext, err := encodeExtension(extKeyShare, body)
		if err != nil {
			return nil, err
		}
		out = append(out, ext...)
	}

	if e.SelectedIdentity != nil {
		var ib [2]byte
		binary.BigEndian.PutUint16(ib[:], *e.SelectedIdentity)
		ext, err := encodeExtension(extPreSharedKey, ib[:])
		if err != nil {
			return nil, err
		}
		out = append(out, ext...)
	}

	return out, nil
}

func parseServerExtensions(buf []byte) (ServerExtensions, error) {
	var e ServerExtensions
	seen := map[uint16]bool{}
	pos := 0
	for pos < len(buf) {
		if len(buf)-pos < 4 {
			return e, newError(KindParseFailed, "parseServerExtensions: short extension header")
		}
		ty := binary.BigEndian.Uint16(buf[pos:])
		dataLen, err := checkLBytes2(buf[pos+2:])
		if err != nil {
			return e, err
		}
		data := buf[pos+4 : pos+4+dataLen]
		pos += 4 + dataLen

		switch ty {
		case extSupportedVersions, extKeyShare, extPreSharedKey:
			if seen[ty] {
				return e, newError(KindParseFailed, "parseServerExtensions: duplicate recognized extension")
			}
			seen[ty] = true
		}

		switch ty {
		case extKeyShare:
			if len(data) < 4 {
				return e, newError(KindParseFailed, "parseServerExtensions: short key_share")
			}
			group, err := groupFromWireCode(binary.BigEndian.Uint16(data))
			if err != nil {
				return e, err
			}
			keyLen, err := checkLBytes2(data[2:])
			if err != nil {
				return e, err
			}
			e.KeyShare = &KeyShareEntry{Group: group, Data: append([]byte(nil), data[4:4+keyLen]...)}
		case extPreSharedKey:
			if len(data) != 2 {
				return e, newError(KindParseFailed, "parseServerExtensions: bad pre_shared_key")
			}
			idx := binary.BigEndian.Uint16(data)
			e.SelectedIdentity = &idx
		case extSupportedVersions:
			if len(data) != 2 || binary.BigEndian.Uint16(data) != tlsVersion13 {
				return e, newError(KindNegotiationFailed, "parseServerExtensions: unsupported version")
			}
		}
	}
	return e, nil
}
