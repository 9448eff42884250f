package tls13

import (
	"crypto/rsa"
	"math/big"
)

// Strict-subset DER walker extracting the SubjectPublicKeyInfo from a
// leaf certificate. Ported from original_source/src/tls13cert.rs
// (verification_key_from_cert/read_spki/ecdsa_public_key/
// rsa_public_key/length/short_length/long_length) into Go idiom: byte
// offsets into a plain []byte instead of a Bytes newtype, (int, error)
// instead of Result<usize, Asn1Error>. This is a from-scratch,
// strict-subset parser by design, not a general ASN.1 decoder or a
// replacement for encoding/asn1 or crypto/x509 — accepting only the
// two SubjectPublicKeyInfo shapes this core's two signature schemes
// need is the entire point of the component.

const (
	asn1Sequence       byte = 0x30
	asn1Integer        byte = 0x02
	asn1BitString      byte = 0x03
	asn1ObjectID       byte = 0x06
	asn1ContextTag0    byte = 0xA0
	asn1ContextTag3    byte = 0xA3
)

// oidX962ECPublicKey = 1.2.840.10045.2.1
var oidX962ECPublicKey = []byte{0x2A, 0x86, 0x48, 0xCE, 0x3D, 0x02, 0x01}

// oidSecp256r1 = 1.2.840.10045.3.1.7
var oidSecp256r1 = []byte{0x2A, 0x86, 0x48, 0xCE, 0x3D, 0x03, 0x01, 0x07}

// oidRSAEncryption = 1.2.840.113549.1.1.1
var oidRSAEncryption = []byte{0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x01, 0x01, 0x01}

// shortLength decodes an ASN.1 length octet that is not the long-form
// marker (top bit clear): the value itself.
func shortLength(b byte) int { return int(b & 0x7f) }

// longLength decodes a long-form ASN.1 length field: the low 7 bits of
// the first octet give the number of following length octets (at most
// 4, matching the pack's 4-octet ceiling for certificates this size).
func longLength(der []byte, offset int) (length, consumed int, err error) {
	if offset >= len(der) {
		return 0, 0, newError(KindAsn1Error, "longLength: truncated")
	}
	n := int(der[offset] & 0x7f)
	if n == 0 || n > 4 {
		return 0, 0, newError(KindAsn1Error, "longLength: unsupported length-of-length")
	}
	if offset+1+n > len(der) {
		return 0, 0, newError(KindAsn1Error, "longLength: truncated length octets")
	}
	v := 0
	for i := 0; i < n; i++ {
		v = v<<8 | int(der[offset+1+i])
	}
	return v, 1 + n, nil
}

// length decodes an ASN.1 length field starting at offset, returning
// the declared length and the number of bytes the length field itself
// occupied.
func length(der []byte, offset int) (value, consumed int, err error) {
	if offset >= len(der) {
		return 0, 0, newError(KindAsn1Error, "length: truncated")
	}
	if der[offset]&0x80 == 0 {
		return shortLength(der[offset]), 1, nil
	}
	v, c, err := longLength(der, offset)
	if err != nil {
		return 0, 0, err
	}
	return v, c, nil
}

// readSequenceHeader checks that der[offset] tags a SEQUENCE and
// returns the offset of its contents plus the declared content length.
func readSequenceHeader(der []byte, offset int) (contentOffset, contentLen int, err error) {
	if offset >= len(der) || der[offset] != asn1Sequence {
		return 0, 0, newError(KindAsn1Error, "readSequenceHeader: expected SEQUENCE")
	}
	l, c, err := length(der, offset+1)
	if err != nil {
		return 0, 0, err
	}
	return offset + 1 + c, l, nil
}

func checkTag(der []byte, offset int, tag byte) (int, error) {
	if offset >= len(der) || der[offset] != tag {
		return 0, newError(KindAsn1Error, "checkTag: unexpected tag")
	}
	return offset + 1, nil
}

// skipElement advances past one TLV element starting at offset,
// returning the offset of the following element.
func skipElement(der []byte, offset int) (int, error) {
	if offset >= len(der) {
		return 0, newError(KindAsn1Error, "skipElement: truncated")
	}
	l, c, err := length(der, offset+1)
	if err != nil {
		return 0, err
	}
	next := offset + 1 + c + l
	if next > len(der) {
		return 0, newError(KindAsn1Error, "skipElement: content exceeds input")
	}
	return next, nil
}

// readSPKI parses a SubjectPublicKeyInfo SEQUENCE at offset, returning
// the negotiated signature scheme and the byte range (within der) of
// the raw key material (the BIT STRING contents, minus the unused-bits
// octet).
func readSPKI(der []byte, offset int) (SignatureScheme, int, int, error) {
	algOffset, _, err := readSequenceHeader(der, offset)
	if err != nil {
		return 0, 0, 0, err
	}
	// AlgorithmIdentifier ::= SEQUENCE { algorithm OID, parameters ANY }
	algSeqOffset, algSeqLen, err := readSequenceHeader(der, algOffset)
	if err != nil {
		return 0, 0, 0, err
	}
	pos, err := checkTag(der, algSeqOffset, asn1ObjectID)
	if err != nil {
		return 0, 0, 0, err
	}
	oidLen, oidLenLen, err := length(der, pos)
	if err != nil {
		return 0, 0, 0, err
	}
	oidStart := pos + oidLenLen
	oid := der[oidStart : oidStart+oidLen]

	algSeqEnd := algSeqOffset + algSeqLen
	bitStringOffset := algSeqEnd

	var scheme SignatureScheme
	switch {
	case checkEq(oid, oidX962ECPublicKey) == nil:
		// parameters is the named curve OID; must be secp256r1.
		curveOffset := oidStart + oidLen
		cpos, err := checkTag(der, curveOffset, asn1ObjectID)
		if err != nil {
			return 0, 0, 0, err
		}
		curveOIDLen, curveOIDLenLen, err := length(der, cpos)
		if err != nil {
			return 0, 0, 0, err
		}
		curveOIDStart := cpos + curveOIDLenLen
		if checkEq(der[curveOIDStart:curveOIDStart+curveOIDLen], oidSecp256r1) != nil {
			return 0, 0, 0, newError(KindUnsupportedAlgorithm, "readSPKI: unsupported EC curve")
		}
		scheme = SignatureECDSASecp256r1SHA256
	case checkEq(oid, oidRSAEncryption) == nil:
		scheme = SignatureRSAPSSRSAEPSSSHA256
	default:
		return 0, 0, 0, newError(KindUnsupportedAlgorithm, "readSPKI: unsupported public key algorithm")
	}

	bitPos, err := checkTag(der, bitStringOffset, asn1BitString)
	if err != nil {
		return 0, 0, 0, err
	}
	bitLen, bitLenLen, err := length(der, bitPos)
	if err != nil {
		return 0, 0, 0, err
	}
	bitContentOffset := bitPos + bitLenLen
	if bitLen < 1 {
		return 0, 0, 0, newError(KindAsn1Error, "readSPKI: empty BIT STRING")
	}
	unusedBits := der[bitContentOffset]
	if unusedBits != 0 {
		return 0, 0, 0, newError(KindAsn1Error, "readSPKI: non-zero unused bits")
	}
	keyOffset := bitContentOffset + 1
	keyLen := bitLen - 1
	return scheme, keyOffset, keyLen, nil
}

// VerificationKeyFromCert extracts the (SignatureScheme, public key
// bytes) pair from a DER-encoded X.509 certificate, walking only the
// fields needed to reach SubjectPublicKeyInfo: outer Certificate
// SEQUENCE, TBSCertificate SEQUENCE, skip version/serialNumber/
// signature/issuer/validity/subject, then readSPKI.
func VerificationKeyFromCert(der []byte) (SignatureScheme, []byte, error) {
	_, _, err := readSequenceHeader(der, 0)
	if err != nil {
		return 0, nil, err
	}
	tbsOffset := 0
	// outer SEQUENCE content starts right after its header; reuse
	// readSequenceHeader's offset math by recomputing contentOffset.
	contentOffset, _, err := readSequenceHeader(der, tbsOffset)
	if err != nil {
		return 0, nil, err
	}
	tbsContentOffset, _, err := readSequenceHeader(der, contentOffset)
	if err != nil {
		return 0, nil, err
	}

	pos := tbsContentOffset
	// version [0] EXPLICIT INTEGER (optional context tag 0)
	if pos < len(der) && der[pos] == asn1ContextTag0 {
		next, err := skipElement(der, pos)
		if err != nil {
			return 0, nil, err
		}
		pos = next
	}
	// serialNumber INTEGER, signature AlgorithmIdentifier SEQUENCE,
	// issuer Name SEQUENCE, validity SEQUENCE, subject Name SEQUENCE.
	for i := 0; i < 5; i++ {
		next, err := skipElement(der, pos)
		if err != nil {
			return 0, nil, err
		}
		pos = next
	}

	scheme, keyOffset, keyLen, err := readSPKI(der, pos)
	if err != nil {
		return 0, nil, err
	}
	if keyOffset+keyLen > len(der) {
		return 0, nil, newError(KindAsn1Error, "VerificationKeyFromCert: key range exceeds input")
	}

	switch scheme {
	case SignatureECDSASecp256r1SHA256:
		key := der[keyOffset : keyOffset+keyLen]
		if len(key) != 65 || key[0] != 0x04 {
			return 0, nil, newError(KindAsn1Error, "VerificationKeyFromCert: malformed EC point")
		}
		return scheme, key, nil
	case SignatureRSAPSSRSAEPSSSHA256:
		return scheme, der[keyOffset : keyOffset+keyLen], nil
	default:
		return 0, nil, newError(KindUnsupportedAlgorithm, "VerificationKeyFromCert: unsupported scheme")
	}
}

// parseRSAPublicKey decodes an RSAPublicKey ::= SEQUENCE { modulus
// INTEGER, publicExponent INTEGER } from the SPKI BIT STRING contents.
func parseRSAPublicKey(der []byte) (*rsa.PublicKey, error) {
	contentOffset, _, err := readSequenceHeader(der, 0)
	if err != nil {
		return nil, err
	}
	pos, err := checkTag(der, contentOffset, asn1Integer)
	if err != nil {
		return nil, err
	}
	nLen, nLenLen, err := length(der, pos)
	if err != nil {
		return nil, err
	}
	nStart := pos + nLenLen
	if nStart+nLen > len(der) {
		return nil, newError(KindAsn1Error, "parseRSAPublicKey: modulus exceeds input")
	}
	n := new(big.Int).SetBytes(der[nStart : nStart+nLen])

	ePos, err := checkTag(der, nStart+nLen, asn1Integer)
	if err != nil {
		return nil, err
	}
	eLen, eLenLen, err := length(der, ePos)
	if err != nil {
		return nil, err
	}
	eStart := ePos + eLenLen
	if eStart+eLen > len(der) {
		return nil, newError(KindAsn1Error, "parseRSAPublicKey: exponent exceeds input")
	}
	e := new(big.Int).SetBytes(der[eStart : eStart+eLen])
	if !e.IsInt64() {
		return nil, newError(KindAsn1Error, "parseRSAPublicKey: exponent too large")
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}
