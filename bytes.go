package tls13

import (
	"crypto/subtle"
	"encoding/binary"
)

// Byte primitives and the length-prefix codec used throughout the
// handshake wire format. Mirrors bertie's tls13utils helpers
// (lbytes1/2/3, check_lbytes*, check_eq, check_mem) in Go idiom: plain
// []byte instead of a newtype, (T, error) instead of Result.
//
// Secret byte slices (PSKs, derived keys, MAC keys, random nonces) must
// never be compared with a short-circuiting ==; use checkEqConstantTime.
// Public handshake fields (versions, lengths, extension types) may use
// the ordinary checkEq, which is allowed to short-circuit.

// lbytes1 prepends a 1-byte big-endian length header to b.
func lbytes1(b []byte) ([]byte, error) {
	if len(b) > 0xff {
		return nil, newError(KindParseFailed, "lbytes1: length overflows 1-byte header")
	}
	out := make([]byte, 1+len(b))
	out[0] = byte(len(b))
	copy(out[1:], b)
	return out, nil
}

// lbytes2 prepends a 2-byte big-endian length header to b.
func lbytes2(b []byte) ([]byte, error) {
	if len(b) > 0xffff {
		return nil, newError(KindParseFailed, "lbytes2: length overflows 2-byte header")
	}
	out := make([]byte, 2+len(b))
	binary.BigEndian.PutUint16(out, uint16(len(b)))
	copy(out[2:], b)
	return out, nil
}

// lbytes3 prepends a 3-byte big-endian length header to b.
func lbytes3(b []byte) ([]byte, error) {
	if len(b) > 0xffffff {
		return nil, newError(KindParseFailed, "lbytes3: length overflows 3-byte header")
	}
	out := make([]byte, 3+len(b))
	out[0] = byte(len(b) >> 16)
	out[1] = byte(len(b) >> 8)
	out[2] = byte(len(b))
	copy(out[3:], b)
	return out, nil
}

// checkLBytes1 reads a 1-byte length header from b and verifies that b
// is at least that long. It returns the declared payload length.
func checkLBytes1(b []byte) (int, error) {
	if len(b) < 1 {
		return 0, newError(KindParseFailed, "checkLBytes1: short input")
	}
	n := int(b[0])
	if len(b) < 1+n {
		return 0, newError(KindParseFailed, "checkLBytes1: declared length exceeds input")
	}
	return n, nil
}

// checkLBytes1Full is checkLBytes1 but additionally requires that b
// contains exactly the header plus the declared payload, no more.
func checkLBytes1Full(b []byte) error {
	n, err := checkLBytes1(b)
	if err != nil {
		return err
	}
	if len(b) != 1+n {
		return newError(KindParseFailed, "checkLBytes1Full: trailing data")
	}
	return nil
}

func checkLBytes2(b []byte) (int, error) {
	if len(b) < 2 {
		return 0, newError(KindParseFailed, "checkLBytes2: short input")
	}
	n := int(binary.BigEndian.Uint16(b))
	if len(b) < 2+n {
		return 0, newError(KindParseFailed, "checkLBytes2: declared length exceeds input")
	}
	return n, nil
}

func checkLBytes2Full(b []byte) error {
	n, err := checkLBytes2(b)
	if err != nil {
		return err
	}
	if len(b) != 2+n {
		return newError(KindParseFailed, "checkLBytes2Full: trailing data")
	}
	return nil
}

func checkLBytes3(b []byte) (int, error) {
	if len(b) < 3 {
		return 0, newError(KindParseFailed, "checkLBytes3: short input")
	}
	n := int(b[0])<<16 | int(b[1])<<8 | int(b[2])
	if len(b) < 3+n {
		return 0, newError(KindParseFailed, "checkLBytes3: declared length exceeds input")
	}
	return n, nil
}

func checkLBytes3Full(b []byte) error {
	n, err := checkLBytes3(b)
	if err != nil {
		return err
	}
	if len(b) != 3+n {
		return newError(KindParseFailed, "checkLBytes3Full: trailing data")
	}
	return nil
}

// checkEq compares two public byte slices for structural equality. May
// short-circuit; never use on secret material.
func checkEq(a, b []byte) error {
	if len(a) != len(b) {
		return newError(KindParseFailed, "checkEq: length mismatch")
	}
	for i := range a {
		if a[i] != b[i] {
			return newError(KindParseFailed, "checkEq: value mismatch")
		}
	}
	return nil
}

// checkEqConstantTime compares two secret byte slices in time
// independent of their contents.
func checkEqConstantTime(a, b []byte) error {
	if len(a) != len(b) {
		return newError(KindParseFailed, "checkEqConstantTime: length mismatch")
	}
	if subtle.ConstantTimeCompare(a, b) != 1 {
		return newError(KindParseFailed, "checkEqConstantTime: value mismatch")
	}
	return nil
}

// checkMem reports whether needle appears as one of the fixed-width
// elements of haystack, where the element width is len(needle).
func checkMem(needle, haystack []byte) error {
	width := len(needle)
	if width == 0 || len(haystack)%width != 0 {
		return newError(KindParseFailed, "checkMem: malformed haystack")
	}
	for off := 0; off < len(haystack); off += width {
		if checkEq(needle, haystack[off:off+width]) == nil {
			return nil
		}
	}
	return newError(KindParseFailed, "checkMem: not found")
}
