package tls13

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordRoundTrip(t *testing.T) {
	r := Record{Type: ContentTypeApplicationData, Fragment: []byte("hello")}
	wire, err := EncodeRecord(r)
	require.NoError(t, err)

	decoded, n, err := ParseRecord(wire)
	require.NoError(t, err)
	require.Equal(t, len(wire), n)
	require.Equal(t, r.Type, decoded.Type)
	require.Equal(t, r.Fragment, decoded.Fragment)
}

func TestParseContentTypeRejectsInvalid(t *testing.T) {
	_, err := parseContentType(0x00)
	require.Error(t, err)
	_, err = parseContentType(0xff)
	require.Error(t, err)

	_, err = parseContentType(byte(ContentTypeHandshake))
	require.NoError(t, err)
}

func TestEncodeRecordRejectsOversizedFragment(t *testing.T) {
	_, err := EncodeRecord(Record{Type: ContentTypeHandshake, Fragment: make([]byte, 1<<14+1)})
	require.Error(t, err)
}

func TestParseRecordRejectsTruncated(t *testing.T) {
	_, _, err := ParseRecord([]byte{byte(ContentTypeHandshake), 0x03, 0x03, 0x00, 0x05, 0x01})
	require.Error(t, err)
}
