package comm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCRC16(t *testing.T) {
	require.Equal(t, uint16(0xffff), CRC16(nil))
	require.Equal(t, uint16(0x6f91), CRC16([]byte("123456789")))
}

func TestVLQ(t *testing.T) {
	testCases := []struct {
		value uint32
		bytes []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{95, []byte{0x5f}},
		{96, []byte{0x80, 0x60}},
		{0xffffffff, []byte{0x7f}},
		{0xffffffe0, []byte{0x60}},
		{0xffffffdf, []byte{0xff, 0x5f}},
		{1000, []byte{0x87, 0x68}},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%x", tc.value), func(t *testing.T) {
			require.Equal(t, tc.bytes, AppendInt(nil, tc.value))
			require.Equal(t, len(tc.bytes), IntSize(tc.value))
			v, n, err := ParseInt(tc.bytes)
			require.NoError(t, err)
			require.Equal(t, len(tc.bytes), n)
			require.Equal(t, tc.value, v)
		})
	}
	for _, v := range []uint32{1 << 12, 1 << 19, 1 << 26, 1 << 31, 0x7fffffff, 0x80000001, 24000000} {
		buf := AppendInt(nil, v)
		parsed, n, err := ParseInt(buf)
		require.NoError(t, err)
		require.Equal(t, len(buf), n)
		require.Equal(t, v, parsed)
	}
}

func TestParseIntErrors(t *testing.T) {
	_, _, err := ParseInt(nil)
	require.Equal(t, ErrShortData, err)
	_, _, err = ParseInt([]byte{0x81})
	require.Equal(t, ErrShortData, err)
	_, _, err = ParseInt([]byte{0x81, 0x81, 0x81, 0x81, 0x81, 0x01})
	require.Equal(t, ErrBadVLQ, err)
}

func TestParseFormat(t *testing.T) {
	m, err := ParseFormat("debug_read order=%c addr=%u")
	require.NoError(t, err)
	require.Equal(t, "debug_read", m.Name)
	require.Equal(t, -1, m.ID)
	require.Equal(t, []Param{{"order", ParamByte}, {"addr", ParamUint32}}, m.Params)

	m, err = ParseFormat("starting")
	require.NoError(t, err)
	require.Empty(t, m.Params)

	for _, format := range []string{"", "cmd addr", "cmd addr=%x", "cmd =%u"} {
		_, err = ParseFormat(format)
		var fe *FormatError
		require.Truef(t, errors.As(err, &fe), "format %q", format)
	}
}

func TestMessageEncodeParse(t *testing.T) {
	m, err := ParseFormat("debug_result val=%u data=%*s delta=%i")
	require.NoError(t, err)
	m.ID = 7
	buf, err := m.Encode(nil, MessagePayloadMax, 1000, []byte("abc"), -5)
	require.NoError(t, err)
	require.Equal(t, []byte{7, 0x87, 0x68, 3, 'a', 'b', 'c', 0x7b}, buf)

	args, n, err := m.Parse(buf[1:])
	require.NoError(t, err)
	require.Equal(t, len(buf)-1, n)
	require.Equal(t, uint32(1000), args.Uint(0))
	require.Equal(t, []byte("abc"), args.Bytes(1))
	require.Equal(t, int32(-5), args.Int(2))
	require.Equal(t, map[string]interface{}{
		"val":   uint32(1000),
		"data":  []byte("abc"),
		"delta": int32(-5),
	}, m.Values(args))
}

func TestMessageEncodeTruncates(t *testing.T) {
	m, err := ParseFormat("identify_response offset=%u data=%.*s")
	require.NoError(t, err)
	m.ID = 0
	buf, err := m.Encode(nil, MessagePayloadMax, 0, make([]byte, 100))
	require.NoError(t, err)
	require.Len(t, buf, MessagePayloadMax)
	require.Equal(t, byte(MessagePayloadMax-3), buf[2])
}

func TestMessageEncodeErrors(t *testing.T) {
	m, err := ParseFormat("clock clock=%u")
	require.NoError(t, err)
	m.ID = 3
	_, err = m.Encode(nil, MessagePayloadMax)
	require.True(t, errors.Is(err, ErrEncode))
	_, err = m.Encode(nil, MessagePayloadMax, "text")
	require.True(t, errors.Is(err, ErrEncode))
	_, err = m.Encode(nil, 3, uint32(0x80000000))
	require.Equal(t, ErrEncode, err)

	_, _, err = m.Parse(nil)
	require.True(t, errors.Is(err, ErrShortData))
	s, err := ParseFormat("text data=%s")
	require.NoError(t, err)
	_, _, err = s.Parse([]byte{4, 'a'})
	require.True(t, errors.Is(err, ErrShortData))
}

func TestAckEncodesEmpty(t *testing.T) {
	buf, err := Ack.Encode(nil, MessagePayloadMax)
	require.NoError(t, err)
	require.Empty(t, buf)
}
