package region

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegionAccess(t *testing.T) {
	r := New(16)
	require.NoError(t, r.SetU32(0, 0x11223344))
	require.NoError(t, r.SetU16(4, 0xbeef))
	require.NoError(t, r.Set(6, 7))

	v32, err := r.GetU32(0)
	require.NoError(t, err)
	require.Equal(t, uint32(0x11223344), v32)
	require.Equal(t, byte(0x44), r.Bytes()[0])
	v16, err := r.GetU16(4)
	require.NoError(t, err)
	require.Equal(t, uint16(0xbeef), v16)
	v8, err := r.Get(6)
	require.NoError(t, err)
	require.Equal(t, uint8(7), v8)

	require.Equal(t, ErrOutOfRange, r.SetU32(13, 1))
	_, err = r.GetU16(15)
	require.Equal(t, ErrOutOfRange, err)
	require.Equal(t, ErrOutOfRange, r.PutRange(10, 1, 2, 3, 4, 5, 6, 7))
	require.Equal(t, ErrOutOfRange, r.Set(0xffffffff, 1))
}

func TestShadowRoundTrip(t *testing.T) {
	r := New(32)
	require.NoError(t, r.PutRange(0, []byte("snapshot contents")...))
	s := NewShadow(r)
	s.Save()
	want := append([]byte(nil), r.Bytes()...)

	for i := range r.Bytes() {
		r.Bytes()[i] ^= 0xa5
	}
	require.NoError(t, r.SetU32(28, 0xdeadbeef))
	require.NotEqual(t, want, r.Bytes())

	s.Restore()
	require.Equal(t, want, r.Bytes())
}

func TestShadowRestoreBeforeSave(t *testing.T) {
	r := New(8)
	require.NoError(t, r.PutRange(0, 1, 2, 3, 4, 5, 6, 7, 8))
	s := NewShadow(r)
	require.False(t, s.Saved())
	s.Restore()
	require.Equal(t, make([]byte, 8), r.Bytes())
}

func TestShadowRestoreDiscardsLaterWrites(t *testing.T) {
	r := New(4)
	s := NewShadow(r)
	require.NoError(t, r.SetU32(0, 1))
	s.Save()
	require.NoError(t, r.SetU32(0, 2))
	s.Restore()
	v, err := r.GetU32(0)
	require.NoError(t, err)
	require.Equal(t, uint32(1), v)
}
