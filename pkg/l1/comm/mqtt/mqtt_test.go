package mqtt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mcu.go/pkg/l1"
)

func TestMatchTopic(t *testing.T) {
	testCases := []struct {
		topic, pattern string
		match          bool
	}{
		{"ar100/1/meta", "+/+/meta", true},
		{"ar100/1/status", "+/+/meta", false},
		{"ar100/1", "+/+/meta", false},
		{"ar100/1/meta/x", "+/+/meta", false},
		{"ar100/1/tx", "ar100/#", true},
		{"ar100", "ar100/#", true},
		{"ar10", "ar100/#", false},
		{"ar1000/1", "ar100/#", false},
		{"ar100/1/rx", "#", true},
		{"ar100/1/rx", "ar100/1/rx", true},
	}
	for _, tc := range testCases {
		t.Run(tc.topic+"~"+tc.pattern, func(t *testing.T) {
			require.Equal(t, tc.match, MatchTopic(tc.topic, tc.pattern))
		})
	}
}

func TestClientOptionsFromURL(t *testing.T) {
	testCases := []struct {
		url, server, prefix, clientID, user string
	}{
		{"mqtt://localhost:1883/mcu/", "tcp://localhost:1883", "mcu/", "", ""},
		{"mqtt://localhost:1883/mcu", "tcp://localhost:1883", "mcu/", "", ""},
		{"ws://broker:9001", "ws://broker:9001", "", "", ""},
		{"mqtt://u:p@broker:1883/a/b/?client-id=host1", "tcp://broker:1883", "a/b/", "host1", "u"},
	}
	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			opts, prefix, err := ClientOptionsFromURL(tc.url)
			require.NoError(t, err)
			require.Len(t, opts.Servers, 1)
			require.Equal(t, tc.server, opts.Servers[0].String())
			require.Equal(t, tc.prefix, prefix)
			require.Equal(t, tc.clientID, opts.ClientID)
			require.Equal(t, tc.user, opts.Username)
		})
	}
	_, _, err := ClientOptionsFromURL("mqtt://%zz")
	require.Error(t, err)
}

func TestParseMeta(t *testing.T) {
	info, ok := ParseMeta("ar100/abc/meta", []byte(`{"description":"ar100 sim","version":"v0.1.0"}`))
	require.True(t, ok)
	require.Equal(t, l1.MCURef{Type: "ar100", ID: "abc"}, info.Ref)
	require.Equal(t, "ar100 sim", info.Meta.Description)
	require.Equal(t, "v0.1.0", info.Meta.Version)

	_, ok = ParseMeta("ar100/abc/meta", nil)
	require.False(t, ok)
	_, ok = ParseMeta("ar100/abc/status", []byte("{}"))
	require.False(t, ok)
}

func TestReadWriterTopics(t *testing.T) {
	ref := l1.MCURef{Type: "ar100", ID: "abc"}
	host := NewPacketReadWriter(nil).ForHost(ref)
	require.Equal(t, "ar100/abc/tx", host.SubTopic)
	require.Equal(t, "ar100/abc/rx", host.PubTopic)
	mcu := NewPacketReadWriter(nil).ForMCU(ref)
	require.Equal(t, host.SubTopic, mcu.PubTopic)
	require.Equal(t, host.PubTopic, mcu.SubTopic)
}

func TestReadWriterBacklog(t *testing.T) {
	rw := NewPacketReadWriter(nil)
	rw.handleMsg("t", []byte{1})
	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{1}, pkt)
	for i := 0; i < DefaultPacketBacklog+3; i++ {
		rw.handleMsg("t", []byte{byte(i)})
	}
	require.Len(t, rw.packetCh, DefaultPacketBacklog)

	require.NoError(t, rw.Close())
	require.NoError(t, rw.Close())
	require.Error(t, rw.WritePacket([]byte{1}))
}
