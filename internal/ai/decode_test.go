package ai

import (
	"io"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestTextReader_SplitMultiByteRoundTrip(t *testing.T) {
	whole := []byte("naïve café, 日本語, emoji 🎉🧠 and ∑ done")

	for split := 0; split <= len(whole); split++ {
		body := &chunkedBody{chunks: [][]byte{
			append([]byte(nil), whole[:split]...),
			append([]byte(nil), whole[split:]...),
		}}
		got, err := io.ReadAll(newTextReader(body))
		require.NoError(t, err, "split=%d", split)
		require.Equal(t, string(whole), string(got), "split=%d", split)
	}
}

func TestTextReader_OneByteAtATime(t *testing.T) {
	whole := []byte("日本語🎉")
	body := &chunkedBody{}
	for _, b := range whole {
		body.chunks = append(body.chunks, []byte{b})
	}

	got, err := io.ReadAll(newTextReader(body))
	require.NoError(t, err)
	require.Equal(t, string(whole), string(got))
}

func TestTextReader_InvalidBytesBecomeReplacement(t *testing.T) {
	body := &chunkedBody{chunks: [][]byte{{'a', 0xff, 'b'}}}
	got, err := io.ReadAll(newTextReader(body))
	require.NoError(t, err)
	require.Equal(t, "a�b", string(got))
	require.True(t, utf8.Valid(got))
}

func TestTextReader_TruncatedSequenceAtEOF(t *testing.T) {
	// The first two bytes of "世" with nothing after them.
	body := &chunkedBody{chunks: [][]byte{{'x', 0xe4, 0xb8}}}
	got, err := io.ReadAll(newTextReader(body))
	require.NoError(t, err)
	// the maximal ill-formed subpart becomes a single replacement
	require.Equal(t, "x\uFFFD", string(got))
}
