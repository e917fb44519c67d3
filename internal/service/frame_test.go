package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(chunks *[]string) func(string) error {
	return func(s string) error {
		*chunks = append(*chunks, s)
		return nil
	}
}

func TestFrameDecoderSingleWrite(t *testing.T) {
	var chunks []string
	dec := NewFrameDecoder(collect(&chunks))

	_, err := dec.Write([]byte(`data: {"queryId": "q1", "chunk":"Hello "}STOPdata: {"chunk":"world"}STOP`))
	require.NoError(t, err)
	require.NoError(t, dec.Close())

	assert.Equal(t, []string{"Hello ", "world"}, chunks)
	assert.Equal(t, 2, dec.Frames())
}

func TestFrameDecoderSentinelAcrossWrites(t *testing.T) {
	var chunks []string
	dec := NewFrameDecoder(collect(&chunks))

	parts := []string{`data: {"chunk":"a`, `b"}ST`, `OP`, "\n", `data: {"chunk":"c"}S`, `TOP`}
	for i, p := range parts {
		_, err := dec.Write([]byte(p))
		require.NoError(t, err)
		if i == 1 {
			assert.Empty(t, chunks, "no event before the sentinel completes")
		}
	}
	require.NoError(t, dec.Close())

	assert.Equal(t, []string{"ab", "c"}, chunks)
}

func TestFrameDecoderRoundTrip(t *testing.T) {
	want := []string{"Le ", "serveur ", "**redémarre**", "\n", "", "fin."}
	var upstream strings.Builder
	for _, s := range want {
		upstream.WriteString(`data: {"queryId":"q","chunk":` + quote(s) + "}\nSTOP")
	}

	var chunks []string
	dec := NewFrameDecoder(collect(&chunks))
	// 每次写3个字节模拟网络分片
	raw := []byte(upstream.String())
	for i := 0; i < len(raw); i += 3 {
		end := min(i+3, len(raw))
		_, err := dec.Write(raw[i:end])
		require.NoError(t, err)
	}
	require.NoError(t, dec.Close())

	assert.Equal(t, want, chunks)
	assert.Equal(t, strings.Join(want, ""), strings.Join(chunks, ""))
}

func TestFrameDecoderIgnoresNonDataAndMissingChunk(t *testing.T) {
	var chunks []string
	dec := NewFrameDecoder(collect(&chunks))

	_, err := dec.Write([]byte("event: message\nid: 4\ndata: {\"queryId\":\"q\"}STOP" +
		"data: not-json STOP" +
		"data: {\"chunk\":null}STOP" +
		"data:{\"chunk\":\"ok\"}STOP"))
	require.NoError(t, err)

	assert.Equal(t, []string{"ok"}, chunks)
}

func TestFrameDecoderClose(t *testing.T) {
	var chunks []string
	dec := NewFrameDecoder(collect(&chunks))
	_, err := dec.Write([]byte(`data: {"chunk":"tail"}`))
	require.NoError(t, err)
	assert.Empty(t, chunks)
	require.NoError(t, dec.Close())
	assert.Equal(t, []string{"tail"}, chunks, "complete trailing record is dispatched")

	chunks = nil
	dec = NewFrameDecoder(collect(&chunks))
	_, err = dec.Write([]byte(`data: {"chunk":"cut`))
	require.NoError(t, err)
	require.NoError(t, dec.Close())
	assert.Empty(t, chunks, "truncated record is dropped")
}

func TestFrameDecoderStopsOnEmitError(t *testing.T) {
	gone := errors.New("client gone")
	var n int
	dec := NewFrameDecoder(func(string) error {
		n++
		return gone
	})

	written, err := dec.Write([]byte(`data: {"chunk":"a"}STOPdata: {"chunk":"b"}STOP`))
	assert.ErrorIs(t, err, gone)
	assert.Zero(t, written)
	assert.Equal(t, 1, n)

	_, err = dec.Write([]byte(`data: {"chunk":"c"}STOP`))
	assert.ErrorIs(t, err, gone)
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, dec.Err(), gone)
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
