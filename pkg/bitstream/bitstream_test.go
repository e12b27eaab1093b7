package bitstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderWriterRoundTrip(t *testing.T) {
	w := NewWriter(0)
	w.U8(0x12)
	w.U16(0x3456)
	w.U24(0x789ABC)
	w.U32(0xDEADBEEF)
	w.I32(-1)
	w.U64(0x0102030405060708)

	r := NewReader(w.Bytes())
	u8, err := r.U8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x12), u8)

	u16, err := r.U16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x3456), u16)

	u24, err := r.U24()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x789ABC), u24)

	u32, err := r.U32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), u32)

	i32, err := r.I32()
	require.NoError(t, err)
	assert.Equal(t, int32(-1), i32)

	u64, err := r.U64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), u64)

	assert.Equal(t, 0, r.Len())
}

func TestReaderShortBuffer(t *testing.T) {
	r := NewReader([]byte{0x01})
	_, err := r.U32()
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestPatchU32(t *testing.T) {
	w := NewWriter(0)
	w.U32(0)
	w.WriteBytes([]byte("abcd"))
	w.PatchU32(0, 8)
	assert.Equal(t, []byte{0, 0, 0, 8, 'a', 'b', 'c', 'd'}, w.Bytes())
}

func TestFourCCRoundTrip(t *testing.T) {
	assert.Equal(t, "ftyp", BoxFTYP.String())
	assert.Equal(t, "moov", BoxMOOV.String())

	cr := NewFourCC(string([]byte{0xA9, 't', 'o', 'o'}))
	b := [4]byte{byte(cr >> 24), byte(cr >> 16), byte(cr >> 8), byte(cr)}
	assert.Equal(t, byte(0xA9), b[0])
	assert.Equal(t, "too", string(b[1:]))
}

func TestSplitAnnexB(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x00, 0x01, 0x67, 0xAA, 0xBB, // SPS-ish
		0x00, 0x00, 0x01, 0x68, 0xCC, // PPS-ish
		0x00, 0x00, 0x01, 0x65, 0xDD, 0xEE,
		0x00, 0x00, // trailing incomplete start code
	}
	nalus := SplitAnnexB(data)
	require.Len(t, nalus, 3)
	assert.Equal(t, []byte{0x67, 0xAA, 0xBB}, nalus[0])
	assert.Equal(t, []byte{0x68, 0xCC}, nalus[1])
	assert.Equal(t, []byte{0x65, 0xDD, 0xEE}, nalus[2])
}

func TestSplitAnnexBEmpty(t *testing.T) {
	assert.Nil(t, SplitAnnexB(nil))
	assert.Nil(t, SplitAnnexB([]byte{0x01, 0x02}))
}

func TestIsH264IDR(t *testing.T) {
	assert.True(t, IsH264IDR([][]byte{{0x09, 0x10}, {0x65, 0xAA}}))
	assert.False(t, IsH264IDR([][]byte{{0x41, 0xAA}}))
}

func TestIsH265IDR(t *testing.T) {
	idrWRADL := byte(19) << 1
	assert.True(t, IsH265IDR([][]byte{{idrWRADL, 0x01}}))
	trail := byte(1) << 1
	assert.False(t, IsH265IDR([][]byte{{trail, 0x01}}))
}

func TestExpGolomb(t *testing.T) {
	// ue(v) codes: 0 -> "1", 1 -> "010", 2 -> "011", 3 -> "00100"
	br := NewBitReader([]byte{0b1_010_011_0, 0b0100_0000})
	v0, err := br.ReadUE()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), v0)

	v1, err := br.ReadUE()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), v1)

	v2, err := br.ReadUE()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), v2)

	v3, err := br.ReadUE()
	require.NoError(t, err)
	assert.Equal(t, uint32(3), v3)
}

func TestExpGolombSigned(t *testing.T) {
	// se(v) mapping: ue=0->0, ue=1->1, ue=2->-1, ue=3->2, ue=4->-2
	cases := []struct {
		ue   []byte
		want int32
	}{
		{[]byte{0b1_000_0000}, 0},
		{[]byte{0b010_00000}, 1},
		{[]byte{0b011_00000}, -1},
	}
	for _, c := range cases {
		br := NewBitReader(c.ue)
		got, err := br.ReadSE()
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}
}

func TestDecodePTS(t *testing.T) {
	// Encode PTS=5400090 (60.001s @ 90kHz) by hand per the PES layout.
	const pts uint64 = 5400090
	var b [5]byte
	b[0] = 0x21 | byte((pts>>29)&0x0E) | 1
	b[1] = byte(pts >> 22)
	b[2] = byte((pts>>14)&0xFE) | 1
	b[3] = byte(pts >> 7)
	b[4] = byte(pts<<1) | 1

	got, err := DecodePTS(b)
	require.NoError(t, err)
	assert.Equal(t, pts, got)
}

func TestDecodePTSInvalidMarker(t *testing.T) {
	_, err := DecodePTS([5]byte{0x20, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrInvalidPTS)
}

func TestScanADTS(t *testing.T) {
	frame := func(payload []byte) []byte {
		length := 7 + len(payload)
		h := make([]byte, 7, length)
		h[0] = 0xFF
		h[1] = 0xF1 // MPEG-4, layer 0, protection absent
		h[2] = (1 << 6) | (3 << 2) // profile=1 (LC), sr idx=3 (48000)
		h[2] |= byte((2 >> 2) & 0x01)
		h[3] = byte((2 & 0x03) << 6)
		h[3] |= byte(length >> 11)
		h[4] = byte(length >> 3)
		h[5] = byte(length<<5) | 0x1F
		h[6] = 0xFC
		return append(h, payload...)
	}

	payload1 := []byte{0xAA, 0xBB, 0xCC}
	payload2 := []byte{0x01, 0x02}
	buf := append(frame(payload1), frame(payload2)...)
	buf = append(buf, 0xFF, 0xF1, 0x00) // trailing incomplete frame

	frames, trailing := ScanADTS(buf)
	require.Len(t, frames, 2)
	assert.Equal(t, payload1, frames[0].Payload)
	assert.Equal(t, payload2, frames[1].Payload)
	assert.Equal(t, 48000, frames[0].SampleRate)
	assert.NotEmpty(t, trailing)
}
