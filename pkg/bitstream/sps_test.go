package bitstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A minimal baseline-profile SPS encoding a 32x32 picture: profile_idc=66
// skips the high-profile chroma/scaling fields, pic_order_cnt_type=2 skips
// the type-dependent fields, and frame_cropping_flag=0 skips crop offsets.
// After the header bytes 67 42 C0 1E, the payload DC 96 reads as the bits
// 1 1 011 1 0 010 010 1 1 0: seq_parameter_set_id=0,
// log2_max_frame_num_minus4=0, pic_order_cnt_type=2, max_num_ref_frames=0,
// gaps_in_frame_num_allowed=0, pic_width_in_mbs_minus1=1,
// pic_height_in_map_units_minus1=1, frame_mbs_only=1, direct_8x8=1,
// frame_cropping=0, giving 2x2 macroblocks of 16x16.
func baselineSPS32x32() []byte {
	return []byte{0x67, 0x42, 0xC0, 0x1E, 0xDC, 0x96}
}

func TestParseSPSDimensions32x32(t *testing.T) {
	width, height, err := ParseSPSDimensions(baselineSPS32x32())
	require.NoError(t, err)
	assert.Equal(t, uint16(32), width)
	assert.Equal(t, uint16(32), height)
}

func TestParseSPSDimensionsShortBuffer(t *testing.T) {
	_, _, err := ParseSPSDimensions([]byte{0x67, 0x42})
	assert.ErrorIs(t, err, ErrShortBuffer)
}
