// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/h264parse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package avc

import (
	"github.com/q191201771/naza/pkg/nazaerrors"
	"github.com/q191201771/naza/pkg/nazalog"

	"github.com/q191201771/h264parse/pkg/base"
)

// DecodeSps 解析sps并写入缓存表
//
// 注意，整个sps解析成功才落表并更新CurSps，中途失败时表中该sps_id对应的旧记录保持不变。
//
// 分类只需要部分字段，其余字段读取后丢弃：
// - pic_order_cnt_type为1、2时不解析其附属字段，1会造成后续字段错位，这是刻意保留的简化
// - scaling matrix只读取存在标志，不做解析
//
// ISO-14496-10.pdf 7.3.2.1 Sequence parameter set RBSP syntax
//
// @param payload 整个nalu（包含第一个字节的nalu header）
func DecodeSps(payload []byte, ctx *Context) error {
	if len(payload) < 1 {
		return nazaerrors.Wrap(base.ErrShortBuffer)
	}
	br := NewBitReader(payload[1:])

	var sps Sps
	sps.ProfileIdc = uint8(br.ReadBits(8))
	br.ReadBits(1) // constraint_set0_flag
	br.ReadBits(1) // constraint_set1_flag
	br.ReadBits(1) // constraint_set2_flag
	br.ReadBits(1) // constraint_set3_flag
	br.ReadBits(4) // reserved_zero_4bits
	sps.LevelIdc = uint8(br.ReadBits(8))

	sps.SpsId = br.ReadGolomb()
	if sps.SpsId >= MaxSpsCount {
		return nazaerrors.Wrap(base.ErrParamSetId)
	}

	switch sps.ProfileIdc {
	case 100, 110, 122, 244, 44, 83, 86:
		if br.ReadGolomb() == 3 { // chroma_format_idc
			br.ReadBits(1) // separate_colour_plane_flag
		}
		br.ReadGolomb() // bit_depth_luma_minus8
		br.ReadGolomb() // bit_depth_chroma_minus8
		br.ReadBits(1)  // qpprime_y_zero_transform_bypass_flag
		if br.ReadBits(1) == 1 { // seq_scaling_matrix_present_flag
			nazalog.Debugf("scaling matrix present, not parsed.")
		}
	}

	sps.Log2MaxFrameNumMinus4 = br.ReadGolomb()
	if sps.Log2MaxFrameNumMinus4 > 12 {
		nazalog.Debugf("log2_max_frame_num_minus4 out of range [0, 12]. v=%d", sps.Log2MaxFrameNumMinus4)
		return nazaerrors.Wrap(base.ErrAvc)
	}

	sps.PicOrderCntType = br.ReadGolomb()
	if sps.PicOrderCntType == 0 {
		sps.Log2MaxPicOrderCntLsbMinus4 = br.ReadGolomb()
	}
	// pic_order_cnt_type等于1时不解析，等于2时本就没有附属字段

	br.ReadGolomb() // max_num_ref_frames
	br.ReadBits(1)  // gaps_in_frame_num_value_allowed_flag
	br.ReadGolomb() // pic_width_in_mbs_minus1
	br.ReadGolomb() // pic_height_in_map_units_minus1

	sps.FrameMbsOnlyFlag = uint8(br.ReadBits(1))
	if sps.FrameMbsOnlyFlag == 0 {
		br.ReadBits(1) // mb_adaptive_frame_field_flag
	}

	br.ReadBits(1) // direct_8x8_inference_flag
	if br.ReadBits(1) == 1 { // frame_cropping_flag
		br.ReadGolomb() // frame_crop_left_offset
		br.ReadGolomb() // frame_crop_right_offset
		br.ReadGolomb() // frame_crop_top_offset
		br.ReadGolomb() // frame_crop_bottom_offset
	}

	if br.ReadBits(1) == 1 { // vui_parameters_present_flag
		if err := decodeVui(&br, &sps); err != nil {
			return err
		}
	}

	nazalog.Debugf("decode sps. profile=%d, level=%d, spsId=%d, pocType=%d, frameMbsOnly=%d",
		sps.ProfileIdc, sps.LevelIdc, sps.SpsId, sps.PicOrderCntType, sps.FrameMbsOnlyFlag)

	ctx.commitSps(&sps)
	return nil
}

// decodeVui 解析到pic_struct_present_flag为止，
// 后面的bitstream restriction部分刻意不再深入
//
// ISO-14496-10.pdf Annex E.1.1 VUI parameters syntax
func decodeVui(br *BitReader, sps *Sps) error {
	vui := &Vui{}

	if br.ReadBits(1) == 1 { // aspect_ratio_info_present_flag
		if br.ReadBits(8) == 255 { // aspect_ratio_idc, Extended_SAR
			br.ReadBits(16) // sar_width
			br.ReadBits(16) // sar_height
		}
	}

	if br.ReadBits(1) == 1 { // overscan_info_present_flag
		br.ReadBits(1) // overscan_appropriate_flag
	}

	if br.ReadBits(1) == 1 { // video_signal_type_present_flag
		br.ReadBits(3) // video_format
		br.ReadBits(1) // video_full_range_flag
		if br.ReadBits(1) == 1 { // colour_description_present_flag
			br.ReadBits(8) // colour_primaries
			br.ReadBits(8) // transfer_characteristics
			br.ReadBits(8) // matrix_coefficients
		}
	}

	if br.ReadBits(1) == 1 { // chroma_loc_info_present_flag
		br.ReadGolomb() // chroma_sample_loc_type_top_field
		br.ReadGolomb() // chroma_sample_loc_type_bottom_field
	}

	if br.ReadBits(1) == 1 { // timing_info_present_flag
		numUnitsInTick := br.ReadBits(32)
		timeScale := br.ReadBits(32)

		// 任意一个为0则整组丢弃
		if timeScale == 0 {
			nazalog.Warnf("time_scale=0 in vui (incompliant to H.264 E.2.1), discarding timing info.")
		} else if numUnitsInTick == 0 {
			nazalog.Warnf("num_units_in_tick=0 in vui (incompliant to H.264 E.2.1), discarding timing info.")
		} else {
			vui.NumUnitsInTick = numUnitsInTick
			vui.TimeScale = timeScale
			vui.FixedFrameRateFlag = uint8(br.ReadBits(1))
		}
	}

	if br.ReadBits(1) == 1 { // nal_hrd_parameters_present_flag
		hrd, err := decodeHrd(br)
		if err != nil {
			return err
		}
		vui.NalHrd = hrd
	}
	if br.ReadBits(1) == 1 { // vcl_hrd_parameters_present_flag
		hrd, err := decodeHrd(br)
		if err != nil {
			return err
		}
		vui.VclHrd = hrd
	}
	if vui.NalHrd != nil || vui.VclHrd != nil {
		br.ReadBits(1) // low_delay_hrd_flag
	}

	vui.PicStructPresentFlag = uint8(br.ReadBits(1))

	sps.Vui = vui
	return nil
}

// ISO-14496-10.pdf Annex E.1.2 HRD parameters syntax
func decodeHrd(br *BitReader) (*Hrd, error) {
	hrd := &Hrd{}

	hrd.CpbCntMinus1 = br.ReadGolomb()
	if hrd.CpbCntMinus1 > 31 {
		nazalog.Debugf("cpb_cnt_minus1 out of range [0, 31]. v=%d", hrd.CpbCntMinus1)
		return nil, nazaerrors.Wrap(base.ErrAvc)
	}

	br.ReadBits(4) // bit_rate_scale
	br.ReadBits(4) // cpb_size_scale

	for i := uint32(0); i <= hrd.CpbCntMinus1; i++ {
		br.ReadGolomb() // bit_rate_value_minus1
		br.ReadGolomb() // cpb_size_value_minus1
		br.ReadBits(1)  // cbr_flag
	}

	hrd.InitialCpbRemovalDelayLengthMinus1 = uint8(br.ReadBits(5))
	hrd.CpbRemovalDelayLengthMinus1 = uint8(br.ReadBits(5))
	hrd.DpbOutputDelayLengthMinus1 = uint8(br.ReadBits(5))
	hrd.TimeOffsetLengthMinus1 = uint8(br.ReadBits(5))

	return hrd, nil
}
