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

// ISO-14496-10.pdf Annex D SEI messages

const (
	SeiTypeBufferingPeriod = 0
	SeiTypePicTiming       = 1
)

// Table D-1 – Interpretation of pic_struct
const (
	SeiPicStructFrame           uint8 = 0
	SeiPicStructTopField        uint8 = 1
	SeiPicStructBottomField     uint8 = 2
	SeiPicStructTopBottom       uint8 = 3
	SeiPicStructBottomTop       uint8 = 4
	SeiPicStructTopBottomTop    uint8 = 5
	SeiPicStructBottomTopBottom uint8 = 6
	SeiPicStructFrameDoubling   uint8 = 7
	SeiPicStructFrameTripling   uint8 = 8
)

// pic_struct对应的clock timestamp个数，下标为pic_struct
var seiNumClockTsTable = [9]uint8{1, 1, 1, 2, 2, 3, 3, 2, 3}

// DecodeSei 解析sei，只处理buffering period与picture timing两种，其余类型跳过
//
// ISO-14496-10.pdf 7.3.2.3.1 Supplemental enhancement information message syntax
//
// @param payload 整个nalu（包含第一个字节的nalu header）
func DecodeSei(payload []byte, ctx *Context) error {
	if len(payload) < 1 {
		return nazaerrors.Wrap(base.ErrShortBuffer)
	}
	br := NewBitReader(payload[1:])

	payloadType := readSeiValue(&br)
	payloadSize := readSeiValue(&br)
	nazalog.Debugf("sei message. payloadType=%d, payloadSize=%d", payloadType, payloadSize)

	switch payloadType {
	case SeiTypeBufferingPeriod:
		return decodeBufferingPeriod(&br, ctx)
	case SeiTypePicTiming:
		return decodePicTiming(&br, ctx)
	default:
		nazalog.Debugf("sei message of payloadType=%d received but not parsed", payloadType)
	}
	return nil
}

// readSeiValue sei的payload type与payload size编码方式相同，
// 读取到非255字节为止，所有字节累加
func readSeiValue(br *BitReader) int {
	var v int
	for {
		b := br.ReadBits(8)
		v += int(b)
		if b != 255 {
			break
		}
	}
	return v
}

// D.1.1 Buffering period SEI message syntax
func decodeBufferingPeriod(br *BitReader, ctx *Context) error {
	spsId := br.ReadGolomb()
	sps, err := ctx.GetOrCreateSps(spsId)
	if err != nil {
		return err
	}

	if sps.Vui != nil && sps.Vui.NalHrd != nil {
		hrd := sps.Vui.NalHrd
		for i := uint32(0); i <= hrd.CpbCntMinus1; i++ {
			ctx.InitialCpbRemovalDelay[i] = br.ReadBits(int(hrd.InitialCpbRemovalDelayLengthMinus1) + 1)
			br.ReadBits(int(hrd.InitialCpbRemovalDelayLengthMinus1) + 1) // initial_cpb_removal_delay_offset
		}
	}
	if sps.Vui != nil && sps.Vui.VclHrd != nil {
		hrd := sps.Vui.VclHrd
		for i := uint32(0); i <= hrd.CpbCntMinus1; i++ {
			ctx.InitialCpbRemovalDelay[i] = br.ReadBits(int(hrd.InitialCpbRemovalDelayLengthMinus1) + 1)
			br.ReadBits(int(hrd.InitialCpbRemovalDelayLengthMinus1) + 1) // initial_cpb_removal_delay_offset
		}
	}

	if ctx.TsTrnNb == -1 || ctx.Dts == -1 {
		ctx.TsTrnNb = 0
	} else {
		ctx.TsTrnNb = ctx.Dts
	}
	nazalog.Debugf("ts_trn_nb updated. v=%d", ctx.TsTrnNb)

	return nil
}

// D.1.2 Picture timing SEI message syntax
//
// 注意，按H264 D2.2 Note1，picture timing可能早于对应的sps出现，
// 此时应当缓存消息延后解析，这里没有实现，直接按解析失败处理
func decodePicTiming(br *BitReader, ctx *Context) error {
	sps := ctx.CurSps
	if sps == nil {
		nazalog.Warnf("decode picture timing but sps not found yet.")
		return nazaerrors.Wrap(base.ErrAvc)
	}

	hrd := sps.EffectiveHrd()
	if hrd != nil {
		ctx.CpbRemovalDelay = br.ReadBits(int(hrd.CpbRemovalDelayLengthMinus1) + 1)
		ctx.DpbOutputDelay = br.ReadBits(int(hrd.DpbOutputDelayLengthMinus1) + 1)
	}

	if sps.Vui != nil && sps.Vui.PicStructPresentFlag == 1 {
		ctx.PicStruct = uint8(br.ReadBits(4))
		ctx.CtType = 0

		if ctx.PicStruct > SeiPicStructFrameTripling {
			return nazaerrors.Wrap(base.ErrAvc)
		}

		// 无hrd时time_offset按最小位宽1读取
		var timeOffsetLenMinus1 uint8
		if hrd != nil {
			timeOffsetLenMinus1 = hrd.TimeOffsetLengthMinus1
		}

		numClockTs := seiNumClockTsTable[ctx.PicStruct]
		for i := uint8(0); i < numClockTs; i++ {
			if br.ReadBits(1) == 1 { // clock_timestamp_flag
				ctx.CtType |= 1 << br.ReadBits(2)
				br.ReadBits(1) // nuit_field_based_flag
				br.ReadBits(5) // counting_type
				fullTimestampFlag := br.ReadBits(1)
				br.ReadBits(1) // discontinuity_flag
				br.ReadBits(1) // cnt_dropped_flag
				br.ReadBits(8) // n_frames
				if fullTimestampFlag == 1 {
					br.ReadBits(6) // seconds_value
					br.ReadBits(6) // minutes_value
					br.ReadBits(5) // hours_value
				} else {
					if br.ReadBits(1) == 1 { // seconds_flag
						br.ReadBits(6) // seconds_value
						if br.ReadBits(1) == 1 { // minutes_flag
							br.ReadBits(6) // minutes_value
							if br.ReadBits(1) == 1 { // hours_flag
								br.ReadBits(5) // hours_value
							}
						}
					}
				}
				br.ReadBits(int(timeOffsetLenMinus1) + 1) // time_offset
			}
		}

		nazalog.Debugf("sei picture timing. ctType=%x, picStruct=%d", ctx.CtType, ctx.PicStruct)
	}
	return nil
}
