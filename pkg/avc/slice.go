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

	"github.com/q191201771/h264parse/pkg/base"
)

// SliceHeader slice header的前缀部分，分类一个slice所需要的字段
type SliceHeader struct {
	FirstMbInSlice uint32
	SliceType      uint32
	PpsId          uint32
	FrameNum       uint32

	FieldPicFlag    uint8
	BottomFieldFlag uint8
}

// DecodeSliceHeader 解析slice header的前缀部分
//
// pps或其引用的sps不可用时返回错误，但错误前已解析出的字段依然填入返回值中，
// 调用方可以用这些字段做尽力而为的分类。
//
// 注意，这里沿用历史行为，frame_num的位宽取log2_max_pic_order_cnt_lsb_minus4+4
//
// ISO-14496-10.pdf 7.3.3 Slice header syntax
//
// @param payload 整个nalu（包含第一个字节的nalu header）
func DecodeSliceHeader(payload []byte, ctx *Context) (SliceHeader, error) {
	var sh SliceHeader
	if len(payload) < 1 {
		return sh, nazaerrors.Wrap(base.ErrShortBuffer)
	}
	br := NewBitReader(payload[1:])

	sh.FirstMbInSlice = br.ReadGolomb()
	sh.SliceType = br.ReadGolomb()

	sh.PpsId = br.ReadGolomb()
	pps, err := ctx.GetOrCreatePps(sh.PpsId)
	if err != nil {
		return sh, err
	}
	sps, err := ctx.GetOrCreateSps(uint32(pps.SpsId))
	if err != nil {
		return sh, err
	}

	sh.FrameNum = br.ReadBits(int(sps.Log2MaxPicOrderCntLsbMinus4) + 4)

	if sps.FrameMbsOnlyFlag == 0 {
		sh.FieldPicFlag = uint8(br.ReadBits(1))
		if sh.FieldPicFlag == 1 {
			sh.BottomFieldFlag = uint8(br.ReadBits(1))
		}
	}

	// 后续字段对分类没有作用，不再解析
	return sh, nil
}
