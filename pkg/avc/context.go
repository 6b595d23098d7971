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

const (
	MaxSpsCount = 32
	MaxPpsCount = 256
)

// Hrd hypothetical reference decoder参数中，后续解析需要用到的部分
//
// ISO-14496-10.pdf Annex E.1.2 HRD parameters syntax
type Hrd struct {
	CpbCntMinus1 uint32

	InitialCpbRemovalDelayLengthMinus1 uint8
	CpbRemovalDelayLengthMinus1        uint8
	DpbOutputDelayLengthMinus1         uint8
	TimeOffsetLengthMinus1             uint8
}

// Vui video usability information
//
// 字段为nil表示对应的可选块在码流中不存在
//
// ISO-14496-10.pdf Annex E.1.1 VUI parameters syntax
type Vui struct {
	// timing info，注意，num_units_in_tick与time_scale有一个为0时整组丢弃
	NumUnitsInTick     uint32
	TimeScale          uint32
	FixedFrameRateFlag uint8

	NalHrd *Hrd
	VclHrd *Hrd

	PicStructPresentFlag uint8
}

// Sps sequence parameter set中，分类与后续解析需要用到的部分
type Sps struct {
	ProfileIdc uint8
	LevelIdc   uint8
	SpsId      uint32

	Log2MaxFrameNumMinus4       uint32
	PicOrderCntType             uint32
	Log2MaxPicOrderCntLsbMinus4 uint32
	FrameMbsOnlyFlag            uint8

	Vui *Vui
}

// EffectiveHrd 两种hrd都存在时，后解析的vcl hrd生效
func (s *Sps) EffectiveHrd() *Hrd {
	if s.Vui == nil {
		return nil
	}
	if s.Vui.VclHrd != nil {
		return s.Vui.VclHrd
	}
	return s.Vui.NalHrd
}

type Pps struct {
	PpsId uint32
	SpsId uint8
}

// Context 解析h264流过程中的上下文状态
//
// 包含sps、pps两张有界缓存表，当前生效的sps、pps，
// 以及sei、slice header解析时的工作状态。
//
// 缓存表中的记录一直保留到Context整体被丢弃，流的flush、reset不清除
type Context struct {
	spsList [MaxSpsCount]*Sps
	ppsList [MaxPpsCount]*Pps

	CurSps *Sps
	CurPps *Pps

	// sei buffering period
	InitialCpbRemovalDelay [32]uint32

	// sei pic timing
	CpbRemovalDelay uint32
	DpbOutputDelay  uint32
	PicStruct       uint8
	CtType          uint8

	// 时间戳记录，-1表示未设置
	//
	// Dts由外部在有解码时钟时填入，TsTrnNb在解析buffering period时更新
	Dts     int64
	TsTrnNb int64
}

func NewContext() *Context {
	return &Context{
		Dts:     -1,
		TsTrnNb: -1,
	}
}

// GetOrCreateSps 获取id对应的sps记录，首次访问时惰性创建零值记录
//
// 调用成功后，CurSps指向该记录。
// 同一个id多次调用返回同一个记录。
//
// @return id超出容量时返回ErrParamSetId
func (ctx *Context) GetOrCreateSps(id uint32) (*Sps, error) {
	if id >= MaxSpsCount {
		return nil, nazaerrors.Wrap(base.ErrParamSetId)
	}
	if ctx.spsList[id] == nil {
		ctx.spsList[id] = &Sps{SpsId: id}
	}
	ctx.CurSps = ctx.spsList[id]
	return ctx.spsList[id], nil
}

// GetOrCreatePps 获取id对应的pps记录，语义同GetOrCreateSps
func (ctx *Context) GetOrCreatePps(id uint32) (*Pps, error) {
	if id >= MaxPpsCount {
		return nil, nazaerrors.Wrap(base.ErrParamSetId)
	}
	if ctx.ppsList[id] == nil {
		ctx.ppsList[id] = &Pps{PpsId: id}
	}
	ctx.CurPps = ctx.ppsList[id]
	return ctx.ppsList[id], nil
}

// commitSps 解析成功的sps整体落表，解析失败时不会走到这里，原记录保持不变
func (ctx *Context) commitSps(sps *Sps) {
	ctx.spsList[sps.SpsId] = sps
	ctx.CurSps = sps
}
