// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/h264parse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package avc

import (
	"testing"

	"github.com/q191201771/naza/pkg/assert"
)

func TestNewContext(t *testing.T) {
	ctx := NewContext()
	assert.Equal(t, int64(-1), ctx.Dts)
	assert.Equal(t, int64(-1), ctx.TsTrnNb)
	assert.Equal(t, nil, ctx.CurSps)
	assert.Equal(t, nil, ctx.CurPps)
}

func TestGetOrCreateSps(t *testing.T) {
	ctx := NewContext()
	s1, err := ctx.GetOrCreateSps(0)
	assert.Equal(t, nil, err)
	assert.IsNotNil(t, s1)
	assert.Equal(t, uint32(0), s1.SpsId)
	assert.Equal(t, true, ctx.CurSps == s1)

	// 同一个id返回同一条记录
	s2, err := ctx.GetOrCreateSps(0)
	assert.Equal(t, nil, err)
	assert.Equal(t, true, s1 == s2)

	s3, err := ctx.GetOrCreateSps(MaxSpsCount - 1)
	assert.Equal(t, nil, err)
	assert.Equal(t, true, ctx.CurSps == s3)

	// 超出容量，失败且不影响CurSps
	s4, err := ctx.GetOrCreateSps(MaxSpsCount)
	assert.IsNotNil(t, err)
	assert.Equal(t, nil, s4)
	assert.Equal(t, true, ctx.CurSps == s3)
}

func TestGetOrCreatePps(t *testing.T) {
	ctx := NewContext()
	p1, err := ctx.GetOrCreatePps(MaxPpsCount - 1)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint32(MaxPpsCount-1), p1.PpsId)
	assert.Equal(t, true, ctx.CurPps == p1)

	_, err = ctx.GetOrCreatePps(MaxPpsCount)
	assert.IsNotNil(t, err)
	assert.Equal(t, true, ctx.CurPps == p1)
}

func TestEffectiveHrd(t *testing.T) {
	var sps Sps
	assert.Equal(t, nil, sps.EffectiveHrd())

	nal := &Hrd{CpbCntMinus1: 1}
	vcl := &Hrd{CpbCntMinus1: 2}

	sps.Vui = &Vui{NalHrd: nal}
	assert.Equal(t, true, sps.EffectiveHrd() == nal)

	// 两种都存在时vcl hrd生效
	sps.Vui.VclHrd = vcl
	assert.Equal(t, true, sps.EffectiveHrd() == vcl)
}
