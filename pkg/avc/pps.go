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

// DecodePps 解析pps并写入缓存表，只取slice header解析需要的sps_id
//
// ISO-14496-10.pdf 7.3.2.2 Picture parameter set RBSP syntax
//
// @param payload 整个nalu（包含第一个字节的nalu header）
func DecodePps(payload []byte, ctx *Context) error {
	if len(payload) < 1 {
		return nazaerrors.Wrap(base.ErrShortBuffer)
	}
	br := NewBitReader(payload[1:])

	ppsId := br.ReadGolomb()
	pps, err := ctx.GetOrCreatePps(ppsId)
	if err != nil {
		return err
	}
	pps.SpsId = uint8(br.ReadGolomb())

	nazalog.Debugf("decode pps. ppsId=%d, spsId=%d", pps.PpsId, pps.SpsId)
	return nil
}
