// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/h264parse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package avc

import (
	"github.com/q191201771/naza/pkg/bele"
	"github.com/q191201771/naza/pkg/nazaerrors"
	"github.com/q191201771/naza/pkg/nazalog"

	"github.com/q191201771/h264parse/pkg/base"
)

// DecoderConfigurationRecord avc decoder configuration record，即常说的codec data
//
// H.264-AVC-ISO_IEC_14496-15.pdf
// 5.2.4 Decoder configuration information
type DecoderConfigurationRecord struct {
	ConfigurationVersion uint8
	AvcProfileIndication uint8
	ProfileCompatibility uint8
	AvcLevelIndication   uint8
	LengthSizeMinusOne   uint8

	SpsList [][]byte
	PpsList [][]byte
}

// ParseDecoderConfigurationRecord 解析codec data
//
// 头部不满足格式时返回ErrCodecData，这类错误是致命的。
// sps、pps列表部分损坏时不算失败，返回已解析出的部分。
//
// @param b codec data内存块，内部不持有，sps、pps为拷贝出来的内存块
func ParseDecoderConfigurationRecord(b []byte) (dcr DecoderConfigurationRecord, err error) {
	if len(b) < 7 {
		return dcr, nazaerrors.Wrap(base.ErrCodecData)
	}
	if b[0] != 1 {
		return dcr, nazaerrors.Wrap(base.ErrCodecData)
	}

	dcr.ConfigurationVersion = b[0]
	dcr.AvcProfileIndication = b[1]
	dcr.ProfileCompatibility = b[2]
	dcr.AvcLevelIndication = b[3]
	// 6 bits reserved | 2 bits lengthSizeMinusOne
	dcr.LengthSizeMinusOne = b[4] & 0x03

	nazalog.Debugf("codec data header. profile=%06x, naluLengthSize=%d",
		bele.BeUint24(b[1:]), dcr.LengthSizeMinusOne+1)

	// 3 bits reserved | 5 bits numOfSps
	numOfSps := int(b[5] & 0x1f)
	pos := 6
	for i := 0; i < numOfSps; i++ {
		if pos+2 > len(b) {
			nazalog.Warnf("codec data sps list truncated. pos=%d, len=%d", pos, len(b))
			return dcr, nil
		}
		length := int(bele.BeUint16(b[pos:]))
		pos += 2
		if pos+length > len(b) {
			nazalog.Warnf("codec data sps list truncated. pos=%d, spsLength=%d, len=%d", pos, length, len(b))
			return dcr, nil
		}
		sps := make([]byte, length)
		copy(sps, b[pos:pos+length])
		dcr.SpsList = append(dcr.SpsList, sps)
		pos += length
	}

	if pos+1 > len(b) {
		return dcr, nil
	}
	numOfPps := int(b[pos])
	pos++
	for i := 0; i < numOfPps; i++ {
		if pos+2 > len(b) {
			nazalog.Warnf("codec data pps list truncated. pos=%d, len=%d", pos, len(b))
			return dcr, nil
		}
		length := int(bele.BeUint16(b[pos:]))
		pos += 2
		if pos+length > len(b) {
			nazalog.Warnf("codec data pps list truncated. pos=%d, ppsLength=%d, len=%d", pos, length, len(b))
			return dcr, nil
		}
		pps := make([]byte, length)
		copy(pps, b[pos:pos+length])
		dcr.PpsList = append(dcr.PpsList, pps)
		pos += length
	}

	return dcr, nil
}
