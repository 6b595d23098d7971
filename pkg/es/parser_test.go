// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/h264parse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package es

import (
	"testing"

	"github.com/q191201771/naza/pkg/assert"

	"github.com/q191201771/h264parse/pkg/avc"
	"github.com/q191201771/h264parse/pkg/base"
)

// 手工构造的nalu，位布局见pkg/avc中的测试
var (
	testSps = []byte{0x67, 0x42, 0x00, 0x1E, 0xED, 0x02, 0x83, 0xF2}
	testPps = []byte{0x68, 0xCE, 0x3C, 0x80}
	testIdr = []byte{0x65, 0x88, 0x84, 0x00} // slice_type=7(I)
	testP   = []byte{0x41, 0x9A, 0x00}       // slice_type=5(P)
	testSei = []byte{0x06, 0x00, 0x01, 0x80} // buffering period
)

// annexb 为每个nalu添加4字节起始码后拼接
func annexb(units ...[]byte) []byte {
	var b []byte
	for _, unit := range units {
		b = append(b, avc.NaluStartCode...)
		b = append(b, unit...)
	}
	return b
}

// pack 为每个nalu添加4字节大端长度前缀后拼接
func pack(units ...[]byte) []byte {
	var b []byte
	for _, unit := range units {
		b = append(b, uint8(len(unit)>>24), uint8(len(unit)>>16), uint8(len(unit)>>8), uint8(len(unit)))
		b = append(b, unit...)
	}
	return b
}

func buildDcr(sps []byte, pps []byte) []byte {
	b := []byte{0x01, sps[1], sps[2], sps[3], 0xFF, 0xE1}
	b = append(b, uint8(len(sps)>>8), uint8(len(sps)))
	b = append(b, sps...)
	b = append(b, 0x01, uint8(len(pps)>>8), uint8(len(pps)))
	b = append(b, pps...)
	return b
}

func TestParserForward(t *testing.T) {
	var out []base.Nalu
	p := NewParser(func(nalu base.Nalu) {
		out = append(out, nalu)
	})

	p.Feed(annexb(testSps, testPps, testIdr, testP), 42, true)
	// 最后一个nal要等下一个起始码到达才能确定边界
	assert.Equal(t, 3, len(out))
	p.Feed(annexb(testIdr), 43, false)
	assert.Equal(t, 4, len(out))

	assert.Equal(t, annexb(testSps), out[0].Payload)
	assert.Equal(t, annexb(testPps), out[1].Payload)
	assert.Equal(t, annexb(testIdr), out[2].Payload)
	assert.Equal(t, annexb(testP), out[3].Payload)

	// sps、pps以及关键slice不是delta，普通slice是
	assert.Equal(t, false, out[0].DeltaUnit)
	assert.Equal(t, false, out[1].DeltaUnit)
	assert.Equal(t, false, out[2].DeltaUnit)
	assert.Equal(t, true, out[3].DeltaUnit)

	// discont只打在其后的第一个输出上
	assert.Equal(t, true, out[0].Discont)
	assert.Equal(t, false, out[1].Discont)
	assert.Equal(t, false, out[2].Discont)
	assert.Equal(t, false, out[3].Discont)

	assert.Equal(t, int64(42), out[0].Pts)
	// 最后一个单元在下一次Feed时输出，使用该次Feed的时间戳
	assert.Equal(t, int64(43), out[3].Pts)

	// 切割过程中sps、pps已落表
	assert.IsNotNil(t, p.Context().CurSps)
	assert.IsNotNil(t, p.Context().CurPps)
}

func TestParserForwardChunked(t *testing.T) {
	var whole []base.Nalu
	p := NewParser(func(nalu base.Nalu) {
		whole = append(whole, nalu)
	})
	stream := annexb(testSps, testPps, testIdr, testP, testIdr)
	p.Feed(stream, 42, false)

	// 按单字节喂入，切割结果与整块喂入一致
	var chunked []base.Nalu
	q := NewParser(func(nalu base.Nalu) {
		chunked = append(chunked, nalu)
	})
	for i := range stream {
		q.Feed(stream[i:i+1], 42, false)
	}

	assert.Equal(t, 4, len(whole))
	assert.Equal(t, len(whole), len(chunked))
	for i := range whole {
		assert.Equal(t, whole[i].Payload, chunked[i].Payload)
		assert.Equal(t, whole[i].DeltaUnit, chunked[i].DeltaUnit)
	}
}

func TestParserForwardDiscont(t *testing.T) {
	var out []base.Nalu
	p := NewParser(func(nalu base.Nalu) {
		out = append(out, nalu)
	})

	p.Feed(annexb(testSps, testPps), 0, false)
	assert.Equal(t, 1, len(out))

	// discont丢弃拼接缓存中还未输出的pps，并在下一个输出上打标记
	p.Feed(annexb(testIdr, testP), 100, true)
	assert.Equal(t, 2, len(out))
	assert.Equal(t, annexb(testSps), out[0].Payload)
	assert.Equal(t, annexb(testIdr), out[1].Payload)
	assert.Equal(t, false, out[0].Discont)
	assert.Equal(t, true, out[1].Discont)
	assert.Equal(t, int64(100), out[1].Pts)
}

func TestParserForwardSei(t *testing.T) {
	var out []base.Nalu
	p := NewParser(func(nalu base.Nalu) {
		out = append(out, nalu)
	})

	p.Feed(annexb(testSps, testSei, testIdr, testP), 0, false)
	assert.Equal(t, 3, len(out))
	assert.Equal(t, annexb(testSei), out[1].Payload)
	// sei是delta
	assert.Equal(t, false, out[0].DeltaUnit)
	assert.Equal(t, true, out[1].DeltaUnit)
	assert.Equal(t, false, out[2].DeltaUnit)

	// buffering period顺带解析
	assert.Equal(t, int64(0), p.Context().TsTrnNb)
}

func TestParserPacketized(t *testing.T) {
	var out []base.Nalu
	p := NewParser(func(nalu base.Nalu) {
		out = append(out, nalu)
	})
	err := p.SetCodecData(buildDcr(testSps, testPps))
	assert.Equal(t, nil, err)
	// 配置中的sps、pps直接落表
	assert.IsNotNil(t, p.Context().CurSps)
	assert.IsNotNil(t, p.Context().CurPps)

	// 默认不拆分，一次Feed的整包作为一个单元输出，打标记按第一个nal算
	p.Feed(pack(testIdr, testP), 7, false)
	assert.Equal(t, 1, len(out))
	assert.Equal(t, pack(testIdr, testP), out[0].Payload)
	assert.Equal(t, false, out[0].DeltaUnit)
	assert.Equal(t, int64(7), out[0].Pts)

	p.Feed(pack(testP), 8, false)
	assert.Equal(t, 2, len(out))
	assert.Equal(t, pack(testP), out[1].Payload)
	assert.Equal(t, true, out[1].DeltaUnit)
}

func TestParserSplitPacketized(t *testing.T) {
	var out []base.Nalu
	p := NewParser(func(nalu base.Nalu) {
		out = append(out, nalu)
	}, func(option *Option) {
		option.SplitPacketized = true
	})
	err := p.SetCodecData(buildDcr(testSps, testPps))
	assert.Equal(t, nil, err)

	p.Feed(pack(testIdr, testP), 7, false)
	assert.Equal(t, 2, len(out))
	assert.Equal(t, pack(testIdr), out[0].Payload)
	assert.Equal(t, pack(testP), out[1].Payload)
	assert.Equal(t, false, out[0].DeltaUnit)
	assert.Equal(t, true, out[1].DeltaUnit)
}

func TestParserPacketizedFixSize(t *testing.T) {
	var out []base.Nalu
	p := NewParser(func(nalu base.Nalu) {
		out = append(out, nalu)
	}, func(option *Option) {
		option.SplitPacketized = true
	})
	err := p.SetCodecData(buildDcr(testSps, testPps))
	assert.Equal(t, nil, err)

	// 长度前缀超过实际数据，修正为剩余长度后整包输出
	big := append([]byte{0x00, 0x00, 0xFF, 0xFF}, testIdr...)
	p.Feed(big, 1, false)
	assert.Equal(t, 1, len(out))
	assert.Equal(t, big, out[0].Payload)

	// 长度前缀为0同样修正
	zero := append([]byte{0x00, 0x00, 0x00, 0x00}, testIdr...)
	p.Feed(zero, 2, false)
	assert.Equal(t, 2, len(out))
	assert.Equal(t, zero, out[1].Payload)
}

func TestParserSetCodecDataFatal(t *testing.T) {
	p := NewParser(nil)
	assert.IsNotNil(t, p.SetCodecData(nil))

	bad := buildDcr(testSps, testPps)
	bad[0] = 0x00
	assert.IsNotNil(t, p.SetCodecData(bad))

	// 失败不切换模式
	assert.Equal(t, false, p.packetized)
	assert.Equal(t, 4, p.naluLengthSize)
}

func TestParserReverse(t *testing.T) {
	var out []base.Nalu
	p := NewParser(func(nalu base.Nalu) {
		out = append(out, nalu)
	}, func(option *Option) {
		option.Rate = -1
	})

	// 逆向回放时上游按分段逆序喂入，每段开头打discont
	section2 := annexb(testIdr, testP)
	section1 := annexb(testSps, testPps, testIdr, testP)

	p.Feed(section2, 2000, true)
	assert.Equal(t, 0, len(out))

	// 新分段到来，前一段切割入队，直到回溯出更早的非关键slice才刷出
	p.Feed(section1, 1000, true)
	assert.Equal(t, 0, len(out))

	p.Eos()
	assert.Equal(t, 6, len(out))

	// 每段内部重排为正向顺序，段与段之间时间逆向
	assert.Equal(t, annexb(testIdr), out[0].Payload)
	assert.Equal(t, annexb(testP), out[1].Payload)
	assert.Equal(t, annexb(testSps), out[2].Payload)
	assert.Equal(t, annexb(testPps), out[3].Payload)
	assert.Equal(t, annexb(testIdr), out[4].Payload)
	assert.Equal(t, annexb(testP), out[5].Payload)

	assert.Equal(t, int64(2000), out[0].Pts)
	assert.Equal(t, int64(2000), out[1].Pts)
	assert.Equal(t, int64(1000), out[2].Pts)
	assert.Equal(t, int64(1000), out[5].Pts)

	// 每次刷出的第一个单元带discont
	assert.Equal(t, true, out[0].Discont)
	assert.Equal(t, false, out[1].Discont)
	assert.Equal(t, true, out[2].Discont)
	assert.Equal(t, false, out[3].Discont)
	assert.Equal(t, false, out[4].Discont)
	assert.Equal(t, false, out[5].Discont)

	// 刷出时只有关键帧不是delta
	assert.Equal(t, false, out[0].DeltaUnit)
	assert.Equal(t, true, out[1].DeltaUnit)
	assert.Equal(t, true, out[2].DeltaUnit)
	assert.Equal(t, true, out[3].DeltaUnit)
	assert.Equal(t, false, out[4].DeltaUnit)
	assert.Equal(t, true, out[5].DeltaUnit)
}

func TestParserReverseMerge(t *testing.T) {
	var out []base.Nalu
	p := NewParser(func(nalu base.Nalu) {
		out = append(out, nalu)
	}, func(option *Option) {
		option.Rate = -1
	})

	// 同一分段分两块到达，起始码跨越两块
	section := annexb(testIdr, testP)
	p.Feed(section[:10], 5, true)
	p.Feed(section[10:], 5, false)
	p.Eos()

	assert.Equal(t, 2, len(out))
	assert.Equal(t, annexb(testIdr), out[0].Payload)
	assert.Equal(t, annexb(testP), out[1].Payload)
	assert.Equal(t, true, out[0].Discont)
}

func TestParserReversePacketized(t *testing.T) {
	var out []base.Nalu
	p := NewParser(func(nalu base.Nalu) {
		out = append(out, nalu)
	}, func(option *Option) {
		option.Rate = -1
	})
	err := p.SetCodecData(buildDcr(testSps, testPps))
	assert.Equal(t, nil, err)

	p.Feed(pack(testIdr), 200, true)
	p.Feed(pack(testIdr), 100, true)
	p.Feed(pack(testP), 100, false)
	assert.Equal(t, 0, len(out))
	p.Eos()

	assert.Equal(t, 3, len(out))
	assert.Equal(t, pack(testIdr), out[0].Payload)
	assert.Equal(t, int64(200), out[0].Pts)
	assert.Equal(t, true, out[0].Discont)
	assert.Equal(t, pack(testIdr), out[1].Payload)
	assert.Equal(t, int64(100), out[1].Pts)
	assert.Equal(t, true, out[1].Discont)
	assert.Equal(t, pack(testP), out[2].Payload)
	assert.Equal(t, false, out[2].Discont)
	assert.Equal(t, true, out[2].DeltaUnit)
}

func TestParserReset(t *testing.T) {
	var out []base.Nalu
	p := NewParser(func(nalu base.Nalu) {
		out = append(out, nalu)
	})

	p.Feed(annexb(testSps), 0, false)
	assert.Equal(t, 0, len(out))
	p.Reset()

	// 拼接缓存中的sps被丢弃，但缓存表保留
	p.Feed(annexb(testPps, testIdr), 0, false)
	assert.Equal(t, 1, len(out))
	assert.Equal(t, annexb(testPps), out[0].Payload)
	assert.IsNotNil(t, p.Context().CurSps)

	// 逆向时清掉攒批数据
	var out2 []base.Nalu
	q := NewParser(func(nalu base.Nalu) {
		out2 = append(out2, nalu)
	}, func(option *Option) {
		option.Rate = -1
	})
	q.Feed(annexb(testIdr), 0, true)
	q.Reset()
	q.Eos()
	assert.Equal(t, 0, len(out2))
}

func TestParserEos(t *testing.T) {
	var out []base.Nalu
	p := NewParser(func(nalu base.Nalu) {
		out = append(out, nalu)
	})

	// 正向时eos丢弃残留数据
	p.Feed(annexb(testSps), 0, false)
	p.Eos()
	assert.Equal(t, 0, len(out))
}

func TestParserSetRate(t *testing.T) {
	var out []base.Nalu
	p := NewParser(func(nalu base.Nalu) {
		out = append(out, nalu)
	})

	// 切到逆向后，Feed走攒批流程
	p.SetRate(-2)
	p.Feed(annexb(testIdr, testP), 0, true)
	assert.Equal(t, 0, len(out))
	p.Eos()
	assert.Equal(t, 2, len(out))
	assert.Equal(t, annexb(testIdr), out[0].Payload)
	assert.Equal(t, annexb(testP), out[1].Payload)
}
