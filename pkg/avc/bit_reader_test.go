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

func TestBitReader(t *testing.T) {
	br := NewBitReader([]byte{0xA5, 0x3C})
	assert.Equal(t, uint32(0xA), br.ReadBits(4))
	assert.Equal(t, uint32(0x53), br.ReadBits(8))
	assert.Equal(t, uint32(0xC), br.ReadBits(4))
	assert.Equal(t, true, br.Eos())
}

func TestBitReaderEscape(t *testing.T) {
	// 0x00 0x00 0x03 0x01，剔除防竞争字节后为0x00 0x00 0x01
	br := NewBitReader([]byte{0x00, 0x00, 0x03, 0x01})
	assert.Equal(t, uint32(0x000001), br.ReadBits(24))
	assert.Equal(t, true, br.Eos())

	// 前两字节不是0x00 0x00，0x03为普通数据
	br = NewBitReader([]byte{0x00, 0x03, 0x01})
	assert.Equal(t, uint32(0x000301), br.ReadBits(24))
	assert.Equal(t, true, br.Eos())

	// 防竞争字节位于数据末尾
	br = NewBitReader([]byte{0x00, 0x00, 0x03})
	assert.Equal(t, uint32(0), br.ReadBits(24))
	assert.Equal(t, true, br.Eos())
}

func TestBitReaderShortage(t *testing.T) {
	// 数据不足时收缩为剩余位数，不报错
	br := NewBitReader([]byte{0x80})
	assert.Equal(t, uint32(8), br.ReadBits(4))
	assert.Equal(t, uint32(0), br.ReadBits(8))
	assert.Equal(t, true, br.Eos())

	br = NewBitReader(nil)
	assert.Equal(t, uint32(0), br.ReadBits(8))
	assert.Equal(t, true, br.Eos())
}

func TestBitReaderGolomb(t *testing.T) {
	golden := map[uint8]uint32{
		0x80: 0,
		0x40: 1,
		0x60: 2,
		0x20: 3,
		0x38: 6,
	}
	for in, out := range golden {
		br := NewBitReader([]byte{in})
		assert.Equal(t, out, br.ReadGolomb())
	}

	// 30个前导0，最大合法范围附近的值
	br := NewBitReader([]byte{0xF0, 0x00, 0x00, 0x00, 0x3F, 0xFF, 0xFF, 0xFF, 0x80})
	assert.Equal(t, uint32(15), br.ReadBits(4))
	assert.Equal(t, uint32(2147483646), br.ReadGolomb())

	// 全0数据，前导0计数到上限后终止，不会死循环
	br = NewBitReader([]byte{0x00, 0x00, 0x00, 0x00, 0x00})
	assert.Equal(t, uint32(0xffffffff), br.ReadGolomb())
	assert.Equal(t, true, br.Eos())
}
