// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/h264parse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package avc

// BitReader 按位读取ebsp（即含有防竞争字节的rbsp）
//
// 与通用的按位读取器相比有两个特点：
//
// 1. 自动剔除防竞争字节。
//    填充缓存时，如果缓存中最近两字节为0x00 0x00且下一个输入字节为0x03，
//    则丢弃该0x03，其后一个字节无条件进入缓存。
//    ISO-14496-10.pdf 7.4.1.1 Encapsulation of an SODB within an RBSP
//
// 2. 读取越界时不报错。
//    数据不足时，本次读取的位数收缩为剩余的位数，返回值按实际读到的位数解释。
//    上层通过Eos判断是否已读完。
type BitReader struct {
	data  []byte
	pos   int
	cache uint64
	head  int // cache中有效位数
}

func NewBitReader(b []byte) BitReader {
	return BitReader{
		data:  b,
		cache: 0xffffffff,
	}
}

// ReadBits 读取n位，n取值范围[0, 32]
//
// 返回值为读到的位对应的无符号整数，数据不足时按剩余位数返回
func (br *BitReader) ReadBits(n int) uint32 {
	for br.head < n {
		if br.pos >= len(br.data) {
			n = br.head
			break
		}
		b := br.data[br.pos]
		br.pos++
		if b == 0x03 && br.cache&0xffff == 0 {
			// 防竞争字节，丢弃，下一个字节不再做检查
			if br.pos >= len(br.data) {
				n = br.head
				break
			}
			b = br.data[br.pos]
			br.pos++
		}
		br.cache = br.cache<<8 | uint64(b)
		br.head += 8
	}

	shift := br.head - n
	res := uint32(br.cache >> uint(shift))
	if n < 32 {
		res &= 1<<uint(n) - 1
	}
	br.head = shift
	return res
}

// ReadGolomb 读取无符号指数哥伦布编码，即ue(v)
//
// ISO-14496-10.pdf 9.1 Parsing process for Exp-Golomb codes
func (br *BitReader) ReadGolomb() uint32 {
	var i int
	for br.ReadBits(1) == 0 && !br.Eos() && i < 32 {
		i++
	}
	return 1<<uint(i) - 1 + br.ReadBits(i)
}

// Eos 数据是否已全部读完
func (br *BitReader) Eos() bool {
	return br.pos >= len(br.data) && br.head == 0
}
