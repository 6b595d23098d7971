// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/h264parse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package es

// findStartCode 从start位置开始正向查找4字节起始码00 00 00 01
//
// 注意，恰好以起始码结尾的数据找不到该起始码，需要更多数据到达后才能识别，
// 这保证了分块到达与整块到达的切割结果一致
//
// @return 起始码首字节位置，没有找到时返回-1
func findStartCode(b []byte, start int) int {
	for i := start; i < len(b)-4; i++ {
		if b[i] == 0 && b[i+1] == 0 && b[i+2] == 0 && b[i+3] == 1 {
			return i
		}
	}
	return -1
}

// findStartCodeReverse 从size位置开始逆向查找起始码
//
// code为滚动的4字节窗口，字节按逆向扫描顺序累积，因此匹配值为0x01000000。
// 窗口由调用方持有，在同一段逻辑数据的多次调用间保持，
// 起始码跨越两次扫描时依然可以命中。
//
// @return 起始码首字节（第一个0x00）的位置，扫描完没有找到时返回-1
func findStartCodeReverse(b []byte, size int, code *uint32) int {
	search := *code
	for size > 0 {
		search = search<<8 | uint32(b[size-1])
		if search == 0x01000000 {
			break
		}
		size--
	}
	*code = search
	return size - 1
}

// readNaluSize 读取packetized模式下的大端长度前缀
func readNaluSize(b []byte, naluLengthSize int) int {
	var size int
	for i := 0; i < naluLengthSize; i++ {
		size = size<<8 | int(b[i])
	}
	return size
}
