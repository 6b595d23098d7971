// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/h264parse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"fmt"
)

// Nalu 从h264流中切割出来的一个输出单元
//
// 字节流模式下，Payload包含4字节起始码
// packetized模式下，Payload为原始的长度前缀格式，非拆分模式时其中可能依次包含多个nal
//
// 不同场景使用时，字段含义可能不同。
// 使用Nalu的地方，应注明各字段的含义。
type Nalu struct {
	Payload   []byte // 回调后，内存块归属回调方
	Pts       int64  // 输入时外部填入的时间戳，透传
	Discont   bool   // 是否为一段不连续数据的起始单元
	DeltaUnit bool   // 是否为非关键单元，关键单元指IDR、I帧slice以及sps、pps
}

func (n Nalu) DebugString() string {
	return fmt.Sprintf("[nalu] len=%d, pts=%d, discont=%v, delta=%v", len(n.Payload), n.Pts, n.Discont, n.DeltaUnit)
}
