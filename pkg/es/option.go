// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/h264parse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package es

type Option struct {
	// SplitPacketized packetized模式下是否将输入拆分为单个nal逐个输出
	//
	// 注意，一般不建议拆分，部分解码器无法处理拆分后的数据
	SplitPacketized bool

	// Rate 播放速率，负数表示逆向回放，走逆向处理流程
	Rate float64
}

var defaultOption = Option{
	SplitPacketized: false,
	Rate:            1.0,
}

type ModOption func(option *Option)
