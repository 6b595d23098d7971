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

	"github.com/q191201771/naza/pkg/nazalog"
)

// LogDump 高频数据日志的打印控制
//
// es流的切割输出每个nal都会经过一次，直接打印会刷屏，
// trace级别时全量打印，debug级别时只打印前面有限次数
type LogDump struct {
	log         nazalog.Logger
	debugMaxNum int

	debugCount int
}

// NewLogDump
//
// @param debugMaxNum: 日志级别为debug时，打印次数的上限
func NewLogDump(log nazalog.Logger, debugMaxNum int) LogDump {
	return LogDump{
		log:         log,
		debugMaxNum: debugMaxNum,
	}
}

func (ld *LogDump) ShouldDump() bool {
	level := ld.log.GetOption().Level
	if level == nazalog.LevelTrace {
		return true
	}
	if level == nazalog.LevelDebug && ld.debugCount < ld.debugMaxNum {
		ld.debugCount++
		return true
	}
	return false
}

// Outf
//
// 调用之前需调用 ShouldDump
// 拆分成两个函数，是为了不需要打印时省去构造实参的开销，典型的像
// ld.Outf("hex=%s", hex.Dump(buf))
// 中的hex.Dump调用
func (ld *LogDump) Outf(format string, v ...interface{}) {
	ld.log.Out(ld.log.GetOption().Level, 3, fmt.Sprintf(format, v...))
}
