// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/h264parse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"flag"
	"io/ioutil"
	"os"

	"github.com/q191201771/naza/pkg/nazalog"

	"github.com/q191201771/h264parse/pkg/base"
	"github.com/q191201771/h264parse/pkg/es"
)

// 模拟播放器倒放，将本地h264 es流文件重排后写入新文件
// 功能：
// - 第一遍正向切割，找出各gop的字节边界
// - 第二遍从最后一个gop开始逆序喂入逆向解析器，每个gop开头打discont
// - 输出文件中gop之间时间逆向，gop内部依然是正向顺序，可直接喂给解码器
//
// Usage:
//   ./reversees -i test.h264 -o out.h264

func main() {
	_ = nazalog.Init(func(option *nazalog.Option) {
		option.AssertBehavior = nazalog.AssertFatal
	})
	defer nazalog.Sync()

	inFilename, outFilename := parseFlag()
	b, err := ioutil.ReadFile(inFilename)
	nazalog.Assert(nil, err)

	// 第一遍，正向切割拿到gop边界
	//
	// 输入连续喂入时，输出的偏移是连续累加的，
	// delta之后的第一个非delta单元（通常是sps或关键slice）即为新gop的起点
	bounds := []int{0}
	offset := 0
	prevDelta := false
	fwd := es.NewParser(func(nalu base.Nalu) {
		if !nalu.DeltaUnit && prevDelta {
			bounds = append(bounds, offset)
		}
		prevDelta = nalu.DeltaUnit
		offset += len(nalu.Payload)
	})
	fwd.Feed(b, 0, false)
	fwd.Eos()
	nazalog.Infof("gop count=%d", len(bounds))

	outFp, err := os.Create(outFilename)
	nazalog.Assert(nil, err)
	defer outFp.Close()

	rev := es.NewParser(func(nalu base.Nalu) {
		if nalu.Discont {
			nazalog.Debugf("gop start. %s", nalu.DebugString())
		}
		_, _ = outFp.Write(nalu.Payload)
	}, func(option *es.Option) {
		option.Rate = -1
	})

	// 第二遍，按gop逆序喂入，最后一个gop的边界是文件末尾
	for i := len(bounds) - 1; i >= 0; i-- {
		end := len(b)
		if i+1 < len(bounds) {
			end = bounds[i+1]
		}
		rev.Feed(b[bounds[i]:end], int64(i)*40, true)
	}
	rev.Eos()
	nazalog.Infof("done.")
}

func parseFlag() (string, string) {
	i := flag.String("i", "", "specify h264 es file")
	o := flag.String("o", "", "specify output h264 es file")
	flag.Parse()
	if *i == "" || *o == "" {
		flag.Usage()
		os.Exit(1)
	}
	return *i, *o
}
