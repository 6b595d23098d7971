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
	"fmt"
	"io/ioutil"
	"os"

	"github.com/q191201771/naza/pkg/bininfo"
	"github.com/q191201771/naza/pkg/nazalog"

	"github.com/q191201771/h264parse/pkg/avc"
	"github.com/q191201771/h264parse/pkg/base"
	"github.com/q191201771/h264parse/pkg/es"
)

// 分析本地h264 es流文件（字节流格式）
// 功能：
// - 打印每个nal的类型、长度以及关键标记
// - 统计各类型nal的数量
// - 文件读完后打印流中最后生效的sps信息
//
// Usage:
//   ./analysees -i test.h264

func main() {
	_ = nazalog.Init(func(option *nazalog.Option) {
		option.AssertBehavior = nazalog.AssertFatal
	})
	defer nazalog.Sync()

	filename := parseFlag()
	b, err := ioutil.ReadFile(filename)
	nazalog.Assert(nil, err)
	nazalog.Infof("read es file succ. len=%d", len(b))

	count := 0
	typeCount := make(map[string]int)
	keyCount := 0

	p := es.NewParser(func(nalu base.Nalu) {
		t := avc.ParseNaluTypeReadable(nalu.Payload[4])
		nazalog.Debugf("%s, type=%s", nalu.DebugString(), t)

		count++
		typeCount[t]++
		if !nalu.DeltaUnit {
			keyCount++
		}
	})

	p.Feed(b, 0, false)
	// 文件末尾补一个aud，将最后一个nal顶出来
	p.Feed([]byte{0x00, 0x00, 0x00, 0x01, 0x09}, 0, false)
	p.Eos()

	nazalog.Infof("nalu count=%d, keyCount=%d", count, keyCount)
	for t, c := range typeCount {
		nazalog.Infof("  %s=%d", t, c)
	}
	if sps := p.Context().CurSps; sps != nil {
		nazalog.Infof("sps. profile=%d, level=%d, pocType=%d, frameMbsOnly=%d",
			sps.ProfileIdc, sps.LevelIdc, sps.PicOrderCntType, sps.FrameMbsOnlyFlag)
	}
}

func parseFlag() string {
	v := flag.Bool("v", false, "show bin info")
	i := flag.String("i", "", "specify h264 es file")
	flag.Parse()
	if *v {
		_, _ = fmt.Fprint(os.Stderr, bininfo.StringifyMultiLine())
		_, _ = fmt.Fprintln(os.Stderr, base.FullInfo)
		os.Exit(0)
	}
	if *i == "" {
		flag.Usage()
		os.Exit(1)
	}
	return *i
}
