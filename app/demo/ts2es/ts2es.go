// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/h264parse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"os"

	ts "github.com/asticode/go-astits"
	"github.com/q191201771/naza/pkg/nazalog"

	"github.com/q191201771/h264parse/pkg/base"
	"github.com/q191201771/h264parse/pkg/es"
)

// 将本地ts文件中的h264流抽取为es流文件
// 功能：
// - 解复用ts，找到pmt中的h264流
// - pes数据直接喂给切割器，时间戳透传pts（90kHz）
//
// Usage:
//   ./ts2es -i test.ts -o out.h264

func main() {
	_ = nazalog.Init(func(option *nazalog.Option) {
		option.AssertBehavior = nazalog.AssertFatal
	})
	defer nazalog.Sync()

	inFilename, outFilename := parseFlag()
	fp, err := os.Open(inFilename)
	nazalog.Assert(nil, err)
	defer fp.Close()

	outFp, err := os.Create(outFilename)
	nazalog.Assert(nil, err)
	defer outFp.Close()

	count := 0
	p := es.NewParser(func(nalu base.Nalu) {
		count++
		_, _ = outFp.Write(nalu.Payload)
	})

	var videoPid uint16
	demuxer := ts.NewDemuxer(context.Background(), bufio.NewReader(fp))
	for {
		d, err := demuxer.NextData()
		if err != nil {
			if errors.Is(err, ts.ErrNoMorePackets) {
				break
			}
			nazalog.Assert(nil, err)
		}

		if d.PMT != nil {
			for _, s := range d.PMT.ElementaryStreams {
				if s.StreamType == ts.StreamTypeH264Video {
					videoPid = s.ElementaryPID
					nazalog.Infof("found h264 stream. pid=%d", videoPid)
				}
			}
			continue
		}
		if d.PES == nil || videoPid == 0 || d.FirstPacket.Header.PID != videoPid {
			continue
		}

		var pts int64
		if d.PES.Header.OptionalHeader != nil && d.PES.Header.OptionalHeader.PTS != nil {
			pts = d.PES.Header.OptionalHeader.PTS.Base
		}
		p.Feed(d.PES.Data, pts, false)
	}
	p.Eos()
	nazalog.Infof("done. naluCount=%d", count)
}

func parseFlag() (string, string) {
	i := flag.String("i", "", "specify ts file")
	o := flag.String("o", "", "specify output h264 es file")
	flag.Parse()
	if *i == "" || *o == "" {
		flag.Usage()
		os.Exit(1)
	}
	return *i, *o
}
