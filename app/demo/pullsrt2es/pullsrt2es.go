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
	"time"

	ts "github.com/asticode/go-astits"
	"github.com/haivision/srtgo"
	"github.com/q191201771/naza/pkg/bitrate"
	"github.com/q191201771/naza/pkg/nazalog"

	"github.com/q191201771/h264parse/pkg/base"
	"github.com/q191201771/h264parse/pkg/es"
)

// 从srt源拉取mpegts流，抽取其中的h264流写入本地es文件
// 功能：
// - caller方式连接srt源（比如srt-live-transmit、OBS推流的中转）
// - 解复用ts，pes数据喂给切割器，输出带起始码的es流
//
// Usage:
//   ./pullsrt2es -h 127.0.0.1 -p 6001 -s "#!::h=test,m=request" -o out.h264

func main() {
	_ = nazalog.Init(func(option *nazalog.Option) {
		option.AssertBehavior = nazalog.AssertFatal
	})
	defer nazalog.Sync()

	host, port, streamid, outFilename := parseFlag()

	outFp, err := os.Create(outFilename)
	nazalog.Assert(nil, err)
	defer outFp.Close()

	options := map[string]string{
		"transtype": "live",
	}
	if streamid != "" {
		options["streamid"] = streamid
	}
	sck := srtgo.NewSrtSocket(host, uint16(port), options)
	defer sck.Close()
	err = sck.Connect()
	nazalog.Assert(nil, err)
	nazalog.Infof("connect srt source succ. host=%s, port=%d", host, port)

	count := 0
	p := es.NewParser(func(nalu base.Nalu) {
		count++
		_, _ = outFp.Write(nalu.Payload)
	})

	brVideo := bitrate.New(func(option *bitrate.Option) {
		option.WindowMs = 5000
	})
	go func() {
		for {
			time.Sleep(5 * time.Second)
			nazalog.Debugf("stat. video=%dKb/s, naluCount=%d", int(brVideo.Rate()), count)
		}
	}()

	var videoPid uint16
	demuxer := ts.NewDemuxer(context.Background(), bufio.NewReader(sck))
	for {
		d, err := demuxer.NextData()
		if err != nil {
			if errors.Is(err, ts.ErrNoMorePackets) || errors.Is(err, srtgo.EConnLost) {
				nazalog.Infof("source closed. err=%+v", err)
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
		brVideo.Add(len(d.PES.Data))
		p.Feed(d.PES.Data, pts, false)
	}
	p.Eos()
	nazalog.Infof("done. naluCount=%d", count)
}

func parseFlag() (string, int, string, string) {
	h := flag.String("h", "127.0.0.1", "specify srt host")
	port := flag.Int("p", 6001, "specify srt port")
	s := flag.String("s", "", "specify srt streamid")
	o := flag.String("o", "", "specify output h264 es file")
	flag.Parse()
	if *o == "" {
		flag.Usage()
		os.Exit(1)
	}
	return *h, *port, *s, *o
}
