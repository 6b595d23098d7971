// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/h264parse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package es

import (
	"encoding/hex"

	"github.com/q191201771/naza/pkg/nazabytes"

	"github.com/q191201771/h264parse/pkg/avc"
	"github.com/q191201771/h264parse/pkg/base"
)

// OnNalu 切割后的输出回调
//
// 注意，回调结束后，es.Parser 不再使用nalu中的内存块
type OnNalu func(nalu base.Nalu)

const (
	initialAdapterSize = 4096

	dumpDebugMaxNum = 32
)

// gatherBuf 逆向回放时暂存的一段输入，等待discont触发切割
type gatherBuf struct {
	payload []byte
	pts     int64
}

// naluInfo 单个nal分类的结果
type naluInfo struct {
	naluType uint8
	refIdc   uint8

	firstMb   uint32
	sliceType uint32

	slice    bool
	keyFrame bool
}

// Parser h264 es流切割、分类器
//
// 输入字节流（annexb）或packetized（avcc）格式的h264数据，
// 切割为以nal为单位的 base.Nalu 输出，并打上关键、非关键以及不连续标记。
//
// 正向播放时按起始码或长度前缀切割后立即输出。
// 逆向回放时（速率为负）只攒批缓存，discont到来时逆向扫描已攒批的数据，
// 重排后输出，保证每个gop内部依然是正向顺序，gop之间时间逆向。
//
// 非线程安全，调用方保证所有方法在同一个goroutine中调用
type Parser struct {
	UniqueKey string

	option Option
	onNalu OnNalu
	dump   base.LogDump

	ctx *avc.Context

	packetized     bool
	naluLengthSize int
	rate           float64

	// 正向
	adapter *nazabytes.Buffer
	discont bool

	// 逆向
	gather       []gatherBuf
	prev         []byte
	queue        naluQueue
	haveKeyFrame bool
}

// NewParser
//
// @param onNalu 输出回调，见 OnNalu
func NewParser(onNalu OnNalu, modOptions ...ModOption) *Parser {
	option := defaultOption
	for _, fn := range modOptions {
		fn(&option)
	}

	uk := base.GenUkEsParser()
	p := &Parser{
		UniqueKey:      uk,
		option:         option,
		onNalu:         onNalu,
		dump:           base.NewLogDump(Log, dumpDebugMaxNum),
		ctx:            avc.NewContext(),
		packetized:     false,
		naluLengthSize: 4,
		rate:           option.Rate,
		adapter:        nazabytes.NewBuffer(initialAdapterSize),
	}
	Log.Infof("[%s] lifecycle new es.Parser. option=%+v", uk, option)
	return p
}

// SetCodecData 设置解码器配置（即avcC格式的DecoderConfigurationRecord），切换为packetized模式
//
// 纯字节流输入不需要调用。
//
// 注意，失败时解析器保持原状态不变
//
// @return 配置非法时返回 base.ErrCodecData
func (p *Parser) SetCodecData(b []byte) error {
	dcr, err := avc.ParseDecoderConfigurationRecord(b)
	if err != nil {
		return err
	}

	p.packetized = true
	p.naluLengthSize = int(dcr.LengthSizeMinusOne) + 1
	Log.Debugf("[%s] codec data. naluLengthSize=%d, spsCount=%d, ppsCount=%d",
		p.UniqueKey, p.naluLengthSize, len(dcr.SpsList), len(dcr.PpsList))

	// 配置中自带的sps、pps同样送入缓存表，后续slice分类可以直接使用
	for _, sps := range dcr.SpsList {
		if err := avc.DecodeSps(sps, p.ctx); err != nil {
			Log.Warnf("[%s] decode sps in codec data failed. err=%+v, sps=%s",
				p.UniqueKey, err, hex.Dump(nazabytes.Prefix(sps, 32)))
		}
	}
	for _, pps := range dcr.PpsList {
		if err := avc.DecodePps(pps, p.ctx); err != nil {
			Log.Warnf("[%s] decode pps in codec data failed. err=%+v, pps=%s",
				p.UniqueKey, err, hex.Dump(nazabytes.Prefix(pps, 32)))
		}
	}
	return nil
}

// SetRate 设置播放速率，正数正向播放，负数逆向回放
//
// 注意，只决定后续Feed走正向还是逆向流程，
// 方向切换时的中间状态由调用方通过Reset清理
func (p *Parser) SetRate(rate float64) {
	Log.Debugf("[%s] set rate. rate=%v", p.UniqueKey, rate)
	p.rate = rate
}

// Context 返回解析过程中积累的上下文，包含sps、pps缓存表等，调用方只读
func (p *Parser) Context() *avc.Context {
	return p.ctx
}

// Feed 喂入一段数据
//
// 可以在任意位置切块，跨Feed的数据内部会拼接。
//
// @param payload 内部不持有该内存块
// @param pts     该段数据的显示时间戳，正向时本次Feed输出的所有nal都使用该值
// @param discont 输入流在此处不连续（比如seek后的第一段数据）。
//                正向时清空拼接缓存，并在下一个输出上打discont标记，
//                逆向时表示一个回溯分段的开始，触发对已攒批数据的切割输出
func (p *Parser) Feed(payload []byte, pts int64, discont bool) {
	Log.Debugf("[%s] > Feed. size=%d, pts=%d, discont=%v", p.UniqueKey, len(payload), pts, discont)
	if p.rate > 0 {
		p.chainForward(payload, pts, discont)
	} else {
		p.chainReverse(payload, pts, discont)
	}
}

// Eos 输入流结束
//
// 逆向回放时将剩余攒批数据全部切割输出，正向时丢弃拼接缓存中的残留数据
func (p *Parser) Eos() {
	Log.Debugf("[%s] > Eos.", p.UniqueKey)
	if p.rate > 0 {
		if p.adapter.Len() > 0 {
			Log.Debugf("[%s] eos with bytes left in adapter, dropping. size=%d", p.UniqueKey, p.adapter.Len())
		}
		return
	}
	p.chainReverse(nil, 0, true)
	p.flushDecode()
}

// Reset 清空切割过程中的所有中间缓存，对应播放器seek时的flush
//
// 注意，sps、pps缓存表以及discont标记保持不变
func (p *Parser) Reset() {
	Log.Debugf("[%s] > Reset.", p.UniqueKey)
	p.gather = nil
	p.queue.clear()
	p.prev = nil
	p.adapter.Reset()
	p.haveKeyFrame = false
}

func (p *Parser) chainForward(payload []byte, pts int64, discont bool) {
	if discont {
		p.adapter.Reset()
		p.discont = true
	}

	_, _ = p.adapter.Write(payload)

	for {
		avail := p.adapter.Len()
		if avail < p.naluLengthSize+1 {
			break
		}
		rb := p.adapter.Bytes()

		nextNaluPos := -1
		if !p.packetized {
			// 字节流，位置0是当前nal的起始码，从1开始找下一个
			nextNaluPos = findStartCode(rb, 1)
		} else {
			naluSize := readNaluSize(rb, p.naluLengthSize)
			if naluSize <= 1 || naluSize+p.naluLengthSize > avail {
				Log.Debugf("[%s] fix invalid nalu size. %d -> %d", p.UniqueKey, naluSize, avail-p.naluLengthSize)
				naluSize = avail - p.naluLengthSize
			}
			if p.option.SplitPacketized {
				if naluSize+p.naluLengthSize <= avail {
					nextNaluPos = naluSize + p.naluLengthSize
				}
			} else {
				// 不拆分时整包输出，即使其中包含多个nal
				nextNaluPos = avail
			}
		}

		// 切割点找没找到，分类都先做，sps、pps等落表操作是幂等的
		info := p.classify(rb[p.naluLengthSize:])
		deltaUnit := true
		if info.slice {
			deltaUnit = !info.keyFrame
		} else if info.naluType == avc.NaluTypeSps || info.naluType == avc.NaluTypePps {
			deltaUnit = false
		}

		if nextNaluPos <= 0 {
			// 没有完整的nal，等待更多数据
			break
		}

		out := make([]byte, nextNaluPos)
		copy(out, rb)
		p.adapter.Skip(nextNaluPos)

		nalu := base.Nalu{
			Payload:   out,
			Pts:       pts,
			DeltaUnit: deltaUnit,
		}
		if p.discont {
			nalu.Discont = true
			p.discont = false
		}
		Log.Debugf("[%s] pushing nalu. size=%d, pts=%d, type=%s, delta=%v, discont=%v",
			p.UniqueKey, nextNaluPos, pts, avc.ParseNaluTypeReadable(info.naluType), nalu.DeltaUnit, nalu.Discont)
		p.emit(nalu)
	}
}

func (p *Parser) chainReverse(payload []byte, pts int64, discont bool) {
	if discont {
		prev := p.prev
		p.prev = nil

		Log.Debugf("[%s] received discont, processing gathered buffers. count=%d", p.UniqueKey, len(p.gather))

		// gather中后到的数据在流顺序上靠后，从它开始处理
		for len(p.gather) > 0 {
			gb := p.gather[len(p.gather)-1]
			p.gather = p.gather[:len(p.gather)-1]

			if p.packetized {
				// packetized输入已经按包切割好，直接分析入队
				p.queueNalu(gb.payload, gb.pts)
				continue
			}

			// 字节流按起始码逆向切割
			code := uint32(0xffffffff)
			buf := gb.payload
			if prev != nil {
				// 后一段开头的不完整部分拼接到当前段末尾
				Log.Debugf("[%s] merging previous buffer. size=%d", p.UniqueKey, len(prev))
				buf = append(buf, prev...)
				prev = nil
			}

			last := len(buf)
			Log.Debugf("[%s] scan gathered buffer. size=%d, pts=%d", p.UniqueKey, last, gb.pts)
			for last > 0 {
				start := findStartCodeReverse(buf, last, &code)
				if start == -1 {
					// 没扫到起始码，留着与更前面一段拼接后重新扫描
					Log.Debugf("[%s] no start code, keeping buffer. size=%d", p.UniqueKey, last)
					prev = buf[:last]
					break
				}
				p.queueNalu(buf[start:last], gb.pts)
				last = start
			}
		}

		if prev != nil {
			Log.Debugf("[%s] keeping leftover buffer. size=%d", p.UniqueKey, len(prev))
			p.prev = prev
		}
	}

	if payload != nil {
		Log.Debugf("[%s] gathering buffer. size=%d, pts=%d", p.UniqueKey, len(payload), pts)
		buf := make([]byte, len(payload))
		copy(buf, payload)
		p.gather = append(p.gather, gatherBuf{payload: buf, pts: pts})
	}
}

// queueNalu 分析一段完整数据并加入解码队列，必要时先将队列整体刷出
//
// 一段数据在字节流模式下是单个nal（带起始码），
// packetized模式下是一次Feed的整包，可能依次包含多个带长度前缀的nal，
// 此时入队标记以最后一个nal为准，slice、keyFrame命中一次即保持
func (p *Parser) queueNalu(payload []byte, pts int64) {
	node := naluNode{
		payload: payload,
		pts:     pts,
	}

	data := payload
	for len(data) >= p.naluLengthSize+1 {
		naluSize := 0
		if p.packetized {
			naluSize = readNaluSize(data, p.naluLengthSize)
		}
		data = data[p.naluLengthSize:]

		info := p.classify(data)
		node.naluType = info.naluType
		node.refIdc = info.refIdc
		if info.slice {
			node.firstMb = info.firstMb
			node.sliceType = info.sliceType
			node.slice = true
			if info.keyFrame {
				node.keyFrame = true
			}
		}

		if !p.packetized {
			break
		}
		if naluSize <= 0 || naluSize > len(data) {
			Log.Warnf("[%s] invalid nalu size in packet, dropping the rest. size=%d, left=%d",
				p.UniqueKey, naluSize, len(data))
			break
		}
		data = data[naluSize:]
	}

	Log.Debugf("[%s] queueing nalu. haveKeyFrame=%v, keyFrame=%v, slice=%v, type=%s",
		p.UniqueKey, p.haveKeyFrame, node.keyFrame, node.slice, avc.ParseNaluTypeReadable(node.naluType))

	// 队列中已有关键帧，又回溯到了更早的非关键slice，
	// 说明从关键帧开始的一段已经完整，先刷出去
	if p.haveKeyFrame && !node.keyFrame && node.slice {
		p.flushDecode()
	}
	if node.keyFrame {
		p.haveKeyFrame = true
	}

	p.queue.push(node)
	Log.Debugf("[%s] nalu queued. queue size=%d", p.UniqueKey, p.queue.size())
}

// flushDecode 将解码队列整体刷出
//
// 入队顺序是逆向扫描的发现顺序，从队尾开始输出即为正向的流顺序。
// 第一个输出的nal带discont标记，非关键帧按delta标记
func (p *Parser) flushDecode() {
	first := true
	for i := len(p.queue.nodes) - 1; i >= 0; i-- {
		node := p.queue.nodes[i]
		Log.Debugf("[%s] flush node. type=%s, keyFrame=%v, pts=%d",
			p.UniqueKey, avc.ParseNaluTypeReadable(node.naluType), node.keyFrame, node.pts)
		p.emit(base.Nalu{
			Payload:   node.payload,
			Pts:       node.pts,
			Discont:   first,
			DeltaUnit: !node.keyFrame,
		})
		first = false
	}
	p.queue.clear()
	p.haveKeyFrame = false
}

// classify 分类单个nal，sps、pps、sei顺带解析落表，slice解析头部用于判断帧类型
//
// 解析失败只告警不中断，失败前已解析出的字段依然参与分类
//
// @param b nal数据，含nal header，后面允许跟随无关数据
func (p *Parser) classify(b []byte) (info naluInfo) {
	if len(b) == 0 {
		return
	}
	info.naluType = avc.ParseNaluType(b[0])
	info.refIdc = avc.ParseNalRefIdc(b[0])

	switch {
	case avc.IsSliceNaluType(info.naluType):
		sh, err := avc.DecodeSliceHeader(b, p.ctx)
		if err != nil {
			Log.Warnf("[%s] decode slice header failed. err=%+v, nalu=%s",
				p.UniqueKey, err, hex.Dump(nazabytes.Prefix(b, 32)))
		}
		info.firstMb = sh.FirstMbInSlice
		info.sliceType = sh.SliceType
		info.slice = true
		info.keyFrame = avc.CalcFrameType(sh.SliceType) == avc.FrameTypeI
		Log.Debugf("[%s] slice. firstMb=%d, sliceType=%d(%s), refIdc=%d",
			p.UniqueKey, info.firstMb, info.sliceType, avc.CalcFrameTypeReadable(info.sliceType), info.refIdc)
	case info.naluType == avc.NaluTypeSps:
		if err := avc.DecodeSps(b, p.ctx); err != nil {
			Log.Warnf("[%s] decode sps failed. err=%+v, nalu=%s",
				p.UniqueKey, err, hex.Dump(nazabytes.Prefix(b, 32)))
		}
	case info.naluType == avc.NaluTypePps:
		if err := avc.DecodePps(b, p.ctx); err != nil {
			Log.Warnf("[%s] decode pps failed. err=%+v, nalu=%s",
				p.UniqueKey, err, hex.Dump(nazabytes.Prefix(b, 32)))
		}
	case info.naluType == avc.NaluTypeSei:
		if err := avc.DecodeSei(b, p.ctx); err != nil {
			Log.Warnf("[%s] decode sei failed. err=%+v, nalu=%s",
				p.UniqueKey, err, hex.Dump(nazabytes.Prefix(b, 32)))
		}
	}
	return
}

func (p *Parser) emit(nalu base.Nalu) {
	if p.dump.ShouldDump() {
		p.dump.Outf("[%s] emit. %s, hex=%s",
			p.UniqueKey, nalu.DebugString(), hex.Dump(nazabytes.Prefix(nalu.Payload, 16)))
	}
	if p.onNalu != nil {
		p.onNalu(nalu)
	}
}
