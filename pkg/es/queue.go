// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/h264parse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package es

// naluNode 逆向回放时解码队列中的一个待输出单元
//
// payload为切割出的原始数据，字节流模式下包含起始码，
// packetized模式下为原始的长度前缀格式，可能依次包含多个nal，
// 此时firstMb、sliceType等标量字段为最后一个slice的值，
// slice、keyFrame标记只要任意一个nal命中即保持为true
type naluNode struct {
	payload []byte
	pts     int64

	naluType uint8
	refIdc   uint8

	firstMb   uint32
	sliceType uint32

	slice    bool
	keyFrame bool
}

// naluQueue 逆向回放的解码队列
//
// 新单元压栈，输出时从栈顶依次弹出。
// 逆向扫描的发现顺序与流顺序相反，因此弹出顺序即为正向的流顺序
type naluQueue struct {
	nodes []naluNode
}

func (q *naluQueue) push(n naluNode) {
	q.nodes = append(q.nodes, n)
}

func (q *naluQueue) size() int {
	return len(q.nodes)
}

func (q *naluQueue) clear() {
	q.nodes = nil
}
