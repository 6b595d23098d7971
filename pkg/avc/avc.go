// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/h264parse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package avc

// ISO-14496-10.pdf
//
// nal unit header:
//
// +---------------+
// |0|1|2|3|4|5|6|7|
// +-+-+-+-+-+-+-+-+
// |F|NRI|  Type   |
// +---------------+
//
// F:    forbidden_zero_bit
// NRI:  nal_ref_idc
// Type: nal_unit_type

var NaluStartCode = []byte{0x0, 0x0, 0x0, 0x1}

// Table 7-1 – NAL unit type codes
const (
	NaluTypeSlice     uint8 = 1
	NaluTypeSliceDpa  uint8 = 2
	NaluTypeSliceDpb  uint8 = 3
	NaluTypeSliceDpc  uint8 = 4
	NaluTypeIdrSlice  uint8 = 5
	NaluTypeSei       uint8 = 6
	NaluTypeSps       uint8 = 7
	NaluTypePps       uint8 = 8
	NaluTypeAud       uint8 = 9  // Access Unit Delimiter
	NaluTypeSeqEnd    uint8 = 10 // End of Sequence
	NaluTypeStreamEnd uint8 = 11 // End of Stream
	NaluTypeFd        uint8 = 12 // Filler Data
)

var NaluTypeMapping = map[uint8]string{
	1:  "SLICE",
	2:  "DPA",
	3:  "DPB",
	4:  "DPC",
	5:  "IDR",
	6:  "SEI",
	7:  "SPS",
	8:  "PPS",
	9:  "AUD",
	10: "SEQEND",
	11: "STREAMEND",
	12: "FD",
}

// 注意，slice_type取值范围为[0, 9]，5~9与0~4含义相同
//
// Table 7-6 – Name association to slice_type
const (
	SliceTypeP  uint8 = 0
	SliceTypeB  uint8 = 1
	SliceTypeI  uint8 = 2
	SliceTypeSp uint8 = 3
	SliceTypeSi uint8 = 4
)

var SliceTypeMapping = map[uint8]string{
	0: "P",
	1: "B",
	2: "I",
	3: "SP",
	4: "SI",
	5: "P",
	6: "B",
	7: "I",
	8: "SP",
	9: "SI",
}

// 帧级别的分类，用于判断输出单元是否可被标记为关键单元
const (
	FrameTypeUnknown uint8 = 0
	FrameTypeI       uint8 = 1
	FrameTypeP       uint8 = 2
	FrameTypeB       uint8 = 3
)

// ParseNaluType 解析nal unit header中的type字段
//
// @param v nalu的首字节
func ParseNaluType(v uint8) uint8 {
	return v & 0x1f
}

// ParseNalRefIdc 解析nal unit header中的nal_ref_idc字段
func ParseNalRefIdc(v uint8) uint8 {
	return v >> 5 & 0x3
}

func ParseNaluTypeReadable(v uint8) string {
	b, ok := NaluTypeMapping[ParseNaluType(v)]
	if !ok {
		return "unknown"
	}
	return b
}

// CalcFrameType 将slice_type的值映射为帧级别的分类
//
// 注意，{0, 3, 5, 8}为P，{1, 6}为B，{2, 4, 7, 9}为I，其他值保持unknown
func CalcFrameType(sliceType uint32) uint8 {
	switch sliceType {
	case 0, 3, 5, 8:
		return FrameTypeP
	case 1, 6:
		return FrameTypeB
	case 2, 4, 7, 9:
		return FrameTypeI
	}
	return FrameTypeUnknown
}

func CalcFrameTypeReadable(sliceType uint32) string {
	switch CalcFrameType(sliceType) {
	case FrameTypeI:
		return "I"
	case FrameTypeP:
		return "P"
	case FrameTypeB:
		return "B"
	}
	return "unknown"
}

// IsSliceNaluType slice类型的nalu，即[1, 5]区间，包含数据分区slice以及idr slice
func IsSliceNaluType(t uint8) bool {
	return t >= NaluTypeSlice && t <= NaluTypeIdrSlice
}
