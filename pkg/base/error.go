// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/h264parse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"errors"
)

// ----- 通用的 ---------------------------------------------------------------------------------------------------------

var ErrShortBuffer = errors.New("h264parse: buffer too short")

// ----- pkg/avc -------------------------------------------------------------------------------------------------------

var (
	ErrAvc = errors.New("h264parse.avc: fxxk")

	// ErrParamSetId sps_id或pps_id超出缓存容量
	ErrParamSetId = errors.New("h264parse.avc: parameter set id out of range")

	// ErrCodecData codec data（即avc decoder configuration record）格式非法
	//
	// 注意，配置类错误是致命的，语法类错误（ErrAvc）只影响单个nal的分类
	ErrCodecData = errors.New("h264parse.avc: invalid decoder configuration record")
)

// ----- pkg/es --------------------------------------------------------------------------------------------------------

var ErrEs = errors.New("h264parse.es: fxxk")
