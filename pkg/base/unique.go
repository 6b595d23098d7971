// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/h264parse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import "github.com/q191201771/naza/pkg/unique"

const (
	UkPreEsParser = "ESPARSER"
)

func GenUkEsParser() string {
	return siUkEsParser.GenUniqueKey()
}

var siUkEsParser *unique.SingleGenerator

func init() {
	siUkEsParser = unique.NewSingleGenerator(UkPreEsParser)
}
