// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/h264parse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"strings"
	"testing"

	"github.com/q191201771/naza/pkg/assert"
)

func TestGenUkEsParser(t *testing.T) {
	uk1 := GenUkEsParser()
	uk2 := GenUkEsParser()
	assert.Equal(t, true, strings.HasPrefix(uk1, UkPreEsParser))
	assert.Equal(t, true, strings.HasPrefix(uk2, UkPreEsParser))
	assert.Equal(t, false, uk1 == uk2)
}
