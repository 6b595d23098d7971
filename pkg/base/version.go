// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/h264parse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import "strings"

// 版本信息相关
// 一部分版本信息使用了naza.bininfo
// 另外，我们也在本文件提供另外一些信息
// 并且将这些信息打入可执行文件、日志中

// 版本，该变量由外部脚本修改维护
const Version = "v0.1.0"

var (
	LibraryName = "h264parse"
	GithubRepo  = "github.com/q191201771/h264parse"
	GithubSite  = "https://github.com/q191201771/h264parse"

	// e.g. h264parse v0.1.0 (github.com/q191201771/h264parse)
	FullInfo = LibraryName + " " + Version + " (" + GithubRepo + ")"

	// e.g. 0.1.0
	VersionDot string
)

func init() {
	VersionDot = strings.TrimPrefix(Version, "v")
}
