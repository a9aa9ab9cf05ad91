// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/tsdemux
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import "strings"

// 版本信息相关
// 一部分版本信息使用了naza.bininfo，另外一些在本文件提供

// TsdemuxVersion 版本，该变量由外部脚本修改维护
const TsdemuxVersion = "v0.3.0"

var (
	TsdemuxLibraryName = "tsdemux"
	TsdemuxGithubRepo  = "github.com/q191201771/tsdemux"
	TsdemuxGithubSite  = "https://github.com/q191201771/tsdemux"

	// TsdemuxFullInfo e.g. tsdemux v0.3.0 (github.com/q191201771/tsdemux)
	TsdemuxFullInfo = TsdemuxLibraryName + " " + TsdemuxVersion + " (" + TsdemuxGithubRepo + ")"

	// TsdemuxVersionDot e.g. 0.3.0
	TsdemuxVersionDot string
)

func init() {
	TsdemuxVersionDot = strings.TrimPrefix(TsdemuxVersion, "v")
}
