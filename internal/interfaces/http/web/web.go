// Package web 内嵌聊天窗口页面
package web

import _ "embed"

// IndexHTML 聊天窗口页面
//
//go:embed index.html
var IndexHTML []byte
