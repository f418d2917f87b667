// Package api 設定 HTTP 路由。
//
// 大部分的互動都走 /ws 上的 WebSocket 事件，HTTP 只提供健康檢查與房間列表。
package api
