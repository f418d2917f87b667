// Package middleware 提供 HTTP 請求處理的中間件。
//
// 目前包含請求日誌與 panic 復原，兩者都寫到 slog。
package middleware
