package http

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient は上流の相場APIを呼び出すためのHTTPクライアントを作成します。
//
// 取り込みは単一ホストへ連続してバッチを送るため、ホスト単位のアイドル接続数を
// 多めに確保しています。timeout は1リクエスト全体の上限で、0 以下の場合は
// 10秒を使用します（http.DefaultClientにはタイムアウトがないため）。
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &http.Client{Timeout: timeout, Transport: t}
}
