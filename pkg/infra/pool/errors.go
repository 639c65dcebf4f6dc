// Package pool wraps ants worker pools for background work that must not
// block a request.
package pool

import "errors"

// 池相关错误定义
var (
	// ErrPoolClosed 池已关闭
	ErrPoolClosed = errors.New("pool closed")

	// ErrPoolOverload 池已满
	ErrPoolOverload = errors.New("pool overloaded")
)
