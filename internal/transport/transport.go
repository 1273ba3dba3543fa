package transport

import (
	"context"

	"github.com/megamanics/interactive/internal/protocol"
)

// Messenger 是对内核消息通道的最小抽象，屏蔽具体传输实现。
// 入站流是广播源：任意多个订阅者各自收到每条消息，互不影响。
type Messenger interface {
	// Send 发送一条出站消息；失败原样返回，不在本层重试
	Send(ctx context.Context, msg *protocol.Message) error

	// Subscribe 订阅入站消息流，返回只读通道和取消函数。
	// 取消后通道关闭，其他订阅者不受影响。
	Subscribe() (<-chan *protocol.Message, func())

	// Close 释放传输资源
	Close() error
}
