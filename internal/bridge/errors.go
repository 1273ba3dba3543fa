package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSupported 当前连接器角色下结构性不可用的操作
	ErrNotSupported = errors.New("operation not supported in this connector role")

	// ErrDisposed 连接器已释放
	ErrDisposed = errors.New("connector is disposed")

	// ErrCancelled 在关联回复到达前被取消
	ErrCancelled = errors.New("cancelled before correlated reply arrived")
)

func cancelled(cause error) error {
	if cause == nil {
		return ErrCancelled
	}
	return fmt.Errorf("%w: %v", ErrCancelled, cause)
}
