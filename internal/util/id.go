package util

import (
	"github.com/lithammer/shortuuid/v4"
)

// GenID 生成消息/交换使用的短唯一标识
func GenID() string {
	return shortuuid.New()
}

// GenIDWith 生成带前缀的短唯一标识，便于日志检索
func GenIDWith(prefix string) string {
	return prefix + shortuuid.New()
}
