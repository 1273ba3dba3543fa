package auth

import (
	"net/http"
	"strings"

	"github.com/megamanics/interactive/internal/server/response"
	"github.com/sirupsen/logrus"
)

// Middleware 认证中间件；密钥未配置时直接放行
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		// 健康检查不验证
		if r.URL.Path == "/status" {
			next.ServeHTTP(w, r)
			return
		}

		// websocket 客户端无法设置自定义头，支持 query 传递 token
		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized("authorization header required").WriteJSON(w)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Unauthorized("invalid authorization header format").WriteJSON(w)
				return
			}
			tokenString = parts[1]
		}

		if _, err := ValidateToken(tokenString); err != nil {
			logrus.Debugf("Token validation failed: %v", err)
			response.Unauthorized("invalid or expired token").WriteJSON(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}
