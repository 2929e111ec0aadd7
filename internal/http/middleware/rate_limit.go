package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ignatzorin/taskmarket-backend/internal/http/response"
	"github.com/ignatzorin/taskmarket-backend/internal/logger"
)

// RateLimitMiddleware создаёт middleware для ограничения количества запросов.
// По умолчанию: 10 запросов в минуту с одного IP.
func RateLimitMiddleware(limit int64, period time.Duration) gin.HandlerFunc {
	return rateLimit(limit, period, func(c *gin.Context) string { return c.ClientIP() })
}

// UserRateLimitMiddleware ограничивает запросы авторизованного пользователя.
// Без пользователя в контексте ключом служит IP.
func UserRateLimitMiddleware(limit int64, period time.Duration) gin.HandlerFunc {
	return rateLimit(limit, period, func(c *gin.Context) string {
		if v, ok := c.Get(ContextUserIDKey); ok {
			return fmt.Sprintf("user:%v", v)
		}
		return c.ClientIP()
	})
}

func rateLimit(limit int64, period time.Duration, key func(*gin.Context) string) gin.HandlerFunc {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = 1 * time.Minute
	}

	rate := limiter.Rate{
		Period: period,
		Limit:  limit,
	}
	store := memory.NewStore()
	instance := limiter.New(store, rate)

	return func(c *gin.Context) {
		lctx, err := instance.Get(c, key(c))
		if err != nil {
			// Отказ хранилища лимитов не должен блокировать API.
			logger.Log.WithError(err).Warn("rate limiter недоступен")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", lctx.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", lctx.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", lctx.Reset))

		if lctx.Reached {
			response.TooManyRequests(c, "слишком много запросов, попробуйте позже")
			return
		}

		c.Next()
	}
}
