package middleware

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/ignatzorin/quizzo-backend/internal/config"
	"github.com/ignatzorin/quizzo-backend/internal/http/response"
	"github.com/ignatzorin/quizzo-backend/internal/logger"
	"github.com/ignatzorin/quizzo-backend/internal/metrics"
	"github.com/ignatzorin/quizzo-backend/internal/pkg/apperror"
)

const limiterPrefix = "quizzo:limiter"

// NewLimiterStore возвращает общий Redis store, если клиент задан, иначе store в памяти процесса.
func NewLimiterStore(client *redis.Client) (limiter.Store, error) {
	if client == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: limiterPrefix}), nil
	}
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: limiterPrefix})
	if err != nil {
		return nil, fmt.Errorf("rate limit: redis store: %w", err)
	}
	return store, nil
}

// RateLimiter раздаёт middleware с разными лимитами поверх одного store.
type RateLimiter struct {
	store   limiter.Store
	metrics *metrics.Collector
}

// NewRateLimiter создаёт лимитер. metrics может быть nil.
func NewRateLimiter(store limiter.Store, m *metrics.Collector) *RateLimiter {
	return &RateLimiter{store: store, metrics: m}
}

// Limit ограничивает число запросов с одного IP в рамках scope.
func (rl *RateLimiter) Limit(scope string, rate config.RateLimit, message string) gin.HandlerFunc {
	instance := limiter.New(rl.store, limiter.Rate{Period: rate.Period, Limit: rate.Limit})
	tooMany := apperror.New(apperror.ErrCodeRateLimited, message)

	return func(c *gin.Context) {
		key := scope + ":" + c.ClientIP()
		lctx, err := instance.Get(c.Request.Context(), key)
		if err != nil {
			logger.L().WithFields(logrus.Fields{
				"scope": scope,
				"error": err.Error(),
			}).Error("rate limit: store недоступен")
			response.Abort(c, apperror.Wrap(err, apperror.ErrCodeInternal, "Something went wrong!"))
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			if rl.metrics != nil {
				rl.metrics.RateLimited.WithLabelValues(scope).Inc()
			}
			response.Abort(c, tooMany)
			return
		}

		c.Next()
	}
}
