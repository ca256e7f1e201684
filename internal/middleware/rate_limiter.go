package middleware

import (
	"net/http"
	"strconv"

	"goldledger/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimiter limits requests per client IP. formatted uses the limiter
// notation ("1000-M" = 1000 per minute). With a redis client the counters are
// shared by every instance; otherwise they are per process.
func RateLimiter(formatted, prefix string, rdb *redis.Client) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}

	var store limiter.Store
	if rdb != nil {
		store, err = sredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "goldledger:limiter:" + prefix})
		if err != nil {
			return nil, err
		}
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: prefix})
	}

	instance := limiter.New(store, rate)
	return mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			c.Header("Retry-After", strconv.FormatInt(int64(rate.Period.Seconds()), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("too many requests, retry shortly"))
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			// A broken limiter store must not take the API down.
			log.Warn().Err(err).Str("request_id", c.GetString(RequestIDKey)).Msg("rate limiter store error")
			c.Next()
		}),
	), nil
}
