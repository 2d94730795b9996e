package auth

import (
	"time"

	"github.com/gin-gonic/gin"
	limiter "github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	authsvc "codeberg.org/gatekeep/server/internal/auth"
	resterrors "codeberg.org/gatekeep/server/internal/errors"
)

// limits credential endpoints per client IP to slow brute-force attempts
func rateLimiter() gin.HandlerFunc {
	rate := limiter.Rate{Period: time.Minute, Limit: 20}
	instance := limiter.New(memory.NewStore(), rate)

	return mgin.NewMiddleware(instance, mgin.WithLimitReachedHandler(func(c *gin.Context) {
		resterrors.TooManyRequests(c, "too many authentication attempts")
	}))
}

// registers all authentication routes
func RegisterRoutes(router *gin.RouterGroup, service *authsvc.Service) {
	limited := rateLimiter()

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", limited, RegisterHandler(service))
		authGroup.POST("/login", limited, LoginHandler(service))
		authGroup.POST("/refresh", limited, RefreshHandler(service))
		authGroup.GET("/:provider", BeginAuthHandler())
		authGroup.GET("/:provider/callback", CallbackHandler(service))
		authGroup.GET("/me", service.Middleware(), GetCurrentUserHandler(service))
		authGroup.POST("/logout", service.Middleware(), LogoutHandler(service))
	}
}
