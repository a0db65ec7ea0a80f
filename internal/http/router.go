package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DefaultMaxBodyBytes deja pasar un data URI de storage.MaxAssetSize mas el
// resto del JSON.
const DefaultMaxBodyBytes = 6 << 20

// RouterOptions agrupa la configuracion transversal del router.
type RouterOptions struct {
	MaxBodyBytes int64
	CORSOrigin   string
}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	opts RouterOptions,
	userH *UserHandler,
	msgH *MessageHandler,
	socketH *SocketHandler,
	auth gin.HandlerFunc,
) *gin.Engine {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	r := gin.New()

	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), corsMiddleware(opts.CORSOrigin))

	r.GET("/socket", socketH.Connect)

	api := r.Group("/api")
	api.Use(bodyLimitMiddleware(opts.MaxBodyBytes))
	api.GET("/status", func(c *gin.Context) {
		c.String(http.StatusOK, "Server is live")
	})

	authGroup := api.Group("/auth")
	authGroup.POST("/send-otp", userH.SendOTP)
	authGroup.POST("/verify-otp", userH.VerifyOTP)
	authGroup.POST("/signup", userH.Signup)
	authGroup.POST("/login", userH.Login)
	authGroup.GET("/check", auth, userH.CheckAuth)
	authGroup.PUT("/update-profile", auth, userH.UpdateProfile)

	messages := api.Group("/messages", auth)
	messages.GET("/users", msgH.SidebarUsers)
	messages.GET("/:id", msgH.Conversation)
	messages.PUT("/mark/:id", msgH.MarkSeen)
	messages.POST("/send/:id", msgH.Send)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// bodyLimitMiddleware corta los bodies mayores a limit bytes.
func bodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

func corsMiddleware(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, token")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
