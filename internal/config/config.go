package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servidor.
type Config struct {
	HTTPPort     string `env:"HTTP_PORT" envDefault:"5000"`
	DatabaseURL  string `env:"DATABASE_URL,required"`
	AutoMigrate  bool   `env:"AUTO_MIGRATE" envDefault:"true"`
	// Alcanza para una imagen de 4MB codificada en base64 dentro del JSON.
	MaxBodyBytes int64  `env:"MAX_BODY_BYTES" envDefault:"6291456"`
	CORSOrigin   string `env:"CORS_ALLOWED_ORIGIN" envDefault:"*"`

	JWTSecret            string        `env:"JWT_SECRET,required"`
	JWTSessionTTL        time.Duration `env:"JWT_SESSION_TTL" envDefault:"168h"`
	OTPTTL               time.Duration `env:"OTP_TTL" envDefault:"5m"`
	VerificationTokenTTL time.Duration `env:"VERIFICATION_TOKEN_TTL" envDefault:"10m"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"QuickChat"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	S3Endpoint      string `env:"S3_ENDPOINT"`
	S3Region        string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Bucket        string `env:"S3_BUCKET"`
	S3AccessKey     string `env:"S3_ACCESS_KEY"`
	S3SecretKey     string `env:"S3_SECRET_KEY"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
	S3UsePathStyle  bool   `env:"S3_USE_PATH_STYLE" envDefault:"true"`

	// Exige un session token valido en el handshake del websocket.
	RealtimeRequireToken bool `env:"REALTIME_REQUIRE_TOKEN" envDefault:"false"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ClientConfig agrupa la configuración del cliente de terminal.
type ClientConfig struct {
	ServerURL string `env:"QUICKCHAT_SERVER_URL" envDefault:"http://localhost:5000"`
	TokenFile string `env:"QUICKCHAT_TOKEN_FILE" envDefault:".quickchat_token"`
}

// LoadClientConfig carga la configuración del cliente desde variables de entorno.
func LoadClientConfig() (*ClientConfig, error) {
	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
