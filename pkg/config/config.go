package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	// DB
	PGMarketDSN string `envconfig:"PG_MARKET_DSN" required:"true"`
	// Redis (sessions, role cache, live feeds)
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	// RabbitMQ
	RabbitURL           string `envconfig:"RABBIT_URL" required:"true"`
	MarketExchange      string `envconfig:"MARKET_EXCHANGE" default:"marketplace.exchange"`
	AccountTriggerQueue string `envconfig:"ACCOUNT_TRIGGER_QUEUE" default:"marketplace.account.q"`
	// JWT
	JWTSecret       string `envconfig:"JWT_SECRET" required:"true"`
	JWTExpireMin    int    `envconfig:"JWT_EXPIRE_MIN" default:"60"`
	RefreshExpireHr int    `envconfig:"REFRESH_EXPIRE_HR" default:"720"`
	ResetExpireMin  int    `envconfig:"RESET_EXPIRE_MIN" default:"15"`
	// Image upload
	CloudinaryCloudName string `envconfig:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `envconfig:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `envconfig:"CLOUDINARY_API_SECRET"`
	CloudinaryFolder    string `envconfig:"CLOUDINARY_FOLDER"`
	UploadBaseURL       string `envconfig:"UPLOAD_BASE_URL" default:"https://api.cloudinary.com"`
	// Tracing
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"otel-collector:4317"`
	Env          string `envconfig:"ENV" default:"dev"`
	// Misc
	BootstrapAdminEmail string `envconfig:"BOOTSTRAP_ADMIN_EMAIL"`
	DefaultCurrency     string `envconfig:"DEFAULT_CURRENCY" default:"TND"`

	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
}

func (a App) AccessTTL() time.Duration  { return time.Duration(a.JWTExpireMin) * time.Minute }
func (a App) RefreshTTL() time.Duration { return time.Duration(a.RefreshExpireHr) * time.Hour }
func (a App) ResetTTL() time.Duration   { return time.Duration(a.ResetExpireMin) * time.Minute }

// Load reads an optional .env file, then the process environment.
func Load() (App, error) {
	_ = godotenv.Load(".env")
	var c App
	err := envconfig.Process("", &c)
	return c, err
}
