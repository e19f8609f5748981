package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ServiceName string
	LogLevel    string

	ServerPort    int
	AllowOrigins  []string
	CookieSecure  bool
	PublicBaseURL string

	DatabaseURL string

	JWTAccessSecret  []byte
	JWTRefreshSecret []byte
	AccessTTL        time.Duration
	RefreshTTL       time.Duration

	GoogleClientID string

	KafkaBrokers       []string
	KafkaConsumerGroup string
	OrderEventsTopic   string
	ProductEventsTopic string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	ImageKitPublicKey   string
	ImageKitPrivateKey  string
	ImageKitURLEndpoint string
	ImageKitTokenTTL    time.Duration
	ImageKitFolder      string
	ProductImagesMaxMiB int64
}

// Load reads .env (when present) and the process environment.
func Load() Config {
	if err := godotenv.Load(EnvDefault("DOTENV_PATH", ".env")); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env: %v", err)
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("SERVICE_NAME", "wingx-dashboard")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("ALLOW_ORIGINS", "")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("PUBLIC_BASE_URL", "")
	v.SetDefault("ACCESS_TTL", 15*time.Minute)
	v.SetDefault("REFRESH_TTL", 7*24*time.Hour)
	v.SetDefault("KAFKA_CONSUMER_GROUP", "wingx-dashboard")
	v.SetDefault("ORDER_EVENTS_TOPIC", "order_events")
	v.SetDefault("PRODUCT_EVENTS_TOPIC", "product_events")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ES_INDEX", "products")
	v.SetDefault("IMAGEKIT_TOKEN_TTL", 30*time.Minute)
	v.SetDefault("IMAGEKIT_FOLDER", "/catalogo")
	v.SetDefault("PRODUCT_IMAGES_MAX_MIB", 10)

	v.AutomaticEnv()
	return v
}

func FromViper(v *viper.Viper) Config {
	return Config{
		ServiceName: v.GetString("SERVICE_NAME"),
		LogLevel:    v.GetString("LOG_LEVEL"),

		ServerPort:    v.GetInt("SERVER_PORT"),
		AllowOrigins:  CSV(v.GetString("ALLOW_ORIGINS")),
		CookieSecure:  v.GetBool("COOKIE_SECURE"),
		PublicBaseURL: v.GetString("PUBLIC_BASE_URL"),

		DatabaseURL: v.GetString("DATABASE_URL"),

		JWTAccessSecret:  []byte(v.GetString("JWT_SECRET")),
		JWTRefreshSecret: []byte(v.GetString("JWT_REFRESH_SECRET")),
		AccessTTL:        v.GetDuration("ACCESS_TTL"),
		RefreshTTL:       v.GetDuration("REFRESH_TTL"),

		GoogleClientID: v.GetString("GOOGLE_CLIENT_ID"),

		KafkaBrokers:       CSV(v.GetString("KAFKA_BROKERS")),
		KafkaConsumerGroup: v.GetString("KAFKA_CONSUMER_GROUP"),
		OrderEventsTopic:   v.GetString("ORDER_EVENTS_TOPIC"),
		ProductEventsTopic: v.GetString("PRODUCT_EVENTS_TOPIC"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		ESURL:      v.GetString("ES_URL"),
		ESUser:     v.GetString("ES_USER"),
		ESPassword: v.GetString("ES_PASSWORD"),
		ESIndex:    v.GetString("ES_INDEX"),

		ImageKitPublicKey:   v.GetString("IMAGEKIT_PUBLIC_KEY"),
		ImageKitPrivateKey:  v.GetString("IMAGEKIT_PRIVATE_KEY"),
		ImageKitURLEndpoint: v.GetString("IMAGEKIT_URL_ENDPOINT"),
		ImageKitTokenTTL:    v.GetDuration("IMAGEKIT_TOKEN_TTL"),
		ImageKitFolder:      v.GetString("IMAGEKIT_FOLDER"),
		ProductImagesMaxMiB: v.GetInt64("PRODUCT_IMAGES_MAX_MIB"),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
