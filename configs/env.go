package configs

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageLocal  = "local"
	StorageHosted = "hosted"

	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Config struct {
	Port        string
	Environment string

	DBDriver      string
	MongoURI      string
	MongoDatabase string

	JWTSecret            string
	JWTExpiresIn         time.Duration
	AdminRegistrationKey string

	StorageMode     string
	UploadDir       string
	UploadURLPrefix string
	ImageMaxWidth   uint

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	ReserveStock     bool
	OrderRateLimit   int
	CORSAllowOrigins string
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded, using process environment", "error", err)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "3000"),
		Environment: strings.ToLower(getEnv("APP_ENV", "development")),

		DBDriver:      strings.ToLower(getEnv("DB_DRIVER", DriverMongo)),
		MongoURI:      getEnv("MONGOURI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "storefront"),

		JWTSecret:            os.Getenv("JWT_SECRET"),
		JWTExpiresIn:         getDuration("JWT_EXPIRES_IN", 24*time.Hour),
		AdminRegistrationKey: os.Getenv("ADMIN_REGISTRATION_KEY"),

		StorageMode:     strings.ToLower(getEnv("STORAGE_MODE", StorageLocal)),
		UploadDir:       getEnv("UPLOAD_DIR", "./uploads/products"),
		UploadURLPrefix: strings.TrimRight(getEnv("UPLOAD_URL_PREFIX", "/uploads/products"), "/"),
		ImageMaxWidth:   uint(getInt("IMAGE_MAX_WIDTH", 0)),

		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),

		ReserveStock:     getBool("RESERVE_STOCK", true),
		OrderRateLimit:   getInt("ORDER_RATE_LIMIT", 20),
		CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		slog.Warn("Invalid PORT, falling back to default", "PORT", cfg.Port)
		cfg.Port = "3000"
	}

	switch cfg.DBDriver {
	case DriverMongo, DriverMemory:
	default:
		slog.Warn("Unknown DB_DRIVER, falling back to mongo", "DB_DRIVER", cfg.DBDriver)
		cfg.DBDriver = DriverMongo
	}

	switch cfg.StorageMode {
	case StorageLocal:
	case StorageHosted:
		if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
			return nil, errors.New("STORAGE_MODE=hosted requires CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET")
		}
	default:
		slog.Warn("Unknown STORAGE_MODE, falling back to local", "STORAGE_MODE", cfg.StorageMode)
		cfg.StorageMode = StorageLocal
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, errors.New("JWT_SECRET must be set outside development")
		}
		slog.Warn("JWT_SECRET not set. Generating a random secret; tokens will not survive a restart.")
		cfg.JWTSecret = randomHex(32)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		slog.Warn("Invalid integer setting, falling back to default", key, raw)
		return defaultValue
	}
	return v
}

func getBool(key string, defaultValue bool) bool {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("Invalid boolean setting, falling back to default", key, raw)
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		slog.Warn("Invalid duration setting, falling back to default", key, raw)
		return defaultValue
	}
	return v
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
