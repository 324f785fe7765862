package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported values for STORE_DRIVER.
const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Port           string
	Environment    string
	AllowedOrigins []string
	// Store Configuration
	StoreDriver   string
	SQLitePath    string
	MongoURI      string
	MongoDatabase string
	StoreTimeout  time.Duration
	// JWT Configuration
	JWTSecret string
	JWTTTL    time.Duration
	// Cache Configuration
	CacheTTL      int  // Cache TTL in seconds
	UseRedis      bool // Share the cache through Redis instead of process memory
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	// Kafka Configuration (cross-instance cache invalidation - optional)
	KafkaBrokers    []string
	KafkaTopicItems string
	KafkaGroupID    string
	KafkaClientID   string
	KafkaAcks       string
	KafkaRetries    int
	UseKafka        bool
	// Listing
	ListPageSize    int
	ListMaxPageSize int
}

func Load() *Config {
	// .env file is optional, continue with environment variables
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "5000"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		// Store Configuration
		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", StoreSQLite)),
		SQLitePath:    getEnv("SQLITE_PATH", "./recircle.db"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "recircle"),
		StoreTimeout:  time.Duration(getEnvAsInt("STORE_TIMEOUT_MS", 5000)) * time.Millisecond,
		// JWT Configuration
		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production-min-32-chars"),
		JWTTTL:    time.Duration(getEnvAsInt("JWT_TTL_MINUTES", 60*24*30)) * time.Minute,
		// Cache Configuration
		CacheTTL:      getEnvAsInt("CACHE_TTL", 60), // 1 minute default
		UseRedis:      getEnvAsBool("USE_REDIS", false),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		// Kafka Configuration
		KafkaBrokers:    getEnvAsList("KAFKA_BROKERS", "localhost:9093"),
		KafkaTopicItems: getEnv("KAFKA_TOPIC_ITEMS", "recircle.items"),
		KafkaGroupID:    getEnv("KAFKA_GROUP_ID", defaultGroupID()),
		KafkaClientID:   getEnv("KAFKA_CLIENT_ID", "recircle-service"),
		KafkaAcks:       getEnv("KAFKA_ACKS", "all"),
		KafkaRetries:    getEnvAsInt("KAFKA_RETRIES", 3),
		UseKafka:        getEnvAsBool("USE_KAFKA", false),
		// Listing
		ListPageSize:    getEnvAsInt("LIST_PAGE_SIZE", 10),
		ListMaxPageSize: getEnvAsInt("LIST_MAX_PAGE_SIZE", 100),
	}
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// defaultGroupID gives every instance its own consumer group so each one
// receives every invalidation event.
func defaultGroupID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "recircle-service"
	}
	return "recircle-service-" + host
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return result
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return strings.ToLower(value) == "true" || value == "1"
}

// getEnvAsList splits a comma-separated value and drops empty entries.
func getEnvAsList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
