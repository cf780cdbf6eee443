package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func Load() {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé — on continue avec les variables d'environnement du système")
	} else {
		log.Println("✅ Fichier .env chargé avec succès")
	}
}

type Settings struct {
	Port        string
	StoreDriver string // "postgres" ou "memory"
	DatabaseURL string

	RedisHost     string
	RedisPassword string

	TelegramToken string
	OwnerChatID   int64
	OwnerSubject  string
	JWTSecret     string

	ScyllaHosts    []string
	ScyllaKeyspace string
	ScyllaUser     string
	ScyllaPassword string

	ElasticURL      string
	ElasticUser     string
	ElasticPassword string
	ElasticIndex    string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	KafkaBrokers []string
	KafkaTopic   string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	OwnerEmail   string

	CompanyName string
	CompanyIBAN string
	CompanyBIC  string

	LowStockThreshold int
	ConversationTTL   time.Duration
	CartRateLimit     int
	CORSOrigins       []string
}

// FromEnv lit la configuration ; les services optionnels restent désactivés si leurs variables sont vides
func FromEnv() Settings {
	return Settings{
		Port:        getEnv("PORT", "8080"),
		StoreDriver: getEnv("STORE_DRIVER", "postgres"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisHost:     getEnv("REDIS_HOST", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		OwnerChatID:   getInt64("OWNER_CHAT_ID", 0),
		OwnerSubject:  getEnv("OWNER_SUBJECT", "owner"),
		JWTSecret:     os.Getenv("JWT_SECRET"),

		ScyllaHosts:    getList("SCYLLA_HOSTS"),
		ScyllaKeyspace: getEnv("SCYLLA_KEYSPACE", "storefront"),
		ScyllaUser:     os.Getenv("SCYLLA_USER"),
		ScyllaPassword: os.Getenv("SCYLLA_PASSWORD"),

		ElasticURL:      os.Getenv("ELASTIC_URL"),
		ElasticUser:     os.Getenv("ELASTIC_USER"),
		ElasticPassword: os.Getenv("ELASTIC_PASSWORD"),
		ElasticIndex:    getEnv("ELASTIC_INDEX", "products"),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "invoices"),
		MinioUseSSL:    os.Getenv("MINIO_USE_SSL") == "true",

		KafkaBrokers: getList("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "storefront.order-events"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getInt("SMTP_PORT", 587),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),
		OwnerEmail:   os.Getenv("OWNER_EMAIL"),

		CompanyName: getEnv("COMPANY_NAME", "Ma Boutique"),
		CompanyIBAN: getEnv("COMPANY_IBAN", "BE00000000000000"),
		CompanyBIC:  getEnv("COMPANY_BIC", "GEBABEBB"),

		LowStockThreshold: getInt("LOW_STOCK_THRESHOLD", 3),
		ConversationTTL:   getDuration("CONVERSATION_TTL", 15*time.Minute),
		CartRateLimit:     getInt("CART_RATE_LIMIT", 20),
		CORSOrigins:       getList("CORS_ORIGINS"),
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("⚠️ %s invalide (%q), valeur par défaut %d", key, v, fallback)
		return fallback
	}
	return n
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("⚠️ %s invalide (%q)", key, v)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("⚠️ %s invalide (%q), valeur par défaut %s", key, v, fallback)
		return fallback
	}
	return d
}

func getList(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
