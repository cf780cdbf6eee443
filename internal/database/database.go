package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"

	"storefront_back_end/internal/config"
)

// Connections regroupe les clients ouverts au démarrage.
// Postgres est nil en mode mémoire ; Scylla, Elastic et MinIO sont nil s'ils ne sont pas configurés.
type Connections struct {
	Postgres *pgxpool.Pool
	Redis    *redis.Client
	Scylla   *gocql.Session
	Elastic  *elasticsearch.Client
	MinIO    *minio.Client
}

// --- Initialisation ---
func ConnectDatabases(cfg config.Settings) *Connections {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conns := &Connections{}

	// 1. PostgreSQL (catalogue, commandes, paniers)
	if cfg.StoreDriver == "postgres" {
		pool, err := ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("❌ Erreur connexion PostgreSQL: %v", err)
		}
		if err := Migrate(ctx, pool); err != nil {
			log.Fatalf("❌ Erreur migrations PostgreSQL: %v", err)
		}
		conns.Postgres = pool
	} else {
		log.Println("⚠️ STORE_DRIVER=memory — les données ne survivront pas au redémarrage")
	}

	// 2. Redis
	rdb, err := ConnectRedis(ctx, cfg.RedisHost, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("❌ Erreur connexion Redis: %v", err)
	}
	conns.Redis = rdb

	// 3. ScyllaDB (journal de stock)
	if len(cfg.ScyllaHosts) > 0 {
		session, err := ConnectScylla(cfg)
		if err != nil {
			log.Printf("⚠️ ScyllaDB indisponible, journal désactivé: %v", err)
		} else {
			conns.Scylla = session
		}
	}

	// 4. Elasticsearch
	if cfg.ElasticURL != "" {
		es, err := connectElastic(cfg)
		if err != nil {
			log.Printf("⚠️ Elasticsearch indisponible, recherche simple utilisée: %v", err)
		} else {
			conns.Elastic = es
		}
	}

	// 5. MinIO (archives de factures)
	if cfg.MinioEndpoint != "" {
		client, err := connectMinIO(ctx, cfg)
		if err != nil {
			log.Printf("⚠️ MinIO indisponible, factures non archivées: %v", err)
		} else {
			conns.MinIO = client
		}
	}

	log.Println("✅ Connexions initialisées")
	return conns
}

func (c *Connections) Close() {
	if c.Postgres != nil {
		c.Postgres.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Printf("⚠️ Erreur fermeture Redis: %v", err)
		}
	}
	if c.Scylla != nil {
		c.Scylla.Close()
		log.Println("🔌 Session ScyllaDB fermée")
	}
}

// =============================================
// POSTGRESQL
// =============================================

func ConnectPostgres(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("DATABASE_URL invalide: %w", err)
	}

	poolCfg.MaxConns = 25
	poolCfg.MinConns = 5
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute
	// NUMERIC <-> decimal.Decimal
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("création du pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}

	log.Println("✅ Connecté à PostgreSQL")
	return pool, nil
}

// =============================================
// REDIS
// =============================================

func ConnectRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("impossible de se connecter à Redis: %w", err)
	}
	log.Println("✅ Connecté à Redis")
	return client, nil
}

// =============================================
// SCYLLA DB
// =============================================

func ConnectScylla(cfg config.Settings) (*gocql.Session, error) {
	cluster := gocql.NewCluster(cfg.ScyllaHosts...)
	cluster.Keyspace = cfg.ScyllaKeyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.NumConns = 4
	cluster.ReconnectInterval = time.Second
	if cfg.ScyllaUser != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.ScyllaUser,
			Password: cfg.ScyllaPassword,
		}
	}
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("création session keyspace %s: %w", cfg.ScyllaKeyspace, err)
	}
	if err := session.Query("SELECT now() FROM system.local").Exec(); err != nil {
		session.Close()
		return nil, fmt.Errorf("ping ScyllaDB: %w", err)
	}

	log.Printf("✅ Session ScyllaDB ouverte pour keyspace '%s'", cfg.ScyllaKeyspace)
	return session, nil
}

// =============================================
// ELASTICSEARCH
// =============================================

func connectElastic(cfg config.Settings) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.ElasticURL},
		Username:  cfg.ElasticUser,
		Password:  cfg.ElasticPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("création client Elasticsearch: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("connexion Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("Elasticsearch a répondu %s", res.Status())
	}

	log.Println("✅ Connecté à Elasticsearch")
	return client, nil
}

// =============================================
// MINIO
// =============================================

func connectMinIO(ctx context.Context, cfg config.Settings) (*minio.Client, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("client MinIO: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("vérification bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("création bucket: %w", err)
		}
		log.Println("🪣 Bucket créé :", cfg.MinioBucket)
	} else {
		log.Println("🪣 Bucket MinIO déjà présent :", cfg.MinioBucket)
	}

	log.Println("✅ Connecté à MinIO :", cfg.MinioEndpoint)
	return client, nil
}
