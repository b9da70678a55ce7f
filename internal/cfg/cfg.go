package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ktrack/pricecore/pkg/e"
	"github.com/ktrack/pricecore/pkg/logger"
)

type Config struct {
	Keepa    *KeepaCfg
	Db       *PGDBCfg
	Kafka    *KafkaCfg
	Elastic  *ElasticCfg
	Redis    *RedisCfg
	Http     *HTTPCfg
	Minio    *MinIOCfg
	Scheduler *SchedulerCfg
	Deal     *DealPipelineCfg
	Dispatch *DispatchCfg
}

type KeepaCfg struct {
	APIKey        string
	DealSourceMode string // product_only | deals | discover
}

type PGDBCfg struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type KafkaCfg struct {
	Brokers           []string
	TopicPrices       string
	TopicDeals        string
	TopicTokenMetrics string
	ConsumerGroup     string
	ConsumerGroupDeals string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
}

type ElasticCfg struct {
	URL           string
	IndexPrices   string
	IndexDeals    string
	IndexMetrics  string
}

type RedisCfg struct {
	Addr        string
	Password    string
	User        string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
	DedupTTL    time.Duration
}

type HTTPCfg struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type MinIOCfg struct {
	Endpoint   string
	BucketName string
	RootUser   string
	RootPassword string
	UseSSL     bool
}

type SchedulerCfg struct {
	CheckIntervalSeconds int
	ParallelPriceFetch   int
}

type DealPipelineCfg struct {
	SeedFile            string
	SeedASINs           string
	TargetsFile         string
	ScanIntervalSeconds int
	ScanBatchSize       int
	Concurrency         int
}

type DispatchCfg struct {
	MaxAlertsPerHour int
	DuplicateWindow  time.Duration
	MaxRetries       int
}

// Load reads every config group from the environment, failing fast on
// the first missing required value.
func Load(log logger.Logger) (*Config, error) {
	db, err := loadPGDBCfg(log)
	if err != nil {
		return nil, e.Wrap("cfg.Load", err)
	}

	http, err := loadHTTPCfg(log)
	if err != nil {
		return nil, e.Wrap("cfg.Load", err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap("cfg.Load", err)
	}

	kafka, err := loadKafkaCfg()
	if err != nil {
		return nil, e.Wrap("cfg.Load", err)
	}

	elastic, err := loadElasticCfg()
	if err != nil {
		return nil, e.Wrap("cfg.Load", err)
	}

	keepa, err := loadKeepaCfg()
	if err != nil {
		return nil, e.Wrap("cfg.Load", err)
	}

	minio := loadMinIOCfg()

	return &Config{
		Keepa:     keepa,
		Db:        db,
		Kafka:     kafka,
		Elastic:   elastic,
		Redis:     redis,
		Http:      http,
		Minio:     minio,
		Scheduler: loadSchedulerCfg(),
		Deal:      loadDealPipelineCfg(),
		Dispatch:  loadDispatchCfg(),
	}, nil
}

func loadKeepaCfg() (*KeepaCfg, error) {
	apiKey := getEnv("KEEPA_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("KEEPA_API_KEY environment variable is required")
	}

	return &KeepaCfg{
		APIKey:         apiKey,
		DealSourceMode: getEnvOrDefault("DEAL_SOURCE_MODE", "product_only"),
	}, nil
}

func loadPGDBCfg(log logger.Logger) (*PGDBCfg, error) {
	const (
		defaultHost    = "localhost"
		defaultPort    = "5432"
		defaultSSLMode = "disable"
	)

	user := getEnv("POSTGRES_USER")
	if user == "" {
		err := fmt.Errorf("POSTGRES_USER is required")
		log.Errorf(err, "missing POSTGRES_USER")
		return nil, err
	}

	password := getEnv("POSTGRES_PASSWORD")
	if password == "" {
		err := fmt.Errorf("POSTGRES_PASSWORD is required")
		log.Errorf(err, "missing POSTGRES_PASSWORD")
		return nil, err
	}

	dbName := getEnv("POSTGRES_DB")
	if dbName == "" {
		err := fmt.Errorf("POSTGRES_DB is required")
		log.Errorf(err, "missing POSTGRES_DB")
		return nil, err
	}

	return &PGDBCfg{
		Host:     getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:     getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:     user,
		Password: password,
		DBName:   dbName,
		SSLMode:  getEnvOrDefault("SSL_MODE", defaultSSLMode),
	}, nil
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultPartitions        = 3
		defaultReplicationFactor = 1
		defaultNetworkMode       = "tcp"
	)

	brokerStr := getEnv("KAFKA_BROKERS")
	if brokerStr == "" {
		return nil, fmt.Errorf("KAFKA_BROKERS environment variable is required")
	}

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replicationFactor, err := parseIntEnv("REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("REPLICATION_FACTOR", err)
	}

	return &KafkaCfg{
		Brokers:            strings.Split(brokerStr, ","),
		TopicPrices:        getEnvOrDefault("KAFKA_TOPIC_PRICES", "price-updates"),
		TopicDeals:         getEnvOrDefault("KAFKA_TOPIC_DEALS", "deal-updates"),
		TopicTokenMetrics:  getEnvOrDefault("KAFKA_TOPIC_TOKEN_METRICS", "token-metrics"),
		ConsumerGroup:      getEnvOrDefault("KAFKA_CONSUMER_GROUP", "keeper-consumer-group"),
		ConsumerGroupDeals: getEnvOrDefault("KAFKA_CONSUMER_GROUP_DEALS", "keeper-consumer-group-deals"),
		NetworkMode:        getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),
		Partitions:         partitions,
		ReplicationFactor:  replicationFactor,
	}, nil
}

func loadElasticCfg() (*ElasticCfg, error) {
	url := getEnv("ELASTICSEARCH_URL")
	if url == "" {
		return nil, fmt.Errorf("ELASTICSEARCH_URL environment variable is required")
	}

	return &ElasticCfg{
		URL:          url,
		IndexPrices:  getEnvOrDefault("ELASTICSEARCH_INDEX_PRICES", "keeper-prices"),
		IndexDeals:   getEnvOrDefault("ELASTICSEARCH_INDEX_DEALS", "keeper-deals"),
		IndexMetrics: getEnvOrDefault("ELASTICSEARCH_INDEX_METRICS", "keeper-metrics"),
	}, nil
}

func loadHTTPCfg(log logger.Logger) (*HTTPCfg, error) {
	const (
		defaultPort         = "8080"
		defaultReadTimeout  = 5 * time.Second
		defaultWriteTimeout = 10 * time.Second
		defaultIdleTimeout  = 60 * time.Second
	)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("HTTP_IDLE_TIMEOUT", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_IDLE_TIMEOUT")
		return nil, err
	}

	return &HTTPCfg{
		Port:         getEnvOrDefault("HTTP_PORT", defaultPort),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultAddr        = "localhost:6379"
		defaultDB          = 0
		defaultMaxRetries  = 3
		defaultDialTimeout = 5 * time.Second
		defaultTimeout     = 3 * time.Second
		defaultDedupTTL    = 1 * time.Hour
	)

	dbStr := getEnvOrDefault("REDIS_DB_ID", strconv.Itoa(defaultDB))
	db, err := strconv.Atoi(dbStr)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("REDIS_MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid REDIS_MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("REDIS_DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DIAL_TIMEOUT")
		return nil, err
	}

	timeout, err := parseDurationEnv("REDIS_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid REDIS_TIMEOUT")
		return nil, err
	}

	dedupTTL, err := parseDurationEnv("ALERT_DEDUP_TTL", defaultDedupTTL)
	if err != nil {
		log.Errorf(err, "invalid ALERT_DEDUP_TTL")
		return nil, err
	}

	return &RedisCfg{
		Addr:        getEnvOrDefault("REDIS_ADDR", defaultAddr),
		Password:    getEnv("REDIS_PASSWORD"),
		User:        getEnv("REDIS_USER"),
		DB:          db,
		MaxRetries:  maxRetries,
		DialTimeout: dialTimeout,
		Timeout:     timeout,
		DedupTTL:    dedupTTL,
	}, nil
}

func loadMinIOCfg() *MinIOCfg {
	const defaultEndpoint = "minio:9000"

	useSSL, _ := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", "false"))

	return &MinIOCfg{
		Endpoint:     getEnvOrDefault("MINIO_ENDPOINT", defaultEndpoint),
		BucketName:   getEnvOrDefault("MINIO_BUCKET_NAME", "keeper-deal-reports"),
		RootUser:     getEnv("MINIO_ROOT_USER"),
		RootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		UseSSL:       useSSL,
	}
}

func loadSchedulerCfg() *SchedulerCfg {
	const (
		defaultCheckInterval     = 21600
		defaultParallelPriceFetch = 5
	)

	checkInterval, _ := parseIntEnv("PRICE_CHECK_INTERVAL_SECONDS", defaultCheckInterval)
	parallel, _ := parseIntEnv("PARALLEL_PRICE_FETCH", defaultParallelPriceFetch)

	return &SchedulerCfg{
		CheckIntervalSeconds: checkInterval,
		ParallelPriceFetch:   parallel,
	}
}

func loadDealPipelineCfg() *DealPipelineCfg {
	const (
		defaultScanInterval = 3600
		defaultBatchSize    = 10
		defaultConcurrency  = 5
	)

	scanInterval, _ := parseIntEnv("DEAL_SCAN_INTERVAL_SECONDS", defaultScanInterval)
	batchSize, _ := parseIntEnv("DEAL_SCAN_BATCH_SIZE", defaultBatchSize)

	return &DealPipelineCfg{
		SeedFile:            getEnvOrDefault("DEAL_SEED_FILE", "data/seed_asins_eu_qwertz.txt"),
		SeedASINs:           getEnv("DEAL_SEED_ASINS"),
		TargetsFile:         getEnvOrDefault("DEAL_TARGETS_FILE", "data/seed_targets_eu_qwertz.csv"),
		ScanIntervalSeconds: scanInterval,
		ScanBatchSize:       batchSize,
		Concurrency:         defaultConcurrency,
	}
}

func loadDispatchCfg() *DispatchCfg {
	const (
		defaultMaxAlertsPerHour = 10
		defaultDuplicateWindow  = 1 * time.Hour
		defaultMaxRetries       = 3
	)

	maxAlerts, _ := parseIntEnv("MAX_ALERTS_PER_HOUR", defaultMaxAlertsPerHour)

	return &DispatchCfg{
		MaxAlertsPerHour: maxAlerts,
		DuplicateWindow:  defaultDuplicateWindow,
		MaxRetries:       defaultMaxRetries,
	}
}

func getEnv(key string) string {
	return os.Getenv(key)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}
	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid int value for %s: %w", key, err)
	}

	return intValue, nil
}
