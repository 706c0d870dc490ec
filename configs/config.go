package config

import "os"

type S3 struct {
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

type Config struct {
	InstagramClientID     string
	InstagramClientSecret string
	InstagramRedirectURI  string
	InstagramAccountID    string
	PostgresURI           string
	RedisURI              string
	FrontendURL           string
	MetricsAddr           string
	WorkerMetricsAddr     string
	ProbeAddr             string
	S3                    S3
	SecretKey             string
	CookieName            string
	LoginSecret           string
}

func LoadConfig() *Config {
	return &Config{
		InstagramClientID:     getEnv("INSTAGRAM_CLIENT_ID", ""),
		InstagramClientSecret: getEnv("INSTAGRAM_CLIENT_SECRET", ""),
		InstagramRedirectURI:  getEnv("INSTAGRAM_REDIRECT_URI", ""),
		InstagramAccountID:    getEnv("INSTAGRAM_ACCOUNT_ID", ""),
		PostgresURI:           getEnv("POSTGRES_URI", ""),
		RedisURI:              getEnv("REDIS_URI", "127.0.0.1:6379"),
		FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:5173"),
		MetricsAddr:           getEnv("METRICS_ADDR", ":9091"),
		// Server and worker share one .env on one device; they must not
		// fight over a listener.
		WorkerMetricsAddr: getEnv("WORKER_METRICS_ADDR", ":9092"),
		ProbeAddr:         getEnv("PROBE_ADDR", "1.1.1.1:443"),
		S3: S3{
			Region:    getEnv("AWS_REGION", "us-east-1"),
			AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Bucket:    getEnv("AWS_S3_BUCKET_NAME", ""),
		},
		SecretKey:   getEnv("SECRET_KEY", ""),
		CookieName:  getEnv("COOKIE_NAME", "postqueue_session"),
		LoginSecret: getEnv("LOGIN_SECRET", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
