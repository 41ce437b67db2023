package objstore

import "time"

// RedisOption configures the Redis store.
type RedisOption func(*RedisConfig)

// RedisConfig holds Redis object store configuration.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	PoolTimeout  time.Duration
	MinIdleConns int
	Bucket       string
}

// WithHost sets Redis host.
func WithHost(host string) RedisOption {
	return func(c *RedisConfig) {
		c.Host = host
	}
}

// WithPort sets Redis port.
func WithPort(port int) RedisOption {
	return func(c *RedisConfig) {
		c.Port = port
	}
}

// WithPassword sets Redis password.
func WithPassword(password string) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
	}
}

// WithDB sets Redis database number.
func WithDB(db int) RedisOption {
	return func(c *RedisConfig) {
		c.DB = db
	}
}

// WithPool sets connection pool settings.
func WithPool(poolSize, minIdleConns int, timeout time.Duration) RedisOption {
	return func(c *RedisConfig) {
		c.PoolSize = poolSize
		c.MinIdleConns = minIdleConns
		c.PoolTimeout = timeout
	}
}

// WithBucket sets the key prefix all objects live under.
func WithBucket(bucket string) RedisOption {
	return func(c *RedisConfig) {
		c.Bucket = bucket
	}
}
