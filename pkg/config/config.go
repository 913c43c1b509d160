package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Log      LogConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Refresh  RefreshConfig
	Seed     SeedConfig
}

type ServerConfig struct {
	Port      string
	Mode      string
	APIPrefix string // 受网关保护的API前缀
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey     string        // HS256签名密钥
	TokenDuration time.Duration // 令牌有效期
	Issuer        string
}

type LogConfig struct {
	Level      string
	FilePath   string
	MaxSize    int    // MB
	MaxBackups int    // 保留的备份文件数
	MaxAge     int    // 保留天数
	Compress   bool   // 是否压缩
	Format     string // json 或 text
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	Channel  string // 角色变更通知频道
}

type CORSConfig struct {
	AllowOrigins  []string // 允许回显的源
	DefaultOrigin string   // 源不在白名单时使用，为空则取AllowOrigins[0]
	MaxAge        int      // 预检请求缓存时间（秒）
}

type RefreshConfig struct {
	Schedule string // 角色快照定时刷新，cron表达式，为空则关闭
}

type SeedConfig struct {
	AdminPassword     string
	MemberPassword    string
	ApplicantPassword string
}

// 获取环境变量，如果不存在则使用默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// 获取环境变量转换为int
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// 获取环境变量转换为bool
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

// 获取环境变量转换为字符串数组（逗号分隔）
func getEnvAsStringArray(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultValue
}

// DefaultAllowOrigins 前端部署地址
var DefaultAllowOrigins = []string{
	"http://develop.i-keeper.synology.me",
	"http://i-keeper.synology.me",
	"http://front_end:17076",
	"http://localhost:17076",
}

func LoadConfig() (*Config, error) {
	// .env 不存在时直接使用环境变量
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:      getEnv("SERVER_PORT", "8080"),
			Mode:      getEnv("SERVER_MODE", "debug"),
			APIPrefix: getEnv("SERVER_API_PREFIX", "/api"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "keeper"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey:     getEnv("JWT_SECRET_KEY", defaultSecretKey),
			TokenDuration: getEnvAsDuration("JWT_TOKEN_DURATION", 24*time.Hour),
			Issuer:        getEnv("JWT_ISSUER", "keeper"),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			FilePath:   getEnv("LOG_FILE_PATH", "logs/app.log"),
			MaxSize:    getEnvAsInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 7),
			MaxAge:     getEnvAsInt("LOG_MAX_AGE", 30),
			Compress:   getEnvAsBool("LOG_COMPRESS", true),
			Format:     getEnv("LOG_FORMAT", "json"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Channel:  getEnv("REDIS_ROLE_CHANNEL", "keeper:rbac:invalidate"),
		},
		CORS: CORSConfig{
			AllowOrigins:  getEnvAsStringArray("CORS_ALLOW_ORIGINS", DefaultAllowOrigins),
			DefaultOrigin: getEnv("CORS_DEFAULT_ORIGIN", ""),
			MaxAge:        getEnvAsInt("CORS_MAX_AGE", 86400),
		},
		Refresh: RefreshConfig{
			Schedule: getEnv("RBAC_REFRESH_SCHEDULE", "@every 10m"),
		},
		Seed: SeedConfig{
			AdminPassword:     getEnv("SEED_ADMIN_PASSWORD", "Admin1234!"),
			MemberPassword:    getEnv("SEED_MEMBER_PASSWORD", "User1234!"),
			ApplicantPassword: getEnv("SEED_APPLICANT_PASSWORD", "Apply1234!"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

const defaultSecretKey = "default-secret-change-me"

func (c *Config) validate() error {
	if c.Server.Mode == "release" && c.JWT.SecretKey == defaultSecretKey {
		return fmt.Errorf("JWT_SECRET_KEY must be set in release mode")
	}
	if !strings.HasPrefix(c.Server.APIPrefix, "/") {
		return fmt.Errorf("SERVER_API_PREFIX must start with /: %q", c.Server.APIPrefix)
	}
	if c.CORS.MaxAge < 0 {
		return fmt.Errorf("CORS_MAX_AGE must not be negative")
	}
	return nil
}
