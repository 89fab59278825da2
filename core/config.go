package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		Port                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		DisableTLS    bool
	}

	GroqConfig struct {
		APIKey        string
		BaseURL       string
		Model         string
		FallbackModel string
		Timeout       time.Duration
	}

	MinioConfig struct {
		Endpoint  string
		AccessKey string
		SecretKey string
		Bucket    string
		UseSSL    bool
	}

	Config struct {
		Debug    bool
		TestMode bool
		Env      string // DEV (local; default), TEST, QA, PROD
		Build    string
		WorkDir  string

		AppName                   string
		SecretKey                 []byte
		FrontendBaseURL           string
		DefaultFromEmail          mail.Address
		SendgridAPIKey            string
		RollbarToken              string
		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Groq     GroqConfig
		Minio    MinioConfig
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

func (c ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

func NewConfig() *Config {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("debug", true)
	conf.SetDefault("build", "dev")
	conf.SetDefault("appName", "ScanLab")
	conf.SetDefault("secretKey", "v01*=b$e&yja#1r^txxp4w+zqb0_9oy(k-c=_a8%j&^ks8-!dm")
	conf.SetDefault("frontendBaseUrl", "http://localhost:3000")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.port", "8000")
	conf.SetDefault("server.debugHost", "localhost:8001")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.name", "scanlab")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.disableTls", true)

	conf.SetDefault("groq.baseUrl", "https://api.groq.com/openai/v1")
	conf.SetDefault("groq.model", "llama3-70b-8192")
	conf.SetDefault("groq.fallbackModel", "mixtral-8x7b-32768")
	conf.SetDefault("groq.timeout", 10*time.Second)

	conf.SetDefault("minio.endpoint", "localhost:9000")
	conf.SetDefault("minio.bucket", "scanlab-media")
	conf.SetDefault("minio.useSsl", false)

	env := os.Getenv("ENV")
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:    conf.GetBool("debug"),
		TestMode: conf.GetBool("testMode"),
		Env:      env,
		Build:    conf.GetString("build"),
		WorkDir:  wd,

		AppName:   conf.GetString("appName"),
		SecretKey: []byte(conf.GetString("secretKey")),

		FrontendBaseURL:           conf.GetString("frontendBaseUrl"),
		DefaultFromEmail:          mail.Address{Address: conf.GetString("defaultFromEmail")},
		SendgridAPIKey:            conf.GetString("sendgridApiKey"),
		RollbarToken:              conf.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: conf.GetDuration("passwordResetTimeoutDelta"),

		Server: ServerConfig{
			Host:                      conf.GetString("server.host"),
			Port:                      conf.GetString("server.port"),
			DebugHost:                 conf.GetString("server.debugHost"),
			ShutdownTimeout:           conf.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			DisableTLS:    conf.GetBool("database.disableTls"),
		},
		Groq: GroqConfig{
			APIKey:        conf.GetString("groq.apiKey"),
			BaseURL:       conf.GetString("groq.baseUrl"),
			Model:         conf.GetString("groq.model"),
			FallbackModel: conf.GetString("groq.fallbackModel"),
			Timeout:       conf.GetDuration("groq.timeout"),
		},
		Minio: MinioConfig{
			Endpoint:  conf.GetString("minio.endpoint"),
			AccessKey: conf.GetString("minio.accessKey"),
			SecretKey: conf.GetString("minio.secretKey"),
			Bucket:    conf.GetString("minio.bucket"),
			UseSSL:    conf.GetBool("minio.useSsl"),
		},
	}
}
