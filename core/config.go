package core

import (
	"fmt"
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
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		PasswordResetTimeoutDelta time.Duration
		RateLimit                 float64 // requests per second per client on unauthenticated endpoints
		RateBurst                 int
	}

	DatabaseConfig struct {
		Engine        string // mongodb | postgres | memory
		URI           string // mongodb
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          int
		DisableTLS    bool
		Timeout       time.Duration
	}

	CacheConfig struct {
		Enabled  bool
		Address  string
		Password string
		DB       int
		TTL      time.Duration
	}

	SchedulerConfig struct {
		Enabled           bool
		FeeGenerationSpec string
	}

	FeesConfig struct {
		DefaultDueDay int
		BatchSize     int
	}

	ResultsConfig struct {
		PassPercentage float64
	}

	Config struct {
		AppName          string
		Env              string // DEV (default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		RollbarToken     string
		SendgridApiKey   string

		Server    ServerConfig
		Database  DatabaseConfig
		Cache     CacheConfig
		Scheduler SchedulerConfig
		Fees      FeesConfig
		Results   ResultsConfig
	}
)

func (dbc DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", dbc.Host, dbc.Port)
}

// NewConfig loads the configuration from the environment.
// Variables are prefixed by the ENV name, e.g. DEV_DATABASE_ENGINE=mongodb.
// An optional `config/.env.<env>` file is loaded first.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	setDefaults(v, env)

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:         v.GetString("appName"),
		Env:             env,
		Build:           v.GetString("build"),
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		SecretKey:       v.GetString("secretKey"),
		FrontendBaseURL: strings.TrimSuffix(v.GetString("frontendBaseURL"), "/"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("appName"),
			Address: v.GetString("defaultFromEmail"),
		},
		RollbarToken:   v.GetString("rollbarToken"),
		SendgridApiKey: v.GetString("sendgridApiKey"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			PasswordResetTimeoutDelta: v.GetDuration("server.passwordResetTimeoutDelta"),
			RateLimit:                 v.GetFloat64("server.rateLimit"),
			RateBurst:                 v.GetInt("server.rateBurst"),
		},
		Database: DatabaseConfig{
			Engine:        strings.ToLower(v.GetString("database.engine")),
			URI:           v.GetString("database.uri"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Timeout:       v.GetDuration("database.timeout"),
		},
		Cache: CacheConfig{
			Enabled:  v.GetBool("cache.enabled"),
			Address:  v.GetString("cache.address"),
			Password: v.GetString("cache.password"),
			DB:       v.GetInt("cache.db"),
			TTL:      v.GetDuration("cache.ttl"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			FeeGenerationSpec: v.GetString("scheduler.feeGenerationSpec"),
		},
		Fees: FeesConfig{
			DefaultDueDay: v.GetInt("fees.defaultDueDay"),
			BatchSize:     v.GetInt("fees.batchSize"),
		},
		Results: ResultsConfig{
			PassPercentage: v.GetFloat64("results.passPercentage"),
		},
	}
}

func setDefaults(v *viper.Viper, env string) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("appName", "Darasa")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("secretKey", "k2v!x9-8d$m^h3q+z0r7w=t5)c#n&y1b4(u6p@e_s*a%o")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("server.rateLimit", 5.0)
	v.SetDefault("server.rateBurst", 10)

	v.SetDefault("database.engine", "memory")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "darasa")
	v.SetDefault("database.user", "darasa")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")
	v.SetDefault("database.timeout", 10*time.Second)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 2*time.Minute)

	v.SetDefault("scheduler.enabled", env != "TEST")
	v.SetDefault("scheduler.feeGenerationSpec", "0 2 1 * *") // 02:00 on the 1st of every month

	v.SetDefault("fees.defaultDueDay", 10)
	v.SetDefault("fees.batchSize", 500)

	v.SetDefault("results.passPercentage", 40.0)
}

// NewTestConfig returns the configuration used by tests: in-memory store, no cache, no scheduler.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v, "TEST")
	conf := &Config{
		AppName:          v.GetString("appName"),
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		SecretKey:        "secret",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Darasa", Address: "noreply@localhost"},
	}
	conf.Server = ServerConfig{
		JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
		JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		PasswordResetTimeoutDelta: v.GetDuration("server.passwordResetTimeoutDelta"),
		ShutdownTimeout:           time.Second,
		RateLimit:                 1000,
		RateBurst:                 1000,
	}
	conf.Database = DatabaseConfig{Engine: "memory", Name: "darasa_test", Timeout: time.Second}
	conf.Scheduler = SchedulerConfig{FeeGenerationSpec: v.GetString("scheduler.feeGenerationSpec")}
	conf.Fees = FeesConfig{DefaultDueDay: v.GetInt("fees.defaultDueDay"), BatchSize: 2}
	conf.Results = ResultsConfig{PassPercentage: v.GetFloat64("results.passPercentage")}
	return conf
}
