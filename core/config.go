package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// build is set via -ldflags at compile time.
var build = "dev"

type (
	ServerConfig struct {
		Host            string
		Addr            string
		DebugHost       string
		WebhookSecret   string
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	ChatConfig struct {
		Token           string
		BaseURL         string
		GroupID         int64
		GeneralThreadID int64
	}

	ClassifierConfig struct {
		BaseURL string
		APIKey  string
		Model   string
		Timeout time.Duration
	}

	// ProgramConfig carries the compliance policy knobs. The window offsets,
	// thresholds and deadlines drive the course state machine and the
	// scheduler tasks.
	ProgramConfig struct {
		TotalDays      int
		ExtendedDays   int
		WindowBefore   time.Duration
		WindowAfter    time.Duration
		ConfidenceMin  float64
		LateThreshold  time.Duration
		BaseMaxStrikes int
		MaxAppeals     int
		DeadlineLeeway time.Duration
		TickInterval   time.Duration
		DedupTTL       time.Duration
		CleanupAfter   time.Duration
		SetupRetention time.Duration
	}

	Config struct {
		Env      string
		Debug    bool
		TestMode bool
		AppName  string
		Build    string
		Timezone string

		DefaultFromEmail   string
		ReviewerAlertEmail string
		SendgridAPIKey     string
		RollbarToken       string

		Server     ServerConfig
		Database   DatabaseConfig
		Redis      RedisConfig
		Chat       ChatConfig
		Classifier ClassifierConfig
		Program    ProgramConfig

		location *time.Location
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Davomat")
	v.SetDefault("timezone", "Asia/Tashkent")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("reviewerAlertEmail", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.debugHost", "localhost:6060")
	v.SetDefault("server.webhookSecret", "")
	v.SetDefault("server.shutdownTimeout", 20*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.name", "davomat")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("chat.token", "")
	v.SetDefault("chat.baseURL", "https://api.telegram.org")
	v.SetDefault("chat.groupID", 0)
	v.SetDefault("chat.generalThreadID", 0)

	v.SetDefault("classifier.baseURL", "https://generativelanguage.googleapis.com")
	v.SetDefault("classifier.apiKey", "")
	v.SetDefault("classifier.model", "gemini-2.5-flash")
	v.SetDefault("classifier.timeout", 60*time.Second)

	v.SetDefault("program.totalDays", 21)
	v.SetDefault("program.extendedDays", 28)
	v.SetDefault("program.windowBefore", 10*time.Minute)
	v.SetDefault("program.windowAfter", 2*time.Hour)
	v.SetDefault("program.confidenceMin", 0.85)
	v.SetDefault("program.lateThreshold", 30*time.Minute)
	v.SetDefault("program.baseMaxStrikes", 3)
	v.SetDefault("program.maxAppeals", 2)
	v.SetDefault("program.deadlineLeeway", 2*time.Hour)
	v.SetDefault("program.tickInterval", 5*time.Minute)
	v.SetDefault("program.dedupTTL", 24*time.Hour)
	v.SetDefault("program.cleanupAfter", 24*time.Hour)
	v.SetDefault("program.setupRetention", 24*time.Hour)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := &Config{
		Env:      env,
		Debug:    v.GetBool("debug"),
		TestMode: env == "TEST",
		AppName:  v.GetString("appName"),
		Build:    build,
		Timezone: v.GetString("timezone"),

		DefaultFromEmail:   v.GetString("defaultFromEmail"),
		ReviewerAlertEmail: v.GetString("reviewerAlertEmail"),
		SendgridAPIKey:     v.GetString("sendgridApiKey"),
		RollbarToken:       v.GetString("rollbarToken"),

		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Addr:            v.GetString("server.addr"),
			DebugHost:       v.GetString("server.debugHost"),
			WebhookSecret:   v.GetString("server.webhookSecret"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Name:          v.GetString("database.name"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Chat: ChatConfig{
			Token:           v.GetString("chat.token"),
			BaseURL:         v.GetString("chat.baseURL"),
			GroupID:         v.GetInt64("chat.groupID"),
			GeneralThreadID: v.GetInt64("chat.generalThreadID"),
		},
		Classifier: ClassifierConfig{
			BaseURL: v.GetString("classifier.baseURL"),
			APIKey:  v.GetString("classifier.apiKey"),
			Model:   v.GetString("classifier.model"),
			Timeout: v.GetDuration("classifier.timeout"),
		},
		Program: ProgramConfig{
			TotalDays:      v.GetInt("program.totalDays"),
			ExtendedDays:   v.GetInt("program.extendedDays"),
			WindowBefore:   v.GetDuration("program.windowBefore"),
			WindowAfter:    v.GetDuration("program.windowAfter"),
			ConfidenceMin:  v.GetFloat64("program.confidenceMin"),
			LateThreshold:  v.GetDuration("program.lateThreshold"),
			BaseMaxStrikes: v.GetInt("program.baseMaxStrikes"),
			MaxAppeals:     v.GetInt("program.maxAppeals"),
			DeadlineLeeway: v.GetDuration("program.deadlineLeeway"),
			TickInterval:   v.GetDuration("program.tickInterval"),
			DedupTTL:       v.GetDuration("program.dedupTTL"),
			CleanupAfter:   v.GetDuration("program.cleanupAfter"),
			SetupRetention: v.GetDuration("program.setupRetention"),
		},
	}
	conf.location = loadLocation(conf.Timezone)
	return conf
}

// Location returns the program timezone. All window math runs in this zone.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		c.location = loadLocation(c.Timezone)
	}
	return c.location
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("config: unknown timezone %q, falling back to UTC", name)
		return time.UTC
	}
	return loc
}

func (dc DatabaseConfig) Address() string {
	return dc.Host + ":" + dc.Port
}
