package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"solis_user"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"solis_pass"`
	DBName     string `env:"DB_NAME" envDefault:"solis_db"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	ServerPort     string `env:"SERVER_PORT" envDefault:"8080"`
	JWTSecret      string `env:"JWT_SECRET" envDefault:"supersecretkey"`
	JWTExpiryHours int    `env:"JWT_EXPIRY_HOURS" envDefault:"24"`

	// IdentityProvider selects where identity records live: "local" keeps
	// bcrypt credentials next to the profiles, "firebase" delegates to Firebase Auth.
	IdentityProvider        string `env:"IDENTITY_PROVIDER" envDefault:"local"`
	FirebaseProjectID       string `env:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsPath string `env:"FIREBASE_CREDENTIALS_PATH"`
	FirebaseStorageBucket   string `env:"FIREBASE_STORAGE_BUCKET"`

	Notifier          string `env:"NOTIFIER" envDefault:"none"`
	EmailJSEndpoint   string `env:"EMAILJS_ENDPOINT" envDefault:"https://api.emailjs.com/api/v1.0/email/send"`
	EmailJSServiceID  string `env:"EMAILJS_SERVICE_ID"`
	EmailJSPublicKey  string `env:"EMAILJS_PUBLIC_KEY"`
	EmailJSPrivateKey string `env:"EMAILJS_PRIVATE_KEY"`
	SMTPHost          string `env:"SMTP_HOST"`
	SMTPPort          int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser          string `env:"SMTP_USER"`
	SMTPPassword      string `env:"SMTP_PASSWORD"`
	SMTPFrom          string `env:"SMTP_FROM" envDefault:"Solis Center <no-reply@soliscenter.local>"`

	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiModel   string `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	AIChatHistory int    `env:"AI_CHAT_HISTORY" envDefault:"10"`

	ConsoleURL      string        `env:"CONSOLE_URL" envDefault:"http://localhost:5173"`
	PublicFormRate  float64       `env:"PUBLIC_FORM_RATE" envDefault:"1"`
	PublicFormBurst int           `env:"PUBLIC_FORM_BURST" envDefault:"5"`
	ProfileCacheTTL time.Duration `env:"PROFILE_CACHE_TTL" envDefault:"30s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// DSN builds the postgres connection string shared by gorm, pgx and migrate.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// MigrateURL is the pgx5:// form golang-migrate expects.
func (c *Config) MigrateURL() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpiryHours) * time.Hour
}
