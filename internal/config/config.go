package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend names accepted by the *_BACKEND keys.
const (
	BackendTree = "tree"
	BackendRest = "rest"
)

// Config is the application configuration, read from the environment.
type Config struct {
	AppPort   string
	LogLevel  string
	LogFormat string

	DatabaseDriver string
	DatabaseDSN    string

	TreeDriver          string
	FirebaseDatabaseURL string
	FirebaseAuth        string
	RestBaseURL         string

	ProductsBackend  string
	SuppliersBackend string
	ReviewsBackend   string

	IdentityProvider string
	FirebaseAPIKey   string
	FirebaseAuthURL  string
	JWTSecret        string
	TokenTTL         time.Duration

	HTTPTimeout time.Duration
	RabbitMQURL string
}

// Load reads the configuration from v, falling back to defaults. Environment
// variables override defaults.
func Load(v *viper.Viper) (Config, error) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "smooth.db")
	v.SetDefault("TREE_DRIVER", "memory")
	v.SetDefault("FIREBASE_DATABASE_URL", "")
	v.SetDefault("FIREBASE_AUTH", "")
	v.SetDefault("REST_BASE_URL", "http://localhost:3000")
	v.SetDefault("PRODUCTS_BACKEND", BackendTree)
	v.SetDefault("SUPPLIERS_BACKEND", BackendTree)
	v.SetDefault("REVIEWS_BACKEND", BackendRest)
	v.SetDefault("IDENTITY_PROVIDER", "local")
	v.SetDefault("FIREBASE_API_KEY", "")
	v.SetDefault("FIREBASE_AUTH_URL", "https://identitytoolkit.googleapis.com/v1")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("HTTP_TIMEOUT", "10s")
	v.SetDefault("RABBITMQ_URL", "")
	v.AutomaticEnv()

	cfg := Config{
		AppPort:             v.GetString("APP_PORT"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		LogFormat:           strings.ToLower(v.GetString("LOG_FORMAT")),
		DatabaseDriver:      strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseDSN:         v.GetString("DATABASE_DSN"),
		TreeDriver:          strings.ToLower(v.GetString("TREE_DRIVER")),
		FirebaseDatabaseURL: v.GetString("FIREBASE_DATABASE_URL"),
		FirebaseAuth:        v.GetString("FIREBASE_AUTH"),
		RestBaseURL:         v.GetString("REST_BASE_URL"),
		ProductsBackend:     strings.ToLower(v.GetString("PRODUCTS_BACKEND")),
		SuppliersBackend:    strings.ToLower(v.GetString("SUPPLIERS_BACKEND")),
		ReviewsBackend:      strings.ToLower(v.GetString("REVIEWS_BACKEND")),
		IdentityProvider:    strings.ToLower(v.GetString("IDENTITY_PROVIDER")),
		FirebaseAPIKey:      v.GetString("FIREBASE_API_KEY"),
		FirebaseAuthURL:     v.GetString("FIREBASE_AUTH_URL"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		TokenTTL:            v.GetDuration("TOKEN_TTL"),
		HTTPTimeout:         v.GetDuration("HTTP_TIMEOUT"),
		RabbitMQURL:         v.GetString("RABBITMQ_URL"),
	}
	return cfg, cfg.Validate()
}

// Validate reports every invalid or missing setting.
func (c Config) Validate() error {
	var errs []error
	oneOf := func(key, value string, allowed ...string) {
		for _, a := range allowed {
			if value == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, "|"), value))
	}

	oneOf("LOG_FORMAT", c.LogFormat, "console", "json")
	oneOf("DATABASE_DRIVER", c.DatabaseDriver, "sqlite", "postgres")
	oneOf("TREE_DRIVER", c.TreeDriver, "memory", "database", "firebase")
	oneOf("PRODUCTS_BACKEND", c.ProductsBackend, BackendTree, BackendRest)
	oneOf("SUPPLIERS_BACKEND", c.SuppliersBackend, BackendTree, BackendRest)
	oneOf("REVIEWS_BACKEND", c.ReviewsBackend, BackendTree, BackendRest)
	oneOf("IDENTITY_PROVIDER", c.IdentityProvider, "local", "firebase")

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.TreeDriver == "firebase" && c.FirebaseDatabaseURL == "" {
		errs = append(errs, errors.New("FIREBASE_DATABASE_URL is required for the firebase tree driver"))
	}
	if c.IdentityProvider == "firebase" && c.FirebaseAPIKey == "" {
		errs = append(errs, errors.New("FIREBASE_API_KEY is required for the firebase identity provider"))
	}
	if c.UsesRest() && c.RestBaseURL == "" {
		errs = append(errs, errors.New("REST_BASE_URL is required when a backend is rest"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout))
	}
	return errors.Join(errs...)
}

// NeedsDatabase reports whether a SQL database must be opened.
func (c Config) NeedsDatabase() bool {
	return c.IdentityProvider == "local" || (c.TreeDriver == "database" && c.UsesTree())
}

// UsesRest reports whether any entity is stored in the REST collection.
func (c Config) UsesRest() bool {
	return c.ProductsBackend == BackendRest || c.SuppliersBackend == BackendRest || c.ReviewsBackend == BackendRest
}

// UsesTree reports whether any entity is stored in the tree store.
func (c Config) UsesTree() bool {
	return c.ProductsBackend == BackendTree || c.SuppliersBackend == BackendTree || c.ReviewsBackend == BackendTree
}
