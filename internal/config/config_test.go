package config_test

import (
	"testing"
	"time"

	"smooth/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := config.Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, "memory", cfg.TreeDriver)
	assert.Equal(t, config.BackendTree, cfg.ProductsBackend)
	assert.Equal(t, config.BackendRest, cfg.ReviewsBackend)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Empty(t, cfg.RabbitMQURL)
	assert.True(t, cfg.NeedsDatabase())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TREE_DRIVER", "Firebase")
	t.Setenv("FIREBASE_DATABASE_URL", "https://loja-default-rtdb.firebaseio.com")
	t.Setenv("IDENTITY_PROVIDER", "firebase")
	t.Setenv("FIREBASE_API_KEY", "key")
	t.Setenv("REVIEWS_BACKEND", "tree")
	t.Setenv("TOKEN_TTL", "30m")

	cfg, err := config.Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "firebase", cfg.TreeDriver)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.False(t, cfg.NeedsDatabase())
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("TREE_DRIVER", "firebase")
	t.Setenv("SUPPLIERS_BACKEND", "graphql")
	t.Setenv("LOG_FORMAT", "xml")

	_, err := config.Load(viper.New())
	require.Error(t, err)
	assert.ErrorContains(t, err, "JWT_SECRET is required")
	assert.ErrorContains(t, err, "FIREBASE_DATABASE_URL is required")
	assert.ErrorContains(t, err, `SUPPLIERS_BACKEND must be one of tree|rest, got "graphql"`)
	assert.ErrorContains(t, err, "LOG_FORMAT")
}
