// Package config resolves recipeforge's on-disk layout and environment
// defaults, in the same env-var-with-fallback style as the teacher
// project's config package.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/mpataki/recipeforge/internal/model"
)

const (
	envDataDir              = "RECIPEFORGE_DATA_DIR"
	envRecipeDir            = "RECIPEFORGE_RECIPE_DIR"
	envDefaultBackend       = "RECIPEFORGE_BACKEND"
	envDefaultModel         = "RECIPEFORGE_MODEL"
	envStepDeadline         = "RECIPEFORGE_STEP_DEADLINE"
	envNestedSessionFlagVar = "RECIPEFORGE_NESTED_SESSION_FLAG_VAR"
	envNestedSessionIDVar   = "RECIPEFORGE_NESTED_SESSION_ID_VAR"

	// defaultStepDeadline has the same value as engine.DefaultStepDeadline;
	// the fallback is duplicated here rather than imported from engine.
	defaultStepDeadline = 24 * time.Hour

	// defaultNestedSessionFlagVar and defaultNestedSessionIDVar are the
	// environment variable names the agent CLI itself sets to flag a
	// nested session; they're stripped from the spawned subprocess's
	// environment unless overridden.
	defaultNestedSessionFlagVar = "CLAUDE_CODE_SESSION_ACTIVE"
	defaultNestedSessionIDVar   = "CLAUDE_CODE_SESSION_ID"
)

// Config holds resolved paths and defaults shared by every cmd/recipeforge
// subcommand.
type Config struct {
	// DataDir holds recipeforge's own state: the audit database.
	DataDir string
	// AuditDBPath is where the audit trail (structural-facts-only SQLite
	// store) lives.
	AuditDBPath string

	// RecipeDirs is the ordered search path scanned for recipe YAML
	// files. Earlier directories take precedence on id collision.
	RecipeDirs []string

	// DefaultBackend names the backend used when --backend is not given.
	DefaultBackend string

	// DefaultModel is the model tier used when neither a step nor its
	// recipe specifies one and --model is not given.
	DefaultModel model.ModelTier

	// StepDeadline bounds a single agent invocation. Zero means "use the
	// engine's own default".
	StepDeadline time.Duration

	// NestedSessionFlagVar and NestedSessionIDVar name the environment
	// variables stripped from a spawned agent's environment so it does not
	// detect it is running inside an already active session.
	NestedSessionFlagVar string
	NestedSessionIDVar   string
}

// New resolves configuration from environment variables, falling back to
// recipeforge's conventional locations under the user's home directory.
func New() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	dataDir := getEnv(envDataDir, filepath.Join(homeDir, ".recipeforge"))
	recipeDir := getEnv(envRecipeDir, filepath.Join(homeDir, ".recipeforge", "recipes"))

	c := &Config{
		DataDir:              dataDir,
		AuditDBPath:          filepath.Join(dataDir, "audit.db"),
		RecipeDirs:           []string{".recipeforge/recipes", recipeDir},
		DefaultBackend:       getEnv(envDefaultBackend, "cliagent"),
		DefaultModel:         model.ModelTier(getEnv(envDefaultModel, "")),
		StepDeadline:         getEnvDuration(envStepDeadline, defaultStepDeadline),
		NestedSessionFlagVar: getEnv(envNestedSessionFlagVar, defaultNestedSessionFlagVar),
		NestedSessionIDVar:   getEnv(envNestedSessionIDVar, defaultNestedSessionIDVar),
	}

	return c, nil
}

// EnsureDataDir creates the directories New's paths depend on.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o755)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
