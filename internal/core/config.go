package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/valter-silva-au/backlog-relay/pkg/models"
)

// ConfigurationManager loads and validates the relay configuration from a
// .backlogrc YAML file in the base path.
type ConfigurationManager interface {
	LoadConfig() (*models.Config, error)
	ValidateConfig(cfg *models.Config) error
}

// viperConfigManager implements ConfigurationManager using Viper.
type viperConfigManager struct {
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager reading relative to
// basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultConfig returns the configuration used when no .backlogrc exists.
// The memory integration defaults to disabled, which selects the no-op
// integrator: items are still processed and synchronized locally.
func DefaultConfig() *models.Config {
	return &models.Config{
		DocumentPath: "product-backlog-requests.md",
		ReportDir:    ".",
		Memory: models.MemoryConfig{
			Enabled:          false,
			Timeout:          DefaultCallTimeout,
			CreatorContextID: "context-mdtvs82o-1ekq4d",
			UpdaterContextID: "context-mdtvso8o-bljl6h",
			PermissionLevel:  "edit",
		},
		Recipients: models.DefaultRecipients(),
	}
}

// LoadConfig reads .backlogrc from the base path. A missing file yields the
// defaults.
func (cm *viperConfigManager) LoadConfig() (*models.Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName(".backlogrc")
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetDefault("document.path", cfg.DocumentPath)
	v.SetDefault("report.dir", cfg.ReportDir)
	v.SetDefault("memory.enabled", cfg.Memory.Enabled)
	v.SetDefault("memory.timeout_seconds", int(cfg.Memory.Timeout/time.Second))
	v.SetDefault("memory.creator_context_id", cfg.Memory.CreatorContextID)
	v.SetDefault("memory.updater_context_id", cfg.Memory.UpdaterContextID)
	v.SetDefault("memory.permission_level", cfg.Memory.PermissionLevel)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading .backlogrc: %w", err)
	}

	cfg.DocumentPath = v.GetString("document.path")
	cfg.ReportDir = v.GetString("report.dir")
	cfg.Memory.Enabled = v.GetBool("memory.enabled")
	cfg.Memory.Command = v.GetString("memory.command")
	cfg.Memory.Args = v.GetStringSlice("memory.args")
	cfg.Memory.CreatorContextID = v.GetString("memory.creator_context_id")
	cfg.Memory.UpdaterContextID = v.GetString("memory.updater_context_id")
	cfg.Memory.PermissionLevel = v.GetString("memory.permission_level")
	cfg.Slack.WebhookURL = v.GetString("notifications.slack.webhook_url")

	if secs := v.GetInt("memory.timeout_seconds"); secs > 0 {
		cfg.Memory.Timeout = time.Duration(secs) * time.Second
	}

	// Parse the recipients section. Absent or empty keeps the defaults.
	if recipients := parseRecipients(v.Get("recipients")); len(recipients) > 0 {
		cfg.Recipients = recipients
	}

	return cfg, nil
}

func parseRecipients(raw any) []models.Recipient {
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}

	var recipients []models.Recipient
	for _, entry := range list {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		var r models.Recipient
		if role, ok := m["role"].(string); ok {
			r.Role = role
		}
		if id, ok := m["context_id"].(string); ok {
			r.ContextID = id
		}
		if r.ContextID != "" {
			recipients = append(recipients, r)
		}
	}
	return recipients
}

// ValidateConfig checks the configuration for invalid values and returns a
// clear error identifying every problem found.
func (cm *viperConfigManager) ValidateConfig(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if cfg.DocumentPath == "" {
		errs = append(errs, "document.path must not be empty")
	}
	if cfg.ReportDir == "" {
		errs = append(errs, "report.dir must not be empty")
	}
	if cfg.Memory.Enabled && cfg.Memory.Command == "" {
		errs = append(errs, "memory.command must be set when memory.enabled is true")
	}
	if cfg.Memory.Timeout < 0 {
		errs = append(errs, fmt.Sprintf("memory.timeout_seconds must be non-negative, got %s", cfg.Memory.Timeout))
	}
	for i, r := range cfg.Recipients {
		if r.ContextID == "" {
			errs = append(errs, fmt.Sprintf("recipients[%d].context_id must not be empty", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
