package models

import "time"

// Recipient maps a team role to the persona context that receives
// notifications for newly processed backlog items.
type Recipient struct {
	Role      string `yaml:"role"`
	ContextID string `yaml:"context_id"`
}

// DefaultRecipients returns the standard scrum-team notification targets used
// when no recipients are configured.
func DefaultRecipients() []Recipient {
	return []Recipient{
		{Role: "ProductOwner", ContextID: "context-mdtvs82o-1ekq4d"},
		{Role: "ScrumMaster", ContextID: "context-mdtvso8o-bljl6h"},
		{Role: "TechnicalLead", ContextID: "context-mdtvu1aq-e07dnk"},
		{Role: "QAEngineer", ContextID: "context-mdtvvnz6-exfq23"},
	}
}

// MemoryConfig configures the connection to the external associative memory
// server. When Enabled is false the relay runs with a no-op integrator and
// items are still processed locally.
type MemoryConfig struct {
	Enabled bool `yaml:"enabled"`
	// Command and Args spawn the stdio MCP server process.
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	// Timeout bounds each downstream call; expiry is treated as an ordinary
	// best-effort failure.
	Timeout time.Duration `yaml:"timeout"`
	// CreatorContextID is the persona recorded as the author of stored records.
	CreatorContextID string `yaml:"creator_context_id"`
	// UpdaterContextID is the persona recorded on sprint summary updates.
	UpdaterContextID string `yaml:"updater_context_id"`
	// PermissionLevel is the access level attached to stored records.
	PermissionLevel string `yaml:"permission_level"`
}

// SlackConfig configures the optional integration-failure webhook.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// Config holds the merged runtime configuration for the backlog relay.
type Config struct {
	// DocumentPath is the backlog document this run reads and rewrites.
	DocumentPath string `yaml:"document_path"`
	// ReportDir is where per-run report files are written.
	ReportDir string `yaml:"report_dir"`

	Memory     MemoryConfig `yaml:"memory"`
	Recipients []Recipient  `yaml:"recipients"`
	Slack      SlackConfig  `yaml:"slack"`
}
