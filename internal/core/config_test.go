package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/backlog-relay/pkg/models"
)

func TestLoadConfig_NoFile(t *testing.T) {
	cm := NewConfigurationManager(t.TempDir())

	cfg, err := cm.LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DocumentPath != "product-backlog-requests.md" {
		t.Errorf("unexpected document path %q", cfg.DocumentPath)
	}
	if cfg.Memory.Enabled {
		t.Error("memory integration must default to disabled")
	}
	if cfg.Memory.Timeout != DefaultCallTimeout {
		t.Errorf("unexpected default timeout %s", cfg.Memory.Timeout)
	}
	if len(cfg.Recipients) != 4 {
		t.Errorf("expected 4 default recipients, got %d", len(cfg.Recipients))
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	content := `document:
  path: backlog/requests.md
report:
  dir: reports
memory:
  enabled: true
  command: chroma-mcp
  args: ["--client-type", "persistent"]
  timeout_seconds: 10
  permission_level: read
notifications:
  slack:
    webhook_url: https://hooks.slack.com/services/T000/B000/XXX
recipients:
  - role: ProductOwner
    context_id: context-aaa
  - role: ScrumMaster
    context_id: context-bbb
`
	if err := os.WriteFile(filepath.Join(dir, ".backlogrc.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := NewConfigurationManager(dir).LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DocumentPath != "backlog/requests.md" {
		t.Errorf("unexpected document path %q", cfg.DocumentPath)
	}
	if cfg.ReportDir != "reports" {
		t.Errorf("unexpected report dir %q", cfg.ReportDir)
	}
	if !cfg.Memory.Enabled || cfg.Memory.Command != "chroma-mcp" {
		t.Errorf("memory section not applied: %+v", cfg.Memory)
	}
	if len(cfg.Memory.Args) != 2 || cfg.Memory.Args[0] != "--client-type" {
		t.Errorf("unexpected memory args %v", cfg.Memory.Args)
	}
	if cfg.Memory.Timeout != 10*time.Second {
		t.Errorf("unexpected timeout %s", cfg.Memory.Timeout)
	}
	if cfg.Memory.PermissionLevel != "read" {
		t.Errorf("unexpected permission level %q", cfg.Memory.PermissionLevel)
	}
	if cfg.Slack.WebhookURL == "" {
		t.Error("slack webhook not applied")
	}
	if len(cfg.Recipients) != 2 || cfg.Recipients[1].ContextID != "context-bbb" {
		t.Errorf("recipients not applied: %+v", cfg.Recipients)
	}
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".backlogrc.yaml"), []byte("report:\n  dir: out\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := NewConfigurationManager(dir).LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ReportDir != "out" {
		t.Errorf("unexpected report dir %q", cfg.ReportDir)
	}
	if cfg.DocumentPath != "product-backlog-requests.md" {
		t.Errorf("default document path lost: %q", cfg.DocumentPath)
	}
	if cfg.Memory.CreatorContextID != "context-mdtvs82o-1ekq4d" {
		t.Errorf("default creator context lost: %q", cfg.Memory.CreatorContextID)
	}
	if len(cfg.Recipients) != 4 {
		t.Errorf("default recipients lost: %d", len(cfg.Recipients))
	}
}

func TestValidateConfig(t *testing.T) {
	cm := NewConfigurationManager(t.TempDir())

	if err := cm.ValidateConfig(DefaultConfig()); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}

	bad := DefaultConfig()
	bad.DocumentPath = ""
	bad.Memory.Enabled = true
	bad.Memory.Timeout = -time.Second
	bad.Recipients = []models.Recipient{{Role: "QAEngineer"}}

	err := cm.ValidateConfig(bad)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		"document.path must not be empty",
		"memory.command must be set",
		"timeout_seconds must be non-negative",
		"recipients[0].context_id must not be empty",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("validation error missing %q: %v", want, err)
		}
	}
}

func TestValidateConfig_Nil(t *testing.T) {
	if err := NewConfigurationManager(t.TempDir()).ValidateConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
