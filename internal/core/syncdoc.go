package core

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/valter-silva-au/backlog-relay/pkg/models"
)

// statusMarkerNew is the literal text fragment encoding the NEW state. The
// rewrite is a textual transform keyed on this marker, not on item identity:
// when two records carry an identical marker, one pass rewrites only the
// first occurrence in the document. Duplicate markers are a known hazard.
const statusMarkerNew = "**ステータス**: NEW"

// statusBlockPattern matches the three-line aggregate status footer, replaced
// wholesale on every synchronization.
var statusBlockPattern = regexp.MustCompile(`- \*\*最終確認日時\*\*: .+\n- \*\*処理済みアイテム数\*\*: \d+\n- \*\*未処理アイテム数\*\*: \d+`)

// SyncResult describes one synchronization pass over the document text.
type SyncResult struct {
	Content      string
	Replaced     int // status markers rewritten
	RemainingNew int // NEW markers still present after the pass
}

// SyncDocument rewrites the document text to reflect the transitioned items:
// one NEW status marker becomes a PROCESSED marker (with the processed_at
// stamp) per processed item, and the aggregate status block is refreshed with
// the checked-at time, this run's processed count, and the remaining NEW count.
func SyncDocument(content string, processed []*models.Item, checkedAt time.Time) SyncResult {
	result := SyncResult{}

	for _, item := range processed {
		if item.Status != models.StatusProcessed {
			continue
		}
		if !strings.Contains(content, statusMarkerNew) {
			break
		}
		marker := fmt.Sprintf("**ステータス**: PROCESSED (%s)", item.ProcessedAt)
		content = strings.Replace(content, statusMarkerNew, marker, 1)
		result.Replaced++
	}

	result.RemainingNew = strings.Count(content, statusMarkerNew)

	block := fmt.Sprintf("- **最終確認日時**: %s\n- **処理済みアイテム数**: %d\n- **未処理アイテム数**: %d",
		checkedAt.Format(models.ProcessedAtLayout), len(processed), result.RemainingNew)
	content = statusBlockPattern.ReplaceAllLiteralString(content, block)

	result.Content = content
	return result
}

// LoadDocument reads the full backlog document.
func LoadDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SaveDocument replaces the document atomically: the new content is written
// to a temporary file in the same directory and renamed over the original, so
// an interrupted run can never leave the document truncated or half-updated.
func SaveDocument(path, content string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("saving document: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving document: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving document: closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving document: setting permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving document: replacing %s: %w", path, err)
	}
	return nil
}
