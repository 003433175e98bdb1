package notify

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journalflow/internal/domain/editorial"
)

func sampleIntent(key editorial.TemplateKey) editorial.Intent {
	return editorial.Intent{
		ID:              1,
		IdempotencyKey:  "5d1f0c8e-key",
		ManuscriptID:    9,
		TemplateKey:     key,
		RecipientUserID: 3,
		Payload: map[string]string{
			"title":          "On Graphs",
			"tracking_code":  "JRNL-2026-ABC123",
			"recipient_name": "Ada",
			"action_url":     "https://journal.example.org/manuscripts/JRNL-2026-ABC123",
		},
	}
}

func TestDefaultCatalogCoversEveryTemplate(t *testing.T) {
	catalog, err := LoadCatalog("")
	require.NoError(t, err)

	for _, key := range editorial.TemplateKeys() {
		msg, err := catalog.Render(sampleIntent(key))
		require.NoError(t, err, key)
		assert.Contains(t, msg.Subject, "JRNL-2026-ABC123", key)
		assert.NotContains(t, msg.Body, "<no value>", key)
	}
}

func TestCatalogRenderSubmissionAck(t *testing.T) {
	catalog, err := LoadCatalog("")
	require.NoError(t, err)

	intent := sampleIntent(editorial.TemplateSubmissionAck)
	intent.Payload["revision"] = "true"
	msg, err := catalog.Render(intent)
	require.NoError(t, err)

	assert.Equal(t, "[JRNL-2026-ABC123] Submission received", msg.Subject)
	assert.Contains(t, msg.Body, "Dear Ada,")
	assert.Contains(t, msg.Body, "the revised version of your manuscript \"On Graphs\"")
	assert.False(t, msg.HTML)
}

func TestCatalogRejectsIncompleteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 1\n[templates.published]\nsubject = \"x\"\nbody = \"y\"\n"), 0o644))

	_, err := LoadCatalog(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestCatalogRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 7\n"), 0o644))

	_, err := LoadCatalog(path)
	require.Error(t, err)
}

func customCatalog(subject string) []byte {
	var b strings.Builder
	b.WriteString("version = 1\n")
	for _, key := range editorial.TemplateKeys() {
		b.WriteString("[templates." + string(key) + "]\n")
		b.WriteString("subject = \"" + subject + " {{.title}}\"\n")
		b.WriteString("body = \"Hello {{.recipient_name}}\"\n")
	}
	return []byte(b.String())
}

func TestCatalogWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.toml")
	require.NoError(t, os.WriteFile(path, customCatalog("v1"), 0o644))

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- catalog.Watch(ctx)
	}()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, customCatalog("v2"), 0o644)
		msg, err := catalog.Render(sampleIntent(editorial.TemplatePublished))
		return err == nil && msg.Subject == "v2 On Graphs"
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("Watch() did not stop")
	}
}

func TestCatalogKeepsTemplatesOnBadReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.toml")
	require.NoError(t, os.WriteFile(path, customCatalog("v1"), 0o644))

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("not = [toml"), 0o644))
	require.Error(t, catalog.Reload())

	msg, err := catalog.Render(sampleIntent(editorial.TemplatePublished))
	require.NoError(t, err)
	assert.Equal(t, "v1 On Graphs", msg.Subject)
}
