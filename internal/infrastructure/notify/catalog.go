package notify

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"journalflow/internal/bootstrap/logging"
	"journalflow/internal/domain/editorial"
	"journalflow/internal/errs"
)

//go:embed templates.toml
var defaultCatalog []byte

const catalogVersion = 1

type templateSpec struct {
	Subject string `toml:"subject"`
	Body    string `toml:"body"`
	HTML    bool   `toml:"html"`
}

type catalogFile struct {
	Version   int                     `toml:"version"`
	Templates map[string]templateSpec `toml:"templates"`
}

type compiledTemplate struct {
	subject *template.Template
	body    *template.Template
	html    bool
}

// Message is a rendered notification ready for a transport.
type Message struct {
	Subject string
	Body    string
	HTML    bool
}

// Catalog renders intents with templates loaded from a TOML file, or from the
// built-in set when no file is configured.
type Catalog struct {
	path string

	mu        sync.RWMutex
	templates map[editorial.TemplateKey]compiledTemplate
}

func LoadCatalog(path string) (*Catalog, error) {
	c := &Catalog{path: strings.TrimSpace(path)}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the catalog file. On error the previous templates stay active.
func (c *Catalog) Reload() error {
	raw := defaultCatalog
	if c.path != "" {
		data, err := os.ReadFile(c.path)
		if err != nil {
			return errs.Wrapf(err, "read template catalog %s", c.path)
		}
		raw = data
	}

	compiled, err := parseCatalog(raw)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.templates = compiled
	c.mu.Unlock()
	return nil
}

func parseCatalog(raw []byte) (map[editorial.TemplateKey]compiledTemplate, error) {
	var file catalogFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return nil, errs.Wrap(err, "decode template catalog")
	}
	if file.Version != catalogVersion {
		return nil, fmt.Errorf("unsupported template catalog version %d", file.Version)
	}

	out := make(map[editorial.TemplateKey]compiledTemplate, len(file.Templates))
	for _, key := range editorial.TemplateKeys() {
		entry, ok := file.Templates[string(key)]
		if !ok {
			return nil, fmt.Errorf("template catalog is missing %q", key)
		}
		subject, err := template.New(string(key) + ".subject").Option("missingkey=zero").Parse(entry.Subject)
		if err != nil {
			return nil, errs.Wrapf(err, "parse %s subject", key)
		}
		body, err := template.New(string(key) + ".body").Option("missingkey=zero").Parse(entry.Body)
		if err != nil {
			return nil, errs.Wrapf(err, "parse %s body", key)
		}
		out[key] = compiledTemplate{subject: subject, body: body, html: entry.HTML}
	}
	return out, nil
}

func (c *Catalog) Render(intent editorial.Intent) (Message, error) {
	c.mu.RLock()
	tmpl, ok := c.templates[intent.TemplateKey]
	c.mu.RUnlock()
	if !ok {
		return Message{}, fmt.Errorf("unknown template %q", intent.TemplateKey)
	}

	data := map[string]string{}
	for k, v := range intent.Payload {
		data[k] = v
	}

	var subject, body bytes.Buffer
	if err := tmpl.subject.Execute(&subject, data); err != nil {
		return Message{}, errs.Wrapf(err, "render %s subject", intent.TemplateKey)
	}
	if err := tmpl.body.Execute(&body, data); err != nil {
		return Message{}, errs.Wrapf(err, "render %s body", intent.TemplateKey)
	}
	return Message{
		Subject: strings.TrimSpace(subject.String()),
		Body:    strings.TrimSpace(body.String()) + "\n",
		HTML:    tmpl.html,
	}, nil
}

// Watch reloads the catalog whenever its file changes, until ctx is done.
// It watches the parent directory so editors that replace the file are seen.
func (c *Catalog) Watch(ctx context.Context) error {
	if c.path == "" {
		return errors.New("catalog has no file to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errs.Wrap(err, "create catalog watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		return errs.Wrapf(err, "watch %s", filepath.Dir(c.path))
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "notify.catalog"), slog.String("path", c.path))
	target := filepath.Clean(c.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if err := c.Reload(); err != nil {
				logging.Warn(logCtx, "template catalog reload failed", slog.Any("err", errs.Loggable(err)))
				continue
			}
			logging.Info(logCtx, "template catalog reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn(logCtx, "template catalog watcher error", slog.Any("err", errs.Loggable(err)))
		}
	}
}
