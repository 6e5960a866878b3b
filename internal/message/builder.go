// Package message renders commit messages for changed assets.
package message

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/blackwell-systems/wpgh/internal/asset"
)

const (
	installFormat = "Install %s: %s.\n\nName: %s\nVersion: %s"
	updateFormat  = "Update %s: %s.\n\nName: %s\nNew version: %s\nPrevious version: %s"
)

// Fields is the data available to override templates.
type Fields struct {
	ID              string
	Name            string
	Version         string
	PreviousVersion string
}

// Overrides holds user templates keyed by kind, then operation. Empty
// strings fall back to the built-in format.
type Overrides map[asset.Kind]map[asset.Operation]string

type key struct {
	kind asset.Kind
	op   asset.Operation
}

// Builder renders commit messages.
type Builder struct {
	custom map[key]*template.Template
}

// New parses override templates up front so a bad template fails before
// any package manager work happens.
func New(overrides Overrides) (*Builder, error) {
	b := &Builder{custom: make(map[key]*template.Template)}
	for kind, ops := range overrides {
		if !kind.Valid() {
			return nil, fmt.Errorf("message template for unknown kind %q", kind)
		}
		for op, text := range ops {
			if !op.Valid() {
				return nil, fmt.Errorf("message template for unknown operation %q", op)
			}
			if strings.TrimSpace(text) == "" {
				continue
			}
			name := string(kind) + "." + string(op)
			tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %s message template: %w", name, err)
			}
			b.custom[key{kind, op}] = tmpl
		}
	}
	return b, nil
}

// Render builds the message for rec. Update messages require rec.Before.
func (b *Builder) Render(op asset.Operation, kind asset.Kind, rec asset.ChangeRecord) (string, error) {
	if !op.Valid() || !kind.Valid() {
		return "", fmt.Errorf("%w: cannot render %q %q", asset.ErrInvalidArguments, kind, op)
	}

	f := Fields{ID: rec.ID, Name: rec.After.Name, Version: rec.After.Version}
	if op == asset.Update {
		prev, err := rec.PreviousVersion()
		if err != nil {
			return "", err
		}
		f.PreviousVersion = prev
	}

	if b != nil {
		if tmpl, ok := b.custom[key{kind, op}]; ok {
			var sb strings.Builder
			if err := tmpl.Execute(&sb, f); err != nil {
				return "", fmt.Errorf("failed to render %s message for %s: %w", tmpl.Name(), rec.ID, err)
			}
			return sb.String(), nil
		}
	}

	if op == asset.Install {
		return fmt.Sprintf(installFormat, kind, f.ID, f.Name, f.Version), nil
	}
	return fmt.Sprintf(updateFormat, kind, f.ID, f.Name, f.Version, f.PreviousVersion), nil
}
