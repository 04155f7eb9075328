// Package prefs keeps UI preferences in the same persisted storage as the session.
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
)

const (
	ThemeKey          = "theme"
	chartLayoutPrefix = "chartLayout:"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// KV is the subset of storage.KV preferences need
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

type Prefs struct {
	kv KV
}

func New(kv KV) *Prefs {
	return &Prefs{kv: kv}
}

// Theme returns the saved theme, light when none or an unknown one is stored
func (p *Prefs) Theme(ctx context.Context) (Theme, error) {
	v, err := p.kv.Get(ctx, ThemeKey)
	if tverrors.Is(err, tverrors.ErrNotFound) {
		return ThemeLight, nil
	}
	if err != nil {
		return "", fmt.Errorf("[prefs Theme] %w", err)
	}
	if t := Theme(v); t.Valid() {
		return t, nil
	}
	return ThemeLight, nil
}

func (p *Prefs) SetTheme(ctx context.Context, t Theme) error {
	if !t.Valid() {
		return fmt.Errorf("[prefs SetTheme] %w: theme %q", tverrors.ErrInvalidRequest, t)
	}
	if err := p.kv.Set(ctx, ThemeKey, string(t)); err != nil {
		return fmt.Errorf("[prefs SetTheme] %w", err)
	}
	return nil
}

func chartLayoutKey(symbol string) (string, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return "", fmt.Errorf("%w: symbol is required", tverrors.ErrInvalidRequest)
	}
	return chartLayoutPrefix + symbol, nil
}

// SaveChartLayout stores the chart's layout document for symbol. The document
// is opaque to the client but must be valid JSON.
func (p *Prefs) SaveChartLayout(ctx context.Context, symbol string, layout json.RawMessage) error {
	key, err := chartLayoutKey(symbol)
	if err != nil {
		return fmt.Errorf("[prefs SaveChartLayout] %w", err)
	}
	if !json.Valid(layout) {
		return fmt.Errorf("[prefs SaveChartLayout] %w: layout is not valid JSON", tverrors.ErrInvalidRequest)
	}
	if err := p.kv.Set(ctx, key, string(layout)); err != nil {
		return fmt.Errorf("[prefs SaveChartLayout] %s: %w", symbol, err)
	}
	return nil
}

// ChartLayout returns the saved layout, tverrors.ErrNotFound if there is none
func (p *Prefs) ChartLayout(ctx context.Context, symbol string) (json.RawMessage, error) {
	key, err := chartLayoutKey(symbol)
	if err != nil {
		return nil, fmt.Errorf("[prefs ChartLayout] %w", err)
	}
	v, err := p.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("[prefs ChartLayout] %s: %w", symbol, err)
	}
	return json.RawMessage(v), nil
}

func (p *Prefs) DeleteChartLayout(ctx context.Context, symbol string) error {
	key, err := chartLayoutKey(symbol)
	if err != nil {
		return fmt.Errorf("[prefs DeleteChartLayout] %w", err)
	}
	if err := p.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("[prefs DeleteChartLayout] %s: %w", symbol, err)
	}
	return nil
}
