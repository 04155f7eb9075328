package prefs_test

import (
	"context"
	"encoding/json"
	"testing"

	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
	"github.com/jrsteele09/tradevortex-client/prefs"
	"github.com/jrsteele09/tradevortex-client/sessions"
	"github.com/jrsteele09/tradevortex-client/storage/memory"
	"github.com/stretchr/testify/require"
)

func TestThemeDefaultsToLight(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	p := prefs.New(kv)

	theme, err := p.Theme(ctx)
	require.NoError(t, err)
	require.Equal(t, prefs.ThemeLight, theme)

	require.NoError(t, p.SetTheme(ctx, prefs.ThemeDark))
	theme, err = p.Theme(ctx)
	require.NoError(t, err)
	require.Equal(t, prefs.ThemeDark, theme)

	require.ErrorIs(t, p.SetTheme(ctx, "sepia"), tverrors.ErrInvalidRequest)

	require.NoError(t, kv.Set(ctx, prefs.ThemeKey, "sepia"))
	theme, err = p.Theme(ctx)
	require.NoError(t, err)
	require.Equal(t, prefs.ThemeLight, theme)
}

func TestChartLayout(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	p := prefs.New(kv)

	_, err := p.ChartLayout(ctx, "KRW-BTC")
	require.ErrorIs(t, err, tverrors.ErrNotFound)

	layout := json.RawMessage(`{"panes":[{"indicator":"MA","period":20}]}`)
	require.NoError(t, p.SaveChartLayout(ctx, "KRW-BTC", layout))
	got, err := p.ChartLayout(ctx, "KRW-BTC")
	require.NoError(t, err)
	require.JSONEq(t, string(layout), string(got))

	raw, err := kv.Get(ctx, "chartLayout:KRW-BTC")
	require.NoError(t, err)
	require.JSONEq(t, string(layout), raw)

	require.ErrorIs(t, p.SaveChartLayout(ctx, "KRW-BTC", json.RawMessage(`{`)), tverrors.ErrInvalidRequest)
	require.ErrorIs(t, p.SaveChartLayout(ctx, " ", layout), tverrors.ErrInvalidRequest)

	require.NoError(t, p.DeleteChartLayout(ctx, "KRW-BTC"))
	_, err = p.ChartLayout(ctx, "KRW-BTC")
	require.ErrorIs(t, err, tverrors.ErrNotFound)
}

// Preferences live next to the session; clearing the session leaves them alone
func TestLogoutKeepsPreferences(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	p := prefs.New(kv)
	store := sessions.NewPersistedStore(kv)

	require.NoError(t, store.Set(ctx, sessions.Session{AccessToken: "A1", RefreshToken: "R1"}))
	require.NoError(t, p.SetTheme(ctx, prefs.ThemeDark))
	require.NoError(t, store.Clear(ctx))

	theme, err := p.Theme(ctx)
	require.NoError(t, err)
	require.Equal(t, prefs.ThemeDark, theme)
}
