package i18n

import (
	"testing"

	"partnerbot/pkg/config"

	"github.com/stretchr/testify/require"
)

func TestTResolvesExactLanguage(t *testing.T) {
	require.Equal(t, "🇷🇺 Русский", T("lang.btn.ru", "ru"))
}

func TestTFallsBackToDefault(t *testing.T) {
	// The English catalog is partial; unknown keys resolve from Russian.
	got := T("info.text", "en")
	require.NotEqual(t, "info.text", got)
	require.Equal(t, T("info.text", "ru"), got)
}

func TestTUnknownLanguageUsesDefault(t *testing.T) {
	require.Equal(t, T("start.title", "ru"), T("start.title", "xx"))
	require.Equal(t, T("start.title", "ru"), T("start.title", ""))
}

func TestTMissingKeyStaysVisible(t *testing.T) {
	require.Equal(t, "no.such.key", T("no.such.key", "ru"))
}

func TestTfSubstitutesPlaceholders(t *testing.T) {
	// A key absent from every catalog passes through, so the substitution
	// itself is what is under test.
	got := Tf("hello {name}", "ru", map[string]string{"name": "Ivan"})
	require.Equal(t, "hello Ivan", got)
}

func TestEveryLangHasButtonLabel(t *testing.T) {
	for _, tag := range config.SupportedLangs {
		require.True(t, HasKey("lang.btn."+tag, config.DefaultLang), "lang.btn.%s", tag)
	}
}
