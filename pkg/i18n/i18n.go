// Package i18n resolves user-facing strings from embedded locale catalogs.
// Lookup order: exact language, default language, then the key itself so a
// missing entry stays visible instead of failing the handler.
package i18n

import (
	"embed"
	"encoding/json"
	"io/fs"
	"strings"

	"partnerbot/pkg/config"

	"go.uber.org/zap"
)

//go:embed locales/*.json
var localeFS embed.FS

var locales = map[string]map[string]string{}

func init() {
	entries, err := fs.Glob(localeFS, "locales/*.json")
	if err != nil {
		return
	}
	for _, path := range entries {
		raw, err := localeFS.ReadFile(path)
		if err != nil {
			continue
		}
		catalog := map[string]string{}
		if err := json.Unmarshal(raw, &catalog); err != nil {
			// skip a broken catalog, never fail startup over it
			zap.L().Warn("i18n: skipping broken locale", zap.String("path", path), zap.Error(err))
			continue
		}
		lang := strings.TrimSuffix(strings.TrimPrefix(path, "locales/"), ".json")
		locales[lang] = catalog
	}
}

// Langs returns the supported language tags in keyboard order.
func Langs() []string {
	return config.SupportedLangs
}

func pickLang(lang string) string {
	if lang == "" {
		return config.DefaultLang
	}
	for _, l := range config.SupportedLangs {
		if l == lang {
			return lang
		}
	}
	return config.DefaultLang
}

// T resolves key for lang, falling back to the default language and finally
// to the key itself.
func T(key, lang string) string {
	l := pickLang(lang)

	if text, ok := locales[l][key]; ok {
		return text
	}
	if l != config.DefaultLang {
		if text, ok := locales[config.DefaultLang][key]; ok {
			return text
		}
	}
	return key
}

// Tf resolves key and substitutes {name} placeholders from params.
func Tf(key, lang string, params map[string]string) string {
	text := T(key, lang)
	for name, value := range params {
		text = strings.ReplaceAll(text, "{"+name+"}", value)
	}
	return text
}

// HasKey reports whether key resolves in lang or the default catalog.
func HasKey(key, lang string) bool {
	l := pickLang(lang)
	if _, ok := locales[l][key]; ok {
		return true
	}
	if l != config.DefaultLang {
		_, ok := locales[config.DefaultLang][key]
		return ok
	}
	return false
}
