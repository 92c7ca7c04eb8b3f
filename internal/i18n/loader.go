// loader.go — загрузка каталогов переводов из embed.FS.
package i18n

import (
	"embed"
	"fmt"
	"log/slog"
)

// localeFS — встроенные JSON-каталоги переводов.
//
//go:embed locales/*.json
var localeFS embed.FS

// Languages — языки, каталоги которых встроены в бинарник.
var Languages = []string{LangEnglish, LangIndonesian}

// Load создаёт Bundle и загружает в него все встроенные каталоги.
func Load(logger *slog.Logger) (*Bundle, error) {
	bundle := NewBundle(logger)

	for _, lang := range Languages {
		path := fmt.Sprintf("locales/%s.json", lang)
		data, err := localeFS.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("i18n: не удалось прочитать %s: %w", path, err)
		}

		if err := bundle.LoadMessages(lang, data); err != nil {
			return nil, err
		}
	}

	if logger != nil {
		logger.Info("i18n каталоги загружены", slog.Int("languages", len(Languages)))
	}
	return bundle, nil
}
