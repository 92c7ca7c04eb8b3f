package i18n

import (
	"encoding/json"
	"testing"
	"time"
)

func TestLoad_CatalogsHaveSameKeys(t *testing.T) {
	catalogs := make(map[string]map[string]string)
	for _, lang := range Languages {
		data, err := localeFS.ReadFile("locales/" + lang + ".json")
		if err != nil {
			t.Fatalf("чтение каталога %s: %v", lang, err)
		}
		var m map[string]string
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("парсинг каталога %s: %v", lang, err)
		}
		catalogs[lang] = m
	}

	for key := range catalogs[LangEnglish] {
		if _, ok := catalogs[LangIndonesian][key]; !ok {
			t.Errorf("ключ %q отсутствует в id.json", key)
		}
	}
	for key := range catalogs[LangIndonesian] {
		if _, ok := catalogs[LangEnglish][key]; !ok {
			t.Errorf("ключ %q отсутствует в en.json", key)
		}
	}
}

func TestBundle_TranslateFallback(t *testing.T) {
	b := NewBundle(nil)
	if err := b.LoadMessages("en", []byte(`{"a": "A-en", "b": "B-en"}`)); err != nil {
		t.Fatal(err)
	}
	if err := b.LoadMessages("id", []byte(`{"a": "A-id"}`)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		lang, key, want string
	}{
		{"id", "a", "A-id"},
		{"id", "b", "B-en"},
		{"fr", "a", "A-en"},
		{"en", "missing", "missing"},
	}
	for _, tt := range tests {
		if got := b.Translate(tt.lang, tt.key); got != tt.want {
			t.Errorf("Translate(%q, %q) = %q, ожидали %q", tt.lang, tt.key, got, tt.want)
		}
	}

	if err := b.LoadMessages("xx", []byte(`not json`)); err == nil {
		t.Error("LoadMessages() принял невалидный JSON")
	}
}

func TestBundle_FormatDate(t *testing.T) {
	b, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() ошибка: %v", err)
	}

	date := time.Date(2026, time.August, 5, 0, 0, 0, 0, time.UTC)
	if got := b.FormatDate(LangEnglish, date); got != "05 August 2026" {
		t.Errorf("FormatDate(en) = %q", got)
	}
	if got := b.FormatDate(LangIndonesian, date); got != "05 Agustus 2026" {
		t.Errorf("FormatDate(id) = %q", got)
	}
}

func TestBundle_Translatef(t *testing.T) {
	b, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() ошибка: %v", err)
	}

	got := b.Translatef(LangIndonesian, "milestone.ONE_MONTH_BEFORE.body", "Budi", "KITAS", "09 April 2026")
	want := "Halo Budi,\n\nDokumen KITAS Anda akan expired dalam 1 bulan (09 April 2026). Segera lakukan perpanjangan dokumen."
	if got != want {
		t.Errorf("Translatef() = %q, ожидали %q", got, want)
	}
}

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		header, want string
	}{
		{"id-ID,id;q=0.9,en;q=0.8", "id"},
		{"en-US,en;q=0.9", "en"},
		{"ru-RU", "en"},
		{"", "en"},
	}
	for _, tt := range tests {
		if got := MatchLanguage(tt.header); got != tt.want {
			t.Errorf("MatchLanguage(%q) = %q, ожидали %q", tt.header, got, tt.want)
		}
	}
}
