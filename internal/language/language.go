package language

import (
	"fmt"
	"sort"
	"strings"
)

// Options — поддерживаемые языки маршрутизации с отображаемыми названиями.
// Конфигурация, не поведение: ядро сверяет только коды.
var Options = map[string]string{
	"en": "English",
	"es": "Español",
	"fr": "Français",
	"de": "Deutsch",
	"pt": "Português",
	"ru": "Русский",
	"tr": "Türkçe",
	"ar": "العربية",
	"id": "Indonesia",
	"hi": "हिन्दी",
}

const Default = "en"

// nameToCode — нормализация свободного ввода агентов ("English, German" -> "en,de").
var nameToCode = map[string]string{
	"english": "en", "german": "de", "spanish": "es", "french": "fr",
	"portuguese": "pt", "russian": "ru", "turkish": "tr", "arabic": "ar",
	"indonesian": "id", "hindi": "hi", "italian": "it", "dutch": "nl",
	"polish": "pl", "swedish": "se", "norwegian": "no", "danish": "dk",
	"finnish": "fi", "greek": "gr", "ukrainian": "ua", "thai": "th",
	"korean": "kr", "japanese": "jp", "chinese": "cn",
}

// Supported — входит ли код в набор опций маршрутизации.
func Supported(code string) bool {
	_, ok := Options[strings.ToLower(strings.TrimSpace(code))]
	return ok
}

// Codes возвращает отсортированный список поддерживаемых кодов.
func Codes() []string {
	out := make([]string, 0, len(Options))
	for c := range Options {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Normalize принимает список языков через запятую (названия или коды)
// и возвращает канонический список кодов. Неизвестные языки — ошибка.
func Normalize(raw string) (string, error) {
	var codes []string
	var invalid []string
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if code, ok := nameToCode[name]; ok {
			codes = append(codes, code)
			continue
		}
		if len(name) == 2 {
			codes = append(codes, name)
			continue
		}
		invalid = append(invalid, name)
	}
	if len(invalid) > 0 {
		return "", fmt.Errorf("unsupported languages: %s", strings.Join(invalid, ", "))
	}
	return strings.Join(codes, ","), nil
}

// Split разбирает хранимый список кодов "en,de" в слайс. Пустая строка — nil.
func Split(stored string) []string {
	if strings.TrimSpace(stored) == "" {
		return nil
	}
	var out []string
	for _, c := range strings.Split(stored, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
