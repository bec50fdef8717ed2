package domain

import (
	"fmt"

	"golang.org/x/text/language"
)

// Language is one entry of the fixed translation catalog.
type Language struct {
	Name string // e.g. "German"
	Code string // e.g. "de"
}

// TranslatedName is a localized venue name, sent as name:<code>.
type TranslatedName struct {
	Code  string
	Value string
}

// Translate builds a localized name in this language.
func (l Language) Translate(text string) TranslatedName {
	return TranslatedName{Code: l.Code, Value: text}
}

// LanguageCatalog maps display names to codes. Names and codes are unique.
type LanguageCatalog struct {
	ordered []Language
	byName  map[string]Language
	byCode  map[string]Language
}

func NewLanguageCatalog() *LanguageCatalog {
	return &LanguageCatalog{
		byName: map[string]Language{},
		byCode: map[string]Language{},
	}
}

// Register adds a language. A repeated name or code fails with
// ErrDuplicateTranslation; a code that is not an ISO 639 base language fails too.
func (c *LanguageCatalog) Register(name, code string) (Language, error) {
	if _, ok := c.byName[name]; ok {
		return Language{}, fmt.Errorf("%w: name %q already registered", ErrDuplicateTranslation, name)
	}
	if _, ok := c.byCode[code]; ok {
		return Language{}, fmt.Errorf("%w: code %q already registered", ErrDuplicateTranslation, code)
	}
	if _, err := language.ParseBase(code); err != nil {
		return Language{}, fmt.Errorf("translation %q: invalid code %q: %w", name, code, err)
	}
	l := Language{Name: name, Code: code}
	c.ordered = append(c.ordered, l)
	c.byName[name] = l
	c.byCode[code] = l
	return l, nil
}

func (c *LanguageCatalog) ByCode(code string) (Language, bool) {
	l, ok := c.byCode[code]
	return l, ok
}

func (c *LanguageCatalog) ByName(name string) (Language, bool) {
	l, ok := c.byName[name]
	return l, ok
}

// All returns the languages in registration order.
func (c *LanguageCatalog) All() []Language {
	out := make([]Language, len(c.ordered))
	copy(out, c.ordered)
	return out
}

var catalog = NewLanguageCatalog()

func mustRegister(name, code string) Language {
	l, err := catalog.Register(name, code)
	if err != nil {
		panic(err)
	}
	return l
}

var (
	Belarusian = mustRegister("Belarusian", "be")
	Bulgarian  = mustRegister("Bulgarian", "bg")
	Chinese    = mustRegister("Chinese", "zh")
	Croatian   = mustRegister("Croatian", "hr")
	Czech      = mustRegister("Czech", "cs")
	English    = mustRegister("English", "en")
	German     = mustRegister("German", "de")
	Greek      = mustRegister("Greek", "el")
	Hungarian  = mustRegister("Hungarian", "hu")
	Italian    = mustRegister("Italian", "it")
	Japanese   = mustRegister("Japanese", "ja")
	Portuguese = mustRegister("Portuguese", "pt")
	Romanian   = mustRegister("Romanian", "ro")
	Russian    = mustRegister("Russian", "ru")
	Slovak     = mustRegister("Slovak", "sk")
	Slovenian  = mustRegister("Slovenian", "sl")
	Turkish    = mustRegister("Turkish", "tr")
	Ukrainian  = mustRegister("Ukrainian", "uk")
)

func LanguageByCode(code string) (Language, bool) { return catalog.ByCode(code) }
func LanguageByName(name string) (Language, bool) { return catalog.ByName(name) }
func Languages() []Language                       { return catalog.All() }
