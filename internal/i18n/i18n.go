package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultLocale is used whenever a requested locale has no catalog.
const DefaultLocale = "en-US"

//go:embed locales/*.yaml
var embeddedLocales embed.FS

// Translator looks up display strings by key for a locale.
type Translator interface {
	Translate(key, locale string, params map[string]string) string
}

// Catalog is one locale's strings plus the calendar name tables.
type Catalog struct {
	Tag           string            `yaml:"tag"`
	MonthYear     string            `yaml:"month_year"`
	Months        []string          `yaml:"months"`
	WeekdaysShort []string          `yaml:"weekdays_short"`
	Messages      map[string]string `yaml:"messages"`
}

// Bundle holds all catalogs and resolves arbitrary locale strings to one of
// them.
type Bundle struct {
	tags     []language.Tag
	catalogs []*Catalog
	matcher  language.Matcher
}

// NewBundle loads every catalog under dir in fsys. The first catalog whose tag
// matches DefaultLocale becomes the fallback.
func NewBundle(fsys fs.FS, dir string) (*Bundle, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}

	var def *Catalog
	var rest []*Catalog
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		var c Catalog
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		if err := c.validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		if def == nil && c.Tag == DefaultLocale {
			def = &c
			continue
		}
		rest = append(rest, &c)
	}
	if def == nil {
		return nil, fmt.Errorf("no catalog for default locale %s", DefaultLocale)
	}

	b := &Bundle{catalogs: append([]*Catalog{def}, rest...)}
	for _, c := range b.catalogs {
		b.tags = append(b.tags, language.Make(c.Tag))
	}
	// The matcher returns index 0 (the default) when nothing matches.
	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}

func (c *Catalog) validate() error {
	if c.Tag == "" {
		return fmt.Errorf("missing tag")
	}
	if _, err := language.Parse(c.Tag); err != nil {
		return fmt.Errorf("bad tag %q: %w", c.Tag, err)
	}
	if len(c.Months) != 12 {
		return fmt.Errorf("want 12 month names, got %d", len(c.Months))
	}
	if len(c.WeekdaysShort) != 7 {
		return fmt.Errorf("want 7 weekday names, got %d", len(c.WeekdaysShort))
	}
	return nil
}

var (
	defaultBundle     *Bundle
	defaultBundleOnce sync.Once
)

// Default returns the bundle built from the embedded catalogs.
func Default() *Bundle {
	defaultBundleOnce.Do(func() {
		b, err := NewBundle(embeddedLocales, "locales")
		if err != nil {
			// Embedded data is part of the binary; this only breaks at build time.
			panic(err)
		}
		defaultBundle = b
	})
	return defaultBundle
}

// Resolve picks the catalog for locale. Unknown or malformed locales resolve to
// the default catalog.
func (b *Bundle) Resolve(locale string) *Catalog {
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return b.catalogs[0]
	}
	_, idx, conf := b.matcher.Match(tag)
	if conf == language.No {
		return b.catalogs[0]
	}
	return b.catalogs[idx]
}

// MatchAcceptLanguage returns the catalog tag that best serves an
// Accept-Language header. ok is false when the header is malformed or none
// of its languages has a catalog.
func (b *Bundle) MatchAcceptLanguage(header string) (tag string, ok bool) {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return "", false
	}
	_, idx, conf := b.matcher.Match(tags...)
	if conf == language.No {
		return "", false
	}
	return b.catalogs[idx].Tag, true
}

// Translate implements Translator. Missing keys fall back to the default
// catalog and then to the key itself.
func (b *Bundle) Translate(key, locale string, params map[string]string) string {
	msg, ok := b.Resolve(locale).Messages[key]
	if !ok {
		msg, ok = b.catalogs[0].Messages[key]
	}
	if !ok {
		return key
	}
	return interpolate(msg, params)
}

// MonthName returns the full month name in locale.
func (b *Bundle) MonthName(locale string, m time.Month) string {
	return b.Resolve(locale).Months[m-1]
}

// ShortWeekday returns the abbreviated weekday name in locale.
func (b *Bundle) ShortWeekday(locale string, d time.Weekday) string {
	return b.Resolve(locale).WeekdaysShort[d]
}

// MonthYear renders "Month YYYY" using the catalog's layout.
func (b *Bundle) MonthYear(locale string, year int, m time.Month) string {
	c := b.Resolve(locale)
	return interpolate(c.MonthYear, map[string]string{
		"month": c.Months[m-1],
		"year":  fmt.Sprintf("%d", year),
	})
}

func interpolate(msg string, params map[string]string) string {
	if len(params) == 0 {
		return msg
	}
	pairs := make([]string, 0, len(params)*2)
	for k, v := range params {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}
