// Package icons renders stroke-style SVG icons for Power Apps image controls.
package icons

import (
	"context"
	"embed"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"makermate/internal/storage"
)

//go:embed data/icons.yaml
var catalog embed.FS

// Animation kinds. AnimPerIcon uses each icon's own animation.
type Animation string

const (
	AnimNone    Animation = "none"
	AnimSpin    Animation = "spin"
	AnimPulse   Animation = "pulse"
	AnimPerIcon Animation = "per"
)

// Icon is one built-in icon. Inner is the markup inside the root <svg>.
type Icon struct {
	Name  string    `json:"name" yaml:"name"`
	Tags  []string  `json:"tags" yaml:"tags"`
	Inner string    `json:"inner" yaml:"inner"`
	Anim  Animation `json:"anim,omitempty" yaml:"anim,omitempty"`
}

// Options control how an icon is rendered
type Options struct {
	Size        int       `json:"size"`
	StrokeWidth float64   `json:"strokeWidth"`
	Stroke      string    `json:"stroke"`
	Fill        string    `json:"fill"`
	Rounded     bool      `json:"rounded"`
	Anim        Animation `json:"anim"`
}

// DefaultOptions renders 24px icons with a slate stroke and no fill
func DefaultOptions() Options {
	return Options{Size: 24, StrokeWidth: 2, Stroke: "#334155", Fill: "none", Rounded: true, Anim: AnimNone}
}

// Builtins returns the built-in icon catalog
func Builtins() []Icon {
	b, err := catalog.ReadFile("data/icons.yaml")
	if err != nil {
		panic(fmt.Sprintf("icons: missing catalog: %v", err))
	}
	var out []Icon
	if err := yaml.Unmarshal(b, &out); err != nil {
		panic(fmt.Sprintf("icons: bad catalog: %v", err))
	}
	return out
}

// Search matches icon names and tags against query, case-insensitively
func Search(query string) []Icon {
	all := Builtins()
	term := strings.ToLower(strings.TrimSpace(query))
	if term == "" {
		return all
	}
	out := []Icon{}
	for _, ic := range all {
		if strings.Contains(ic.Name, term) || matchesTag(ic.Tags, term) {
			out = append(out, ic)
		}
	}
	return out
}

func matchesTag(tags []string, term string) bool {
	for _, t := range tags {
		if strings.Contains(t, term) {
			return true
		}
	}
	return false
}

const (
	spinElement  = `<animateTransform attributeName="transform" type="rotate" from="0 12 12" to="360 12 12" dur="2s" repeatCount="indefinite" />`
	pulseElement = `<animateTransform attributeName="transform" type="scale" values="1;1.12;1" dur="1.4s" repeatCount="indefinite" additive="replace"/>`
)

// Build wraps inner in a 24x24 root element using opts. AnimPerIcon renders
// without animation; use Render for catalog icons.
func Build(inner string, opts Options) string {
	lineCap, lineJoin := "square", "miter"
	if opts.Rounded {
		lineCap, lineJoin = "round", "round"
	}

	var anim string
	switch opts.Anim {
	case AnimSpin:
		anim = spinElement
	case AnimPulse:
		anim = pulseElement
	}

	return fmt.Sprintf(`<svg width="%d" height="%d" viewBox="0 0 24 24" fill="%s" stroke="%s" stroke-width="%s" stroke-linecap="%s" stroke-linejoin="%s" xmlns="http://www.w3.org/2000/svg">%s%s</svg>`,
		opts.Size, opts.Size, opts.Fill, opts.Stroke,
		strconv.FormatFloat(opts.StrokeWidth, 'f', -1, 64), lineCap, lineJoin, anim, inner)
}

// Render builds a catalog icon, resolving AnimPerIcon to the icon's own
// animation
func Render(ic Icon, opts Options) string {
	if opts.Anim == AnimPerIcon {
		opts.Anim = ic.Anim
	}
	return Build(ic.Inner, opts)
}

var svgBody = regexp.MustCompile(`(?is)^.*?<svg[^>]*>(.*?)</svg>.*$`)

// ExtractInner returns the markup inside the first root element of an
// uploaded SVG document, or the document itself when there is none
func ExtractInner(doc string) string {
	if m := svgBody.FindStringSubmatch(doc); m != nil {
		return m[1]
	}
	return doc
}

// DataURI encodes svg as a data URI. Only ASCII letters, digits and
// -_.!~* are left unescaped.
func DataURI(svg string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.WriteString("data:image/svg+xml;utf8,")
	for i := 0; i < len(svg); i++ {
		c := svg[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*", c) >= 0
}

// PowerAppsFormula returns an Image property formula that renders svg
func PowerAppsFormula(svg string) string {
	return `"data:image/svg+xml;utf8," & EncodeUrl("` + strings.ReplaceAll(svg, `"`, `""`) + `")`
}

// Storage keys of the persisted render options
const (
	sizeKey        = "mm.icons.size"
	strokeKey      = "mm.icons.stroke"
	strokeColorKey = "mm.icons.strokeColor"
	fillColorKey   = "mm.icons.fillColor"
	roundedKey     = "mm.icons.rounded"
	animKey        = "mm.icons.anim"
)

// LoadOptions reads the persisted render options, defaulting each one
func LoadOptions(ctx context.Context, s storage.Store) Options {
	opts := DefaultOptions()
	if n, err := strconv.Atoi(storage.GetString(ctx, s, sizeKey, "")); err == nil {
		opts.Size = n
	}
	if f, err := strconv.ParseFloat(storage.GetString(ctx, s, strokeKey, ""), 64); err == nil {
		opts.StrokeWidth = f
	}
	opts.Stroke = storage.GetString(ctx, s, strokeColorKey, opts.Stroke)
	opts.Fill = storage.GetString(ctx, s, fillColorKey, opts.Fill)
	opts.Rounded = storage.GetString(ctx, s, roundedKey, "1") == "1"
	opts.Anim = Animation(storage.GetString(ctx, s, animKey, string(AnimNone)))
	return opts
}

// SaveOptions persists opts
func SaveOptions(ctx context.Context, s storage.Store, opts Options) {
	rounded := "0"
	if opts.Rounded {
		rounded = "1"
	}
	storage.SetString(ctx, s, sizeKey, strconv.Itoa(opts.Size))
	storage.SetString(ctx, s, strokeKey, strconv.FormatFloat(opts.StrokeWidth, 'f', -1, 64))
	storage.SetString(ctx, s, strokeColorKey, opts.Stroke)
	storage.SetString(ctx, s, fillColorKey, opts.Fill)
	storage.SetString(ctx, s, roundedKey, rounded)
	storage.SetString(ctx, s, animKey, string(opts.Anim))
}
