package styles

import (
	"image/color"
	"slices"

	lipgloss "charm.land/lipgloss/v2"
	glamouransi "github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/lucasb-eyer/go-colorful"
)

// Palette is the set of semantic colors every style is derived from.
type Palette struct {
	Primary    color.Color
	Secondary  color.Color
	Foreground color.Color
	Muted      color.Color
	Background color.Color
	Surface    color.Color
	Success    color.Color
	Warning    color.Color
	Error      color.Color
	// Unread highlights the unread message counter.
	Unread color.Color
	Light  bool
}

// DefaultTheme is the name of the default theme.
const DefaultTheme = "tokyo-night"

type themeSpec struct {
	primary, secondary, fg, muted, bg string
	success, warning, err, unread     string
	light                             bool
}

var themeSpecs = map[string]themeSpec{
	"tokyo-night": {
		primary: "#7aa2f7", secondary: "#7dcfff", fg: "#c0caf5", muted: "#565f89", bg: "#1a1b26",
		success: "#9ece6a", warning: "#e0af68", err: "#f7768e", unread: "#ff9e64",
	},
	"gruvbox": {
		primary: "#83a598", secondary: "#8ec07c", fg: "#ebdbb2", muted: "#665c54", bg: "#282828",
		success: "#b8bb26", warning: "#fabd2f", err: "#fb4934", unread: "#fe8019",
	},
	"catppuccin": {
		primary: "#89b4fa", secondary: "#94e2d5", fg: "#cdd6f4", muted: "#6c7086", bg: "#1e1e2e",
		success: "#a6e3a1", warning: "#f9e2af", err: "#f38ba8", unread: "#fab387",
	},
	"nord": {
		primary: "#88c0d0", secondary: "#81a1c1", fg: "#eceff4", muted: "#4c566a", bg: "#2e3440",
		success: "#a3be8c", warning: "#ebcb8b", err: "#bf616a", unread: "#d08770",
	},
	"paper": {
		primary: "#1d4ed8", secondary: "#0f766e", fg: "#1f2937", muted: "#6b7280", bg: "#fafaf9",
		success: "#15803d", warning: "#b45309", err: "#b91c1c", unread: "#c2410c",
		light: true,
	},
}

var themes = buildThemes()

func buildThemes() map[string]Palette {
	out := make(map[string]Palette, len(themeSpecs))
	for name, s := range themeSpecs {
		out[name] = Palette{
			Primary:    lipgloss.Color(s.primary),
			Secondary:  lipgloss.Color(s.secondary),
			Foreground: lipgloss.Color(s.fg),
			Muted:      lipgloss.Color(s.muted),
			Background: lipgloss.Color(s.bg),
			Surface:    blend(s.bg, s.fg, 0.15),
			Success:    lipgloss.Color(s.success),
			Warning:    lipgloss.Color(s.warning),
			Error:      lipgloss.Color(s.err),
			Unread:     lipgloss.Color(s.unread),
			Light:      s.light,
		}
	}
	return out
}

// blend mixes t into base in Lab space. Surfaces sit slightly off the
// background toward the text color.
func blend(base, t string, amount float64) color.Color {
	b, err := colorful.Hex(base)
	if err != nil {
		return lipgloss.Color(base)
	}
	f, err := colorful.Hex(t)
	if err != nil {
		return lipgloss.Color(base)
	}
	return lipgloss.Color(b.BlendLab(f, amount).Clamped().Hex())
}

// ThemeNames returns the built-in theme names in sorted order.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// GetPalette returns the palette for the given theme name.
func GetPalette(name string) (Palette, bool) {
	p, ok := themes[name]
	return p, ok
}

func hex(c color.Color) *string {
	if c == nil {
		return nil
	}
	cc, ok := colorful.MakeColor(c)
	if !ok {
		return nil
	}
	h := cc.Hex()
	return &h
}

// GlamourStyle returns the markdown style for the active palette, used to
// render flat details.
func GlamourStyle() glamouransi.StyleConfig {
	cfg := glamourstyles.DarkStyleConfig
	if CurrentPalette.Light {
		cfg = glamourstyles.LightStyleConfig
	}

	fg := hex(ColorForeground)
	primary := hex(ColorPrimary)
	secondary := hex(ColorSecondary)
	muted := hex(ColorMuted)

	cfg.Document.Color = fg
	cfg.Paragraph.Color = fg
	cfg.Table.Color = fg
	cfg.Strong.Color = primary

	cfg.Heading.Color = primary
	cfg.H1.Color = hex(ColorBackground)
	cfg.H1.BackgroundColor = primary
	for _, h := range []*glamouransi.StyleBlock{&cfg.H2, &cfg.H3, &cfg.H4} {
		h.Color = primary
	}

	cfg.Code.Color = secondary
	cfg.Link.Color = secondary
	cfg.LinkText.Color = secondary
	cfg.HorizontalRule.Color = muted
	cfg.BlockQuote.Color = muted

	return cfg
}
