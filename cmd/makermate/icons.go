package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"makermate/internal/icons"
	"makermate/internal/storage"
)

var (
	iconSize        int
	iconStrokeWidth float64
	iconStroke      string
	iconFill        string
	iconSquare      bool
	iconAnim        string
	iconFormat      string
	iconFromFile    string
	iconSave        bool
)

var iconsCmd = &cobra.Command{
	Use:   "icons",
	Short: "Generate SVG icons for canvas apps",
}

var iconsListCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List built-in icons matching a name or tag",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIconsList,
}

var iconsRenderCmd = &cobra.Command{
	Use:   "render [name]",
	Short: "Render an icon as SVG, a data URI or a Power Apps formula",
	Long: `Render a built-in icon, or the body of an SVG file with --from-file.
Render options default to the last saved ones; --save stores the options used.

Examples:
  makermate icons render check --stroke "#16a34a" --size 32
  makermate icons render settings --anim spin --format powerapps
  makermate icons render --from-file logo.svg --format datauri`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIconsRender,
}

func init() {
	rootCmd.AddCommand(iconsCmd)
	iconsCmd.AddCommand(iconsListCmd, iconsRenderCmd)

	f := iconsRenderCmd.Flags()
	f.IntVar(&iconSize, "size", 24, "width and height in pixels")
	f.Float64Var(&iconStrokeWidth, "stroke-width", 2, "stroke width")
	f.StringVar(&iconStroke, "stroke", "", "stroke color")
	f.StringVar(&iconFill, "fill", "", "fill color")
	f.BoolVar(&iconSquare, "square", false, "square line caps and joins")
	f.StringVar(&iconAnim, "anim", "", "animation (none, spin, pulse, per)")
	f.StringVar(&iconFormat, "format", "svg", "output format (svg, datauri, powerapps)")
	f.StringVar(&iconFromFile, "from-file", "", "SVG file to take the body from")
	f.BoolVar(&iconSave, "save", false, "remember these options")
}

func runIconsList(cmd *cobra.Command, args []string) error {
	for _, ic := range icons.Search(queryArg(args)) {
		fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", ic.Name, strings.Join(ic.Tags, ", "))
	}
	return nil
}

func findIcon(name string) (icons.Icon, error) {
	for _, ic := range icons.Builtins() {
		if strings.EqualFold(ic.Name, name) {
			return ic, nil
		}
	}
	return icons.Icon{}, fmt.Errorf("unknown icon %q", name)
}

func renderOptions(cmd *cobra.Command, base icons.Options) (icons.Options, error) {
	flags := cmd.Flags()
	opts := base
	if flags.Changed("size") {
		opts.Size = iconSize
	}
	if flags.Changed("stroke-width") {
		opts.StrokeWidth = iconStrokeWidth
	}
	if flags.Changed("stroke") {
		opts.Stroke = iconStroke
	}
	if flags.Changed("fill") {
		opts.Fill = iconFill
	}
	if flags.Changed("square") {
		opts.Rounded = !iconSquare
	}
	if flags.Changed("anim") {
		switch a := icons.Animation(iconAnim); a {
		case icons.AnimNone, icons.AnimSpin, icons.AnimPulse, icons.AnimPerIcon:
			opts.Anim = a
		default:
			return opts, fmt.Errorf("unknown animation %q", iconAnim)
		}
	}
	if opts.Size <= 0 {
		return opts, fmt.Errorf("size must be positive")
	}
	return opts, nil
}

func runIconsRender(cmd *cobra.Command, args []string) error {
	if (len(args) == 0) == (iconFromFile == "") {
		return fmt.Errorf("give either an icon name or --from-file")
	}

	ctx := contextOf(cmd)
	return withStore(func(store storage.Store) error {
		opts, err := renderOptions(cmd, icons.LoadOptions(ctx, store))
		if err != nil {
			return err
		}

		var svg string
		if iconFromFile != "" {
			doc, err := os.ReadFile(iconFromFile)
			if err != nil {
				return err
			}
			svg = icons.Build(icons.ExtractInner(string(doc)), opts)
		} else {
			ic, err := findIcon(args[0])
			if err != nil {
				return err
			}
			svg = icons.Render(ic, opts)
		}

		switch iconFormat {
		case "svg":
		case "datauri":
			svg = icons.DataURI(svg)
		case "powerapps":
			svg = icons.PowerAppsFormula(svg)
		default:
			return fmt.Errorf("unknown format %q", iconFormat)
		}
		fmt.Fprintln(cmd.OutOrStdout(), svg)

		if iconSave {
			icons.SaveOptions(ctx, store, opts)
		}
		return nil
	})
}
