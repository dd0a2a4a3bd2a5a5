package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/dgnsrekt/voices/internal/voices"
	"github.com/mattn/go-runewidth"
	te "github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Output formats of the list command.
const (
	outputTable    = "table"
	outputJSON     = "json"
	outputYAML     = "yaml"
	outputMarkdown = "markdown"
)

var (
	outputFormats = []string{outputTable, outputJSON, outputYAML, outputMarkdown}

	output     string
	categories []string

	listCmd = &cobra.Command{
		Use:     "list",
		Short:   "Print the voices offered by the server",
		Long:    paragraph(fmt.Sprintf("\n%s the voices offered by the server once and exit.", keyword("Print"))),
		Example: paragraph("voices list\nvoices list --output json\nvoices list --category custom,natural-female"),
		Args:    cobra.NoArgs,
		RunE:    runList,
	}
)

func init() {
	listCmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: "+strings.Join(outputFormats, ", "))
	listCmd.Flags().StringSliceVarP(&categories, "category", "c", nil, "only list voices in these categories")

	_ = viper.BindPFlag("output", listCmd.Flags().Lookup("output"))
	viper.SetDefault("output", outputTable)
}

func runList(cmd *cobra.Command, _ []string) error {
	output = viper.GetString("output")
	if !slices.Contains(outputFormats, output) {
		return fmt.Errorf("unknown output format %q: use one of %s", output, strings.Join(outputFormats, ", "))
	}
	wanted, err := parseCategories(categories)
	if err != nil {
		return err
	}

	loader, err := newLoader()
	if err != nil {
		return err
	}
	defer loader.Close()

	loader.Activate()
	loader.Wait()

	state := loader.State()
	if state.HasError() {
		return errors.New(state.Error)
	}

	width := 0
	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	if isTerminal {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width = w
		}
	}

	return writeVoices(cmd.OutOrStdout(), filterCategories(state.Voices, wanted), listOptions{
		format:     output,
		width:      width,
		isTerminal: isTerminal,
	})
}

// parseCategories validates category names given on the command line.
func parseCategories(names []string) ([]voices.Category, error) {
	var out []voices.Category
	for _, name := range names {
		c := voices.Category(strings.TrimSpace(name))
		if !c.Valid() {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		out = append(out, c)
	}
	return out, nil
}

// filterCategories keeps the voices in one of the wanted categories. No
// wanted categories keeps everything.
func filterCategories(vs []voices.Voice, wanted []voices.Category) []voices.Voice {
	if len(wanted) == 0 {
		return vs
	}
	out := []voices.Voice{}
	for _, v := range vs {
		if slices.Contains(wanted, v.Category) {
			out = append(out, v)
		}
	}
	return out
}

type listOptions struct {
	format     string
	width      int // 0 disables truncation
	isTerminal bool
}

// listing mirrors the server's response body.
type listing struct {
	Voices []voices.Voice `json:"voices" yaml:"voices"`
}

func writeVoices(w io.Writer, vs []voices.Voice, opts listOptions) error {
	switch opts.format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(listing{Voices: vs}); err != nil {
			return fmt.Errorf("unable to encode voices: %w", err)
		}
		return nil

	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(listing{Voices: vs}); err != nil {
			return fmt.Errorf("unable to encode voices: %w", err)
		}
		return enc.Close() //nolint:wrapcheck

	case outputMarkdown:
		return writeMarkdown(w, vs, opts)

	default:
		return writeTable(w, vs, opts)
	}
}

// writeTable prints voices grouped by category with aligned columns.
func writeTable(w io.Writer, vs []voices.Voice, opts listOptions) error {
	if len(vs) == 0 {
		_, err := fmt.Fprintln(w, subtle("No voices."))
		return err //nolint:wrapcheck
	}

	nameWidth := 0
	for _, v := range vs {
		nameWidth = max(nameWidth, runewidth.StringWidth(v.Name))
	}
	typeWidth := runewidth.StringWidth(string(voices.TypeEmbeddings))

	var b strings.Builder
	for i, g := range voices.GroupByCategory(vs) {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(category(g.Category.Label()) + "\n")
		for _, v := range g.Voices {
			path := v.Path
			if avail := opts.width - nameWidth - typeWidth - 6; opts.width > 0 && avail > 0 {
				path = runewidth.Truncate(path, avail, "…")
			}
			b.WriteString("  " + runewidth.FillRight(v.Name, nameWidth))
			b.WriteString("  " + runewidth.FillRight(string(v.Type), typeWidth))
			b.WriteString("  " + subtle(path) + "\n")
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("unable to write to writer: %w", err)
	}
	return nil
}

// markdownTable renders voices as a GitHub flavored markdown table.
func markdownTable(vs []voices.Voice) string {
	escape := strings.NewReplacer("|", `\|`, "\n", " ").Replace

	var b strings.Builder
	b.WriteString("| Name | Type | Category | Path |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, g := range voices.GroupByCategory(vs) {
		for _, v := range g.Voices {
			fmt.Fprintf(&b, "| %s | %s | %s | `%s` |\n",
				escape(v.Name), escape(string(v.Type)), escape(g.Category.Label()), escape(v.Path))
		}
	}
	return b.String()
}

func writeMarkdown(w io.Writer, vs []voices.Voice, opts listOptions) error {
	if len(vs) == 0 {
		_, err := fmt.Fprintln(w, "No voices.")
		return err //nolint:wrapcheck
	}

	// We want to use a special no-TTY style, when stdout is not a terminal
	style := styles.NoTTYStyle
	if opts.isTerminal {
		style = styles.LightStyle
		if te.HasDarkBackground() {
			style = styles.DarkStyle
		}
	}

	wrap := opts.width
	if wrap <= 0 || wrap > 120 {
		wrap = 120
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return fmt.Errorf("unable to create renderer: %w", err)
	}

	out, err := r.Render(markdownTable(vs))
	if err != nil {
		return fmt.Errorf("unable to render markdown: %w", err)
	}
	if _, err := fmt.Fprint(w, out); err != nil {
		return fmt.Errorf("unable to write to writer: %w", err)
	}
	return nil
}
