package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Banner is shown when an interactive session starts
const Banner = "Telegram Sticker Downloader"

// Printer writes coloured status lines and panels to one stream
type Printer struct {
	out      io.Writer
	useColor bool
	renderer *lipgloss.Renderer

	cyan    *color.Color
	yellow  *color.Color
	red     *color.Color
	green   *color.Color
	magenta *color.Color
	dim     *color.Color
}

// NewPrinter creates a printer for out. Colours are used only when
// useColor is set and out is a terminal.
func NewPrinter(out io.Writer, useColor bool) *Printer {
	useColor = useColor && IsTerminal(out)

	p := &Printer{
		out:      out,
		useColor: useColor,
		renderer: lipgloss.NewRenderer(out),
		cyan:     color.New(color.FgCyan),
		yellow:   color.New(color.FgYellow),
		red:      color.New(color.FgRed),
		green:    color.New(color.FgGreen),
		magenta:  color.New(color.FgMagenta, color.Bold),
		dim:      color.New(color.Faint),
	}

	if !useColor {
		p.renderer.SetColorProfile(termenv.Ascii)
		for _, c := range []*color.Color{p.cyan, p.yellow, p.red, p.green, p.magenta, p.dim} {
			c.DisableColor()
		}
	}
	return p
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Writer returns the underlying stream
func (p *Printer) Writer() io.Writer { return p.out }

// ColorEnabled reports whether output is coloured
func (p *Printer) ColorEnabled() bool { return p.useColor }

// Renderer returns the lipgloss renderer bound to the stream
func (p *Printer) Renderer() *lipgloss.Renderer { return p.renderer }

func (p *Printer) Cyan(s string) string    { return p.cyan.Sprint(s) }
func (p *Printer) Yellow(s string) string  { return p.yellow.Sprint(s) }
func (p *Printer) Red(s string) string     { return p.red.Sprint(s) }
func (p *Printer) Green(s string) string   { return p.green.Sprint(s) }
func (p *Printer) Magenta(s string) string { return p.magenta.Sprint(s) }
func (p *Printer) Dim(s string) string     { return p.dim.Sprint(s) }

// Panel renders text in a rounded box
func (p *Printer) Panel(text string) string {
	return p.renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("6")).
		Padding(0, 1).
		Render(text)
}

// PrintBanner prints the welcome panel
func (p *Printer) PrintBanner() {
	title := p.renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("5")).Render(Banner)
	fmt.Fprintln(p.out, p.Panel(title+"\n"+p.Dim("Paste a sticker pack link, or type quit to exit")))
}

// PrintTitle prints the panel announcing a set download
func (p *Printer) PrintTitle(title string) {
	fmt.Fprintln(p.out, p.Panel("Downloading Sticker Pack: "+p.Magenta(title)))
}

// PrintError prints an error message in red
func (p *Printer) PrintError(format string, args ...interface{}) {
	fmt.Fprintln(p.out, p.Red(fmt.Sprintf(format, args...)))
}

// PrintSuccess prints a success message in green
func (p *Printer) PrintSuccess(format string, args ...interface{}) {
	fmt.Fprintln(p.out, p.Green(fmt.Sprintf(format, args...)))
}

// PrintInfo prints a label/value pair
func (p *Printer) PrintInfo(label string, value string) {
	fmt.Fprintf(p.out, "%s: %s\n", p.Cyan(label), p.Yellow(value))
}

// PrintWarning prints a warning message in yellow
func (p *Printer) PrintWarning(format string, args ...interface{}) {
	fmt.Fprintln(p.out, p.Yellow(fmt.Sprintf(format, args...)))
}

// Printf writes unstyled text
func (p *Printer) Printf(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format, args...)
}
