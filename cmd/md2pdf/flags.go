package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	flag "github.com/spf13/pflag"

	md2pdf "github.com/alnah/go-md2pdf-live"
	"github.com/alnah/go-md2pdf-live/preview"
)

// Watch defaults.
const (
	defaultPollInterval = 250 * time.Millisecond
	minPollInterval     = 10 * time.Millisecond
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// pageFlags holds page layout flags.
type pageFlags struct {
	format       string
	margin       string
	landscape    bool
	noBackground bool
}

// options turns the flags into conversion options. A single margin applies
// to every side.
func (p pageFlags) options() md2pdf.Options {
	o := md2pdf.Options{
		PageFormat: p.format,
		Landscape:  p.landscape,
	}
	if p.margin != "" {
		o.Margins = &md2pdf.Margins{Top: p.margin, Right: p.margin, Bottom: p.margin, Left: p.margin}
	}
	if p.noBackground {
		off := false
		o.PrintBackground = &off
	}
	return o
}

// serveFlags holds all flags for the serve command.
type serveFlags struct {
	common      commonFlags
	host        string
	port        int
	printConfig bool
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common  commonFlags
	page    pageFlags
	output  string
	title   string
	timeout time.Duration
}

// watchFlags holds all flags for the watch command.
type watchFlags struct {
	common   commonFlags
	page     pageFlags
	output   string
	title    string
	server   string
	debounce time.Duration
	interval time.Duration
}

// doctorFlags holds all flags for the doctor command.
type doctorFlags struct {
	config string
	json   bool
	server string
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show detailed output")
}

// addPageFlags adds page layout flags to a FlagSet.
func addPageFlags(fs *flag.FlagSet, f *pageFlags) {
	fs.StringVarP(&f.format, "format", "p", "", "page format: a4, a3, a5, letter, legal, tabloid")
	fs.StringVar(&f.margin, "margin", "", "margin on every side, e.g. 1in, 2cm, 20mm")
	fs.BoolVar(&f.landscape, "landscape", false, "landscape orientation")
	fs.BoolVar(&f.noBackground, "no-background", false, "do not print background colors and images")
}

// newFlagSet creates a FlagSet that reports errors through the returned
// error only; usage goes to stderr.
func newFlagSet(name string, stderr io.Writer, usage func(io.Writer)) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() { usage(stderr) }
	return fs
}

// parse runs fs.Parse and classifies failures as usage errors.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return nil
}

// parseServeFlags parses serve command flags.
func parseServeFlags(args []string, stderr io.Writer) (*serveFlags, error) {
	f := &serveFlags{}
	fs := newFlagSet("serve", stderr, printServeUsage)
	addCommonFlags(fs, &f.common)
	fs.StringVar(&f.host, "host", "", "listen host (overrides server.host)")
	fs.IntVar(&f.port, "port", 0, "listen port (overrides server.port and PORT)")
	fs.BoolVar(&f.printConfig, "print-config", false, "print the effective config and exit")

	if err := parse(fs, args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: serve takes no arguments, got %v", ErrUsage, fs.Args())
	}
	return f, nil
}

// parseConvertFlags parses convert command flags and returns positional args.
func parseConvertFlags(args []string, stderr io.Writer) (*convertFlags, []string, error) {
	f := &convertFlags{}
	fs := newFlagSet("convert", stderr, printConvertUsage)
	addCommonFlags(fs, &f.common)
	addPageFlags(fs, &f.page)
	fs.StringVarP(&f.output, "output", "o", "", "output file or directory")
	fs.StringVarP(&f.title, "title", "t", "", "document title (default: file name)")
	fs.DurationVar(&f.timeout, "timeout", 0, "render timeout, e.g. 30s, 2m (default from config)")

	if err := parse(fs, args); err != nil {
		return nil, nil, err
	}
	if f.timeout < 0 {
		return nil, nil, fmt.Errorf("%w: --timeout must be positive", ErrUsage)
	}
	return f, fs.Args(), nil
}

// parseWatchFlags parses watch command flags and returns positional args.
func parseWatchFlags(args []string, stderr io.Writer) (*watchFlags, []string, error) {
	f := &watchFlags{}
	fs := newFlagSet("watch", stderr, printWatchUsage)
	addCommonFlags(fs, &f.common)
	addPageFlags(fs, &f.page)
	fs.StringVarP(&f.output, "output", "o", "", "output file (default: input with .pdf)")
	fs.StringVarP(&f.title, "title", "t", "", "document title")
	fs.StringVarP(&f.server, "server", "s", "", "render through a running service, e.g. http://localhost:3001")
	fs.DurationVar(&f.debounce, "debounce", preview.DefaultQuietPeriod, "quiet period after the last edit")
	fs.DurationVar(&f.interval, "interval", defaultPollInterval, "how often the file is checked for changes")

	if err := parse(fs, args); err != nil {
		return nil, nil, err
	}
	if f.debounce <= 0 {
		return nil, nil, fmt.Errorf("%w: --debounce must be positive", ErrUsage)
	}
	if f.interval < minPollInterval {
		return nil, nil, fmt.Errorf("%w: --interval must be at least %s", ErrUsage, minPollInterval)
	}
	return f, fs.Args(), nil
}

// parseDoctorFlags parses doctor command flags.
func parseDoctorFlags(args []string, stderr io.Writer) (*doctorFlags, error) {
	f := &doctorFlags{}
	fs := newFlagSet("doctor", stderr, printDoctorUsage)
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVar(&f.json, "json", false, "machine-readable output")
	fs.StringVarP(&f.server, "server", "s", "", "also check a running service")

	if err := parse(fs, args); err != nil {
		return nil, err
	}
	return f, nil
}
