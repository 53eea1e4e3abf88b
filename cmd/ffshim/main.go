// Package main provides the CLI entry point for ffshim.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tubetape/ffshim"
	"github.com/tubetape/ffshim/internal/discovery"
	"github.com/tubetape/ffshim/internal/errors"
	"github.com/tubetape/ffshim/internal/fflib"
	"github.com/tubetape/ffshim/internal/reporter"
	"github.com/tubetape/ffshim/internal/util"
)

const (
	appName    = "ffshim"
	appVersion = "0.1.0"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// usageError marks flag and argument mistakes, which exit with 2.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }

// cli holds the parsed global flags and the exit code chosen by the
// subcommand that ran.
type cli struct {
	out      io.Writer
	errOut   io.Writer
	libDir   string
	verbose  bool
	json     bool
	events   string
	exitCode int

	eventsFile *os.File
}

func run(args []string, out, errOut io.Writer) int {
	c := &cli{out: out, errOut: errOut}
	defer c.closeEvents()
	root := c.rootCommand()
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		if _, ok := err.(usageError); ok || strings.HasPrefix(err.Error(), "unknown command") {
			return ffshim.ExitUsage
		}
		return ffshim.ExitFailure
	}
	return c.exitCode
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "FFmpeg runtime binding, audio clip export and ffprobe/ffmpeg emulation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.out)
	root.SetErr(c.errOut)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return c.openEvents()
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.libDir, "lib-dir", "", "Directory holding the FFmpeg shared libraries (default $FFSHIM_FFMPEG_DIR)")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose output for troubleshooting")
	pf.BoolVar(&c.json, "json", false, "Emit NDJSON events instead of human-readable output")
	pf.StringVar(&c.events, "events", "", "Also append NDJSON events to this file")

	root.AddCommand(
		c.probeCommand(),
		c.convertCommand(),
		c.exportCommand(),
		c.infoCommand(),
		c.versionCommand(),
		c.legacyCommand(),
		c.capabilitiesCommand(),
	)
	return root
}

func (c *cli) openEvents() error {
	if c.events == "" {
		return nil
	}
	f, err := os.OpenFile(c.events, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open events file: %w", err)
	}
	c.eventsFile = f
	return nil
}

func (c *cli) closeEvents() {
	if c.eventsFile != nil {
		c.eventsFile.Close()
		c.eventsFile = nil
	}
}

func (c *cli) reporter() reporter.Reporter {
	var r reporter.Reporter
	if c.json {
		r = reporter.NewJSONReporterWithWriter(c.out)
	} else {
		r = reporter.NewTerminalReporterWithWriters(c.out, c.errOut, c.verbose)
	}
	if c.eventsFile != nil {
		return reporter.NewCompositeReporter(r, reporter.NewJSONReporterWithWriter(c.eventsFile))
	}
	return r
}

func (c *cli) runtime(extra ...ffshim.Option) (*ffshim.Runtime, error) {
	opts := []ffshim.Option{ffshim.WithReporter(c.reporter())}
	if c.libDir != "" {
		opts = append(opts, ffshim.WithLibraryDir(c.libDir))
	}
	if c.verbose {
		opts = append(opts, ffshim.WithLogLevel("debug"))
	}
	return ffshim.New(append(opts, extra...)...)
}

// forward writes an emulated process's output and adopts its exit code.
func (c *cli) forward(stdout, stderr string, code int) {
	if stdout != "" {
		fmt.Fprint(c.out, stdout)
		if !strings.HasSuffix(stdout, "\n") {
			fmt.Fprintln(c.out)
		}
	}
	if stderr != "" {
		fmt.Fprint(c.errOut, stderr)
		if !strings.HasSuffix(stderr, "\n") {
			fmt.Fprintln(c.errOut)
		}
	}
	c.exitCode = code
}

func (c *cli) probeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "probe -- [ffprobe arguments]",
		Short: "Run an ffprobe command line in-process",
		Example: `  ffshim probe -- -bsfs
  ffshim probe -- -v quiet -show_streams -of json input.m4a`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()

			res := rt.Probe(args)
			c.forward(res.Stdout, res.Stderr, res.ExitCode)
			return nil
		},
	}
}

func (c *cli) convertCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "convert -- [ffmpeg arguments]",
		Short:   "Run an ffmpeg command line in-process",
		Example: `  ffshim convert -- -i input.webm -vn -c:a mp3 -b:a 192k -y output.mp3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()

			res := rt.Convert(args)
			c.forward(res.Stdout, res.Stderr, res.ExitCode)
			return nil
		},
	}
}

func (c *cli) exportCommand() *cobra.Command {
	var (
		start     float64
		end       float64
		format    string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "export <input> <output>",
		Short: "Export a time range of an audio file",
		Long: `Export decodes the [start, end) window of the best audio stream in <input>
and encodes it to <output>. The format follows the output extension
(mp3, aac/m4a, flac, wav) unless --format is given. When <output> is an
existing directory the clip is named after the input and the range.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return usageError{fmt.Errorf("export requires <input> and <output>, got %d argument(s)", len(args))}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("end") {
				return usageError{fmt.Errorf("--end is required")}
			}

			var (
				f        ffshim.Format
				explicit bool
			)
			if format != "" {
				parsed, err := ffshim.ParseFormat(format)
				if err != nil {
					return usageError{err}
				}
				f, explicit = parsed, true
			}

			rt, err := c.runtime(ffshim.WithOverwrite(overwrite))
			if err != nil {
				return err
			}
			defer rt.Close()

			input, output := args[0], args[1]
			if util.DirectoryExists(output) {
				if !explicit {
					f, explicit = rt.DefaultFormat(), true
				}
				output = filepath.Join(output, clipName(input, start, end, f))
			} else if err := util.EnsureDirectory(filepath.Dir(output)); err != nil {
				return err
			}

			if explicit {
				_, err = rt.ExportAs(input, output, f, start, end)
			} else {
				_, err = rt.Export(input, output, start, end)
			}
			if err != nil {
				// Already shown by the reporter.
				c.exitCode = ffshim.ExitFailure
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&start, "start", 0, "Start of the clip in seconds")
	cmd.Flags().Float64Var(&end, "end", 0, "End of the clip in seconds (exclusive)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: mp3, aac, flac or wav")
	cmd.Flags().BoolVarP(&overwrite, "overwrite", "y", false, "Replace an existing output file")
	return cmd
}

// clipName names an export written into a directory: <stem>_<start>-<end>.<ext>.
func clipName(input string, start, end float64, f ffshim.Format) string {
	return fmt.Sprintf("%s_%s-%s.%s",
		util.GetFileStem(input),
		strconv.FormatFloat(start, 'f', -1, 64),
		strconv.FormatFloat(end, 'f', -1, 64),
		f)
}

func (c *cli) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file|directory>",
		Short: "Show the audio stream parameters of a file or of every audio file in a directory",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageError{fmt.Errorf("info requires exactly one file or directory")}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			files := []string{args[0]}
			if util.DirectoryExists(args[0]) {
				found, err := discovery.FindAudioFiles(args[0])
				if err != nil {
					return err
				}
				files = found.Files
			}

			rt, err := c.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()

			failed := 0
			for _, f := range files {
				if _, err := rt.Info(f); err != nil {
					failed++
				}
			}
			if failed == 0 {
				return nil
			}
			if len(files) > 1 {
				return errors.NewOperationFailedError(fmt.Sprintf("%d of %d files could not be opened", failed, len(files)), nil)
			}
			// Already shown by the reporter.
			c.exitCode = ffshim.ExitFailure
			return nil
		},
	}
}

func (c *cli) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			sys := util.GetSystemInfo()
			fmt.Fprintf(c.out, "%s version %s (%s)\n", appName, appVersion, sys.Platform())

			rt, err := c.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()

			if v, err := rt.Version(); err != nil {
				fmt.Fprintln(c.out, "FFmpeg libraries: not loaded")
				if c.verbose {
					fmt.Fprintf(c.errOut, "  %v\n", err)
				}
			} else {
				fmt.Fprintf(c.out, "FFmpeg libraries: %s\n", rt.LibraryDir())
				for _, line := range v.Lines() {
					fmt.Fprintf(c.out, "  %s\n", line)
				}
			}

			if lv, err := rt.LegacyVersion(); err == nil && lv != "" {
				fmt.Fprintf(c.out, "Legacy library: %s\n", lv)
			} else if err != nil && c.verbose {
				fmt.Fprintf(c.errOut, "  legacy: %v\n", err)
			}
			return nil
		},
	}
}

func (c *cli) legacyCommand() *cobra.Command {
	var lib string

	cmd := &cobra.Command{
		Use:   "legacy <ffmpeg|ffprobe> -- [arguments]",
		Short: "Run ffmpeg or ffprobe from a monolithic libffmpeg build",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return usageError{fmt.Errorf("legacy requires a tool name (ffmpeg or ffprobe)")}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var extra []ffshim.Option
			if lib != "" {
				extra = append(extra, ffshim.WithLegacyLibrary(lib))
			}
			rt, err := c.runtime(extra...)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.RunLegacy(args[0], args[1:])
			if err != nil {
				return err
			}
			if res.Error != "" && c.verbose {
				fmt.Fprintf(c.errOut, "%s: %s\n", args[0], res.Error)
			}
			c.forward(res.Stdout, res.Stderr, res.ExitCode)
			return nil
		},
	}

	cmd.Flags().StringVar(&lib, "lib", "", "Path to libffmpeg (default $FFSHIM_FFMPEG_LIB or <lib-dir>/"+fflib.DefaultLibraryName()+")")
	return cmd
}

func (c *cli) capabilitiesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "Print the FFmpeg banner and bitstream filter list",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()

			res := rt.Capabilities()
			c.forward(res.Stdout, res.Stderr, ffshim.ExitOK)
			return nil
		},
	}
}
