package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/steveyegge/filemon/internal/dashboard"
	"github.com/steveyegge/filemon/internal/journal"
	"github.com/steveyegge/filemon/internal/monitor"
)

// runner is what every watcher backend looks like to this command.
type runner interface {
	Start() error
	Stop() error
}

var watchCmd = &cobra.Command{
	Use:   "watch <path>",
	Short: "Watch a file and report its lifecycle and content events",
	Long: `Watch a single file and report every lifecycle and content event on it:
creation, deletion, rename, modification, and metadata changes. The watch
survives the file being deleted and recreated.

Example usage:
  filemon watch /var/log/app.log
  filemon watch --journal events.db --dashboard-port 8080 config.yaml
  filemon watch --backend fsnotify notes.txt

Events are printed to stdout, one line each. With --journal they are also
recorded to an SQLite database; with --dashboard-port they are broadcast to
WebSocket clients in real time.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := loadOptions(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		path, err := filepath.Abs(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid path %q: %v\n", args[0], err)
			os.Exit(1)
		}

		logger := newLogger(opts)

		config := &monitor.Config{
			BufferSize:    opts.BufferSize,
			RetryAttempts: opts.RetryAttempts,
			RetryBackoff:  opts.RetryBackoff,
			Logger:        logger,
		}

		// Optional journal sink
		var jrnl *journal.Journal
		if opts.Journal != "" {
			jrnl, err = journal.Open(opts.Journal)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to open journal: %v\n", err)
				os.Exit(1)
			}
			logger.Printf("Journaling events to %s", jrnl.Path())
		}

		// Optional dashboard sink
		var (
			server  *dashboard.Server
			handler *dashboard.Handler
		)
		if opts.DashboardPort > 0 {
			server = dashboard.NewServer(&dashboard.Config{
				Port:   opts.DashboardPort,
				Logger: logger,
			})
			if err := server.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to start dashboard: %v\n", err)
				os.Exit(1)
			}
			handler = dashboard.NewHandler(server, logger)
			fmt.Printf("Dashboard: ws://localhost:%d/ws\n", opts.DashboardPort)
		}

		printer := newEventPrinter(opts.NoColor)
		config.OnEvent = func(rec monitor.Record) {
			printer(rec)
			if jrnl != nil {
				if err := jrnl.Append(rec); err != nil {
					logger.Printf("Journal error: %v", err)
				}
			}
			if handler != nil {
				handler.OnEvent(rec)
			}
		}

		var watcher runner
		switch opts.Backend {
		case "native":
			watcher, err = newNativeRunner(path, config)
		case "fsnotify":
			watcher, err = monitor.NewPortable(path, config)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := watcher.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Watching %s (backend: %s)\n", path, opts.Backend)
		fmt.Println("Press Ctrl+C to stop...")

		// Wait for interrupt signal
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		<-ctx.Done()

		// Graceful shutdown
		fmt.Println("\nShutting down...")
		if err := watcher.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}
		if server != nil {
			if err := server.Stop(); err != nil {
				fmt.Fprintf(os.Stderr, "Error stopping dashboard: %v\n", err)
			}
		}
		if jrnl != nil {
			if err := jrnl.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Error closing journal: %v\n", err)
			}
		}
	},
}

// newLogger builds the activity logger, routing through lumberjack rotation
// when a log file is configured.
func newLogger(opts *options) *log.Logger {
	var out io.Writer = os.Stderr
	if opts.LogFile != "" {
		out = &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
	}
	return log.New(out, "[filemon] ", log.LstdFlags)
}

// newEventPrinter returns the stdout event sink. Lines are colorized by event
// kind when stdout is a terminal.
func newEventPrinter(noColor bool) func(monitor.Record) {
	output := termenv.NewOutput(os.Stdout)
	color := !noColor && term.IsTerminal(int(os.Stdout.Fd()))

	return func(rec monitor.Record) {
		kind := rec.Kind
		if kind == "" {
			kind = fmt.Sprintf("mask(%#x)", rec.Mask)
		}
		line := fmt.Sprintf("%s  %-13s %-9s %s",
			rec.Time.Format(time.RFC3339), kind, rec.Source, rec.Name)

		if !color {
			fmt.Println(line)
			return
		}

		styled := output.String(line)
		switch rec.Kind {
		case "create", "moved_to":
			styled = styled.Foreground(termenv.ANSIGreen)
		case "delete", "delete_self", "moved_from", "move_self":
			styled = styled.Foreground(termenv.ANSIRed)
		case "modify", "attrib", "close_write":
			styled = styled.Foreground(termenv.ANSIYellow)
		}
		fmt.Println(styled)
	}
}

// registerWatchFlags registers the watch command's flags on cmd.
func registerWatchFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Config file (default: ./filemon.yaml if present)")
	cmd.Flags().Int("buffer-size", 64*1024, "Read buffer capacity in bytes")
	cmd.Flags().Int("retry-attempts", 3, "Consecutive read failures to retry before giving up")
	cmd.Flags().Duration("retry-backoff", 100*time.Millisecond, "Delay between read retries")
	cmd.Flags().String("backend", defaultBackend(), "Watcher backend: native or fsnotify")
	cmd.Flags().String("journal", "", "Record events to an SQLite database at this path")
	cmd.Flags().Int("dashboard-port", 0, "Serve a WebSocket event dashboard on this port (0 disables)")
	cmd.Flags().String("log-file", "", "Write activity logs to this file with rotation")
	cmd.Flags().Bool("no-color", false, "Disable colored event output")
}

func init() {
	registerWatchFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}
