package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openmined/niraclient/internal/config"
	"github.com/openmined/niraclient/internal/nirasdk"
	"github.com/openmined/niraclient/internal/utils"
	"github.com/openmined/niraclient/internal/version"
	"github.com/spf13/cobra"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "nira",
		Short:         "Nira command line client",
		Version:       version.Detailed(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			return setupLogging(s.LogLevel, s.LogFile)
		},
	}

	flags := cmd.PersistentFlags()
	flags.SortFlags = false
	flags.StringP("org", "o", "", "Nira organization, e.g. example.nira.app (defaults to the configured default org)")
	flags.StringP("config", "c", config.DefaultConfigPath, "Nira client config file")
	flags.Bool("print-requests", false, "Dump every HTTP request to stderr")
	flags.Bool("print-responses", false, "Dump every HTTP response to stderr")
	flags.Bool("token-exchange", false, "Trade the API key for a short lived token before calling the API")
	flags.Int("token-expires", 0, fmt.Sprintf("Requested token lifetime in seconds (max %d)", nirasdk.MaxTokenExpiresIn))
	flags.String("log-level", "warn", "Log level: debug, info, warn or error")
	flags.String("log-file", "", "Also write logs to this file")

	flags.String("auth-url", "", "Nira auth server")
	flags.String("upload-service-host", "", "Override the upload service host returned by the API")
	flags.String("base-url", "", "Override the API base URL")
	_ = flags.MarkHidden("auth-url")
	_ = flags.MarkHidden("upload-service-host")
	_ = flags.MarkHidden("base-url")

	cmd.AddCommand(
		newConfigureCmd(),
		newAssetCmd(),
		newGroupCmd(),
		newUserCmd(),
		newVersionCmd(),
	)
	return cmd
}

var logFile io.Closer

func setupLogging(level, path string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q", level)
	}

	stderrHandler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})

	if path == "" {
		slog.SetDefault(slog.New(stderrHandler))
		return nil
	}

	path, err := utils.ResolvePath(path)
	if err != nil {
		return err
	}
	if err := utils.EnsureParent(path); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	interceptor := utils.NewLogInterceptor(file)
	logFile = interceptor

	fileHandler := slog.NewTextHandler(interceptor, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		// the interceptor stamps each line
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})
	slog.SetDefault(slog.New(utils.NewMultiLogHandler(stderrHandler, fileHandler)))
	return nil
}

func main() {
	if err := loadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "%s failed to load .env: %v\n", red.Render("WARN"), err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if logFile != nil {
		_ = logFile.Close()
	}

	if err != nil {
		var ee *exitError
		if !errors.As(err, &ee) || ee.err != nil {
			printError(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

// exitError sets the process exit code. A nil err means the command already
// reported the failure on stdout.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %s\n", red.Bold(true).Render("ERROR"), err)

	var te *nirasdk.TransportError
	if errors.As(err, &te) && te.Body != "" {
		fmt.Fprintf(w, "%s %s\n", gray.Render("response:"), strings.TrimSpace(te.Body))
	}
}
