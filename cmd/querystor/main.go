package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/term"
	"github.com/joacominatel/querystor/internal/app"
	"github.com/joacominatel/querystor/internal/config"
	"github.com/joacominatel/querystor/internal/database"
	"github.com/joacominatel/querystor/internal/database/mariadb"
	_ "github.com/joacominatel/querystor/internal/database/postgres"
	"github.com/joacominatel/querystor/internal/monitor"
	"github.com/joacominatel/querystor/internal/tui"
	"github.com/joacominatel/querystor/internal/tui/results"
	"github.com/joacominatel/querystor/internal/tui/theme"
)

const usage = `Usage: querystor [command] [flags]

Commands:
  serve          Record file changes in the database (default)
  console        Open the interactive query console
  query          Run one template and print the result
  set-password   Store the database password in the OS keyring

Run "querystor <command> -h" for command flags.
`

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "querystor",
	})

	if err := run(os.Args[1:], logger); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			logger.Error(err)
		}
		os.Exit(1)
	}
}

func run(args []string, logger *log.Logger) error {
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		return serve(args, logger)
	case "console":
		return console(args, logger)
	case "query":
		return query(args, logger)
	case "set-password":
		return setPassword(args, logger)
	case "help":
		fmt.Fprint(os.Stdout, usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	path := fs.String("config", config.FileName, "configuration file")
	return fs, path
}

// loadConfig reads the configuration, resolves the keyring password and
// applies the configured log level to logger.
func loadConfig(path string, logger *log.Logger) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, &app.ErrConfig{Cause: err}
	}

	if err := cfg.ResolvePassword(); err != nil {
		logger.Warn("keyring unavailable, using configured password", "err", err)
	}

	level, err := cfg.Level()
	if err != nil {
		return nil, &app.ErrConfig{Cause: err}
	}
	logger.SetLevel(level)

	if err := mariadb.SetLogger(logger); err != nil {
		logger.Warn("driver logger", "err", err)
	}
	return cfg, nil
}

func connect(ctx context.Context, cfg *config.Config, logger *log.Logger) (*app.Service, error) {
	logger.Info("connecting", "target", cfg.DisplayString(), "connectors", database.Connectors())
	return app.Connect(ctx, cfg, logger)
}

func serve(args []string, logger *log.Logger) error {
	fs, path := newFlagSet("serve")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*path, logger)
	if err != nil {
		return err
	}
	paths := cfg.Paths()
	if len(paths) == 0 {
		return &app.ErrConfig{Cause: fmt.Errorf("%s is empty, nothing to watch", config.KeyWatchPaths)}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("close session", "err", err)
		}
	}()

	if err := svc.EnsureSchema(ctx); err != nil {
		return err
	}

	mon, err := monitor.New(logger)
	if err != nil {
		return err
	}
	defer mon.Close()

	for _, p := range paths {
		if err := mon.AddPath(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
	}

	logger.Info("recording changes", "table", svc.EventsTable())
	err = mon.Run(ctx, svc.RecordChange)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

func console(args []string, logger *log.Logger) error {
	fs, path := newFlagSet("console")
	exportDir := fs.String("export-dir", "", "directory for result exports")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*path, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	svc, err := connect(ctx, cfg, logger)
	cancel()
	if err != nil {
		return err
	}
	defer svc.Close()

	// the alt screen owns the terminal until the program exits
	logger.SetOutput(io.Discard)
	defer logger.SetOutput(os.Stderr)

	p := tea.NewProgram(tui.NewModel(svc, tui.WithExportDir(*exportDir)),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}

func query(args []string, logger *log.Logger) error {
	fs, path := newFlagSet("query")
	template := fs.String("t", "", "query template, e.g. 'SELECT * FROM ?n WHERE id = ?i'")
	timeout := fs.Duration("timeout", 30*time.Second, "query timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *template == "" {
		fs.Usage()
		return errors.New("query: -t is required")
	}

	cfg, err := loadConfig(*path, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	rs, err := svc.Query(ctx, *template, fs.Args()...)
	if err != nil {
		return err
	}
	if rs.NumFields() == 0 {
		fmt.Fprintln(os.Stdout, "OK")
		return nil
	}
	fmt.Fprintln(os.Stdout, renderTable(rs))
	fmt.Fprintf(os.Stdout, "%d row(s)\n", rs.NumRows())
	return nil
}

// renderTable draws rs as a bordered table with NULL styled apart from text.
func renderTable(rs *database.ResultSet) string {
	rows := make([][]string, rs.NumRows())
	for i := range rows {
		rows[i] = rs.Row(i).Strings(results.NullText)
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers(rs.FieldNames()...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return theme.StyleHeader.Padding(0, 1)
			case !rs.Value(row, col).Valid:
				return theme.StyleNull.Padding(0, 1)
			default:
				return base
			}
		}).
		String()
}

func setPassword(args []string, logger *log.Logger) error {
	fs, path := newFlagSet("set-password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// read without environment overrides so Save below writes back only
	// what the file already holds
	cfg, err := config.LoadFile(*path)
	if err != nil {
		return &app.ErrConfig{Cause: err}
	}

	fmt.Fprintf(os.Stderr, "Password for %s: ", cfg.Username)
	password, err := readPassword()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	if err := config.StorePassword(cfg.Username, password); err != nil {
		return err
	}

	// the keyring now holds it, so keep it out of the file
	if cfg.Password != "" {
		cfg.Password = ""
		if err := config.Save(*path, cfg); err != nil {
			return &app.ErrConfig{Cause: err}
		}
	}
	logger.Info("password stored in keyring", "user", cfg.Username)
	return nil
}

func readPassword() (string, error) {
	if fd := os.Stdin.Fd(); term.IsTerminal(fd) {
		pw, err := term.ReadPassword(fd)
		return string(pw), err
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
