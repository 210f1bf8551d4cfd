package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lexandro/mdview-mcp/links"
	"github.com/lexandro/mdview-mcp/navigation"
	"github.com/lexandro/mdview-mcp/register"
	"github.com/lexandro/mdview-mcp/server"
	"github.com/lexandro/mdview-mcp/sqlite"
	"github.com/lexandro/mdview-mcp/tools"
	"github.com/lexandro/mdview-mcp/viewer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CLI is the command line of mdview-mcp.
type CLI struct {
	Serve    ServeCmd    `cmd:"" default:"withargs" help:"Serve the viewer over MCP stdio (default)"`
	Register RegisterCmd `cmd:"" help:"Add this server to an MCP client config"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Root            string        `short:"r" env:"MDVIEW_ROOT" help:"Root folder (default: current working directory)"`
	Exclude         []string      `env:"MDVIEW_EXCLUDE" help:"Extra ignore pattern (repeatable)"`
	MaxFileSize     int64         `env:"MDVIEW_MAX_FILE_SIZE" default:"2097152" help:"Maximum document size in bytes"`
	RefreshInterval time.Duration `env:"MDVIEW_REFRESH_INTERVAL" default:"60s" help:"Background refresh interval"`
	NoWatch         bool          `env:"MDVIEW_NO_WATCH" help:"Disable the filesystem watcher"`
	DB              string        `env:"MDVIEW_DB" help:"Settings database path (default: ~/.mdview/mdview.db)"`
	LogLevel        string        `env:"MDVIEW_LOG_LEVEL" default:"info" enum:"debug,info,warn,error" help:"Log level: debug|info|warn|error"`
	LogFile         string        `env:"MDVIEW_LOG_FILE" help:"Log file path (default: <root>/mdview-mcp.log)"`
	BaseURL         string        `env:"MDVIEW_BASE_URL" default:"mdview://viewer" help:"Base of the shareable URLs"`
	Open            string        `help:"Document path or viewer URL to open on start"`
}

// RegisterCmd is the "register" subcommand.
type RegisterCmd struct {
	Scope string   `arg:"" enum:"project,user" help:"project writes <directory>/.mcp.json, user writes ~/.claude.json"`
	Rest  []string `arg:"" optional:"" passthrough:"" help:"[directory] [-- server args...]"`
	Name  string   `help:"Server name (default: derived from the binary name)"`
}

// Dependencies are bound into kong commands.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Run parses args and executes the selected command.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	_, kongCtx, err := parse(args, stdout, stderr)
	if err != nil {
		return err
	}
	return kongCtx.Run(&Dependencies{Ctx: ctx, Stdout: stdout, Stderr: stderr})
}

func parse(args []string, stdout, stderr io.Writer) (*CLI, *kong.Context, error) {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("mdview-mcp"),
		kong.Description("Markdown folder viewer served over MCP."),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create parser: %w", err)
	}
	kongCtx, err := parser.Parse(args)
	return cli, kongCtx, err
}

// Run serves the viewer until stdin closes or ctx is cancelled.
func (c *ServeCmd) Run(deps *Dependencies) error {
	rootDir := c.Root
	if rootDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		rootDir = wd
	}
	rootDir, err := filepath.Abs(rootDir)
	if err != nil {
		return fmt.Errorf("resolving root %s: %w", c.Root, err)
	}

	logFile := c.LogFile
	if logFile == "" {
		logFile = filepath.Join(rootDir, "mdview-mcp.log")
	}

	// Never log to stdout: it carries the MCP stdio stream.
	logger := setupLogger(c.LogLevel, logFile)
	logger.Info("starting mdview-mcp",
		"root", rootDir,
		"maxFileSize", c.MaxFileSize,
		"refreshInterval", c.RefreshInterval,
		"watch", !c.NoWatch,
	)

	store, closeStore := openStore(c.DB, logger)
	defer closeStore()

	startTime := time.Now()
	session, err := viewer.NewSession(deps.Ctx, viewer.Config{
		BaseURL:         c.BaseURL,
		StartURL:        startURL(c.BaseURL, c.Open),
		Exclude:         c.Exclude,
		MaxFileSize:     c.MaxFileSize,
		RefreshInterval: c.RefreshInterval,
		Watch:           !c.NoWatch,
	}, store, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.OpenRoot(deps.Ctx, rootDir); err != nil {
		return fmt.Errorf("opening root %s: %w", rootDir, err)
	}
	state := session.State()
	logger.Info("initial scan complete",
		"files", state.FileCount,
		"hidden", state.HiddenCount,
		"duration", time.Since(startTime),
	)

	mcpServer := server.Setup(server.Handlers{
		Navigate: &tools.NavigateHandler{Session: session, Logger: logger},
		Search:   &tools.SearchHandler{Session: session, Logger: logger},
		FullText: &tools.FullTextHandler{Session: session, Logger: logger},
		Files:    &tools.FilesHandler{Session: session, Logger: logger},
		Tree:     &tools.TreeHandler{Session: session, Logger: logger},
		View:     &tools.ViewHandler{Session: session, Logger: logger},
		Settings: &tools.SettingsHandler{Session: session, Logger: logger},
		Reload:   &tools.ReloadHandler{Session: session, Logger: logger},
		Root:     &tools.RootHandler{Session: session, Logger: logger},
		Status:   &tools.StatusHandler{Session: session, StartTime: startTime, Logger: logger},
	})

	logger.Info("MCP server starting on stdio")
	if err := mcpServer.Run(deps.Ctx, &mcp.StdioTransport{}); err != nil && deps.Ctx.Err() == nil {
		logger.Error("MCP server error", "error", err)
		return err
	}
	return nil
}

// Run writes the client configuration entry.
func (c *RegisterCmd) Run(deps *Dependencies) error {
	name := c.Name
	if name == "" {
		name = register.DeriveServerName(os.Args[0])
	}
	directory, serverArgs := register.SplitArgs(c.Scope, c.Rest)

	configPath, err := register.Register(register.Options{
		Scope:      c.Scope,
		Directory:  directory,
		ServerName: name,
		ServerArgs: serverArgs,
	})
	if err != nil {
		return fmt.Errorf("registering: %w", err)
	}
	fmt.Fprintf(deps.Stdout, "Registered %q in %s\n", name, configPath)
	return nil
}

// openStore opens the settings database, falling back to a process-local
// store when it cannot be opened.
func openStore(path string, logger *slog.Logger) (viewer.Store, func()) {
	if path == "" {
		path = defaultDBPath()
	}
	db := sqlite.NewDB(path)
	if err := db.Open(); err != nil {
		logger.Warn("failed to open settings database, settings will not persist", "path", path, "error", err)
		return viewer.NewMemoryStore(), func() {}
	}
	return db, func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close settings database", "error", err)
		}
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mdview.db"
	}
	dir := filepath.Join(home, ".mdview")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "mdview.db")
}

// startURL turns the --open value into a viewer URL. Values with a scheme
// are taken as URLs, anything else as a document path.
func startURL(baseURL string, open string) string {
	if open == "" {
		return baseURL
	}
	if strings.Contains(open, "://") {
		return open
	}
	return navigation.BuildURL(baseURL, links.NormalizePath(filepath.ToSlash(open)))
}

// setupLogger creates an slog.Logger writing to stderr or a file.
func setupLogger(level string, logFile string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var writer *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v, falling back to stderr\n", logFile, err)
			writer = os.Stderr
		} else {
			writer = f
		}
	} else {
		writer = os.Stderr
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}
