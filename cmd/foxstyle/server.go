package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/foxstyle/internal/api"
	"github.com/kalambet/foxstyle/internal/config"
	"github.com/kalambet/foxstyle/internal/customizer"
	"github.com/kalambet/foxstyle/internal/filestore"
	"github.com/kalambet/foxstyle/internal/prefs"
	"github.com/kalambet/foxstyle/internal/profile"
	"github.com/kalambet/foxstyle/internal/storage"
	"github.com/kalambet/foxstyle/internal/templates"
	"github.com/kalambet/foxstyle/internal/web"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the foxstyle server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running foxstyle server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show foxstyle system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	startCmd.Flags().Bool("mcp", false, "also serve MCP tools over stdio")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "foxstyle.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// profilesRoot returns the configured profiles root, or the platform default.
func profilesRoot(cfg config.Config) (string, error) {
	if cfg.Firefox.ProfilesRoot != "" {
		return cfg.Firefox.ProfilesRoot, nil
	}
	return profile.DefaultRoot()
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "foxstyle version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(cfg.Log.Level)}))
	slog.SetDefault(logger)

	// Refuse to start twice on the same port.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/api/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("foxstyle is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("foxstyle is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	root, err := profilesRoot(cfg)
	if err != nil {
		return fmt.Errorf("locating Firefox profiles: %w", err)
	}
	slog.Info("using Firefox profiles root", "path", root)

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	files := filestore.New(store, logger)
	svc := customizer.New(customizer.Deps{
		Locator:       profile.NewLocator(root),
		Patcher:       prefs.NewPatcherWithClock(nil, logger),
		Files:         files,
		Events:        store,
		PreferenceKey: cfg.Firefox.PreferenceKey,
		Logger:        logger,
	})
	catalog := templates.Builtin()

	if cfg.Server.Token == "" {
		slog.Warn("no API token configured; the API accepts unauthenticated local requests")
	}
	handler := api.NewHandler(api.Deps{
		Service: svc,
		Catalog: catalog,
		Token:   cfg.Server.Token,
		Static:  web.Static(),
		Logger:  logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "foxstyle listening on http://%s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	janitor := filestore.NewJanitor(files, cfg.Storage.HandleTTLDuration(), time.Hour, logger)
	g.Go(func() error {
		janitor.Run(gCtx)
		return nil
	})

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Service: svc, Catalog: catalog})
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			if err := stdioSrv.Listen(gCtx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
		slog.Info("MCP server started (stdio transport)")
	}

	g.Go(func() error {
		<-gCtx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("foxstyle is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop foxstyle (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to foxstyle (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}
	client.httpClient.Timeout = 2 * time.Second

	running := false
	resp, err := client.get(ctx, "/api/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if running {
		if resp, err := client.get(ctx, "/api/firefox/status"); err == nil {
			var st struct {
				FirefoxRunning bool `json:"firefoxRunning"`
			}
			if decodeJSON(resp, &st) == nil {
				printStatus("Firefox", "%s", runningLabel(st.FirefoxRunning))
			}
		}
		if resp, err := client.get(ctx, "/api/profiles"); err == nil {
			var profiles []json.RawMessage
			if decodeJSON(resp, &profiles) == nil {
				printStatus("Profiles", "%d", len(profiles))
			}
		}
	}

	if root, err := profilesRoot(cfg); err == nil {
		printStatus("Profiles root", "%s", root)
	}
	printStatus("Preference", "%s", cfg.Firefox.PreferenceKey)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func runningLabel(running bool) string {
	if running {
		return "running (restart it to apply preference changes)"
	}
	return "not running"
}
