package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LdDl/ots-potato/artifact"
	"github.com/LdDl/ots-potato/config"
	"github.com/LdDl/ots-potato/httpapi"
	"github.com/LdDl/ots-potato/prover"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

func main() {
	var configPath string
	var host string
	var port int
	var mode string
	var tool string
	flag.StringVar(&configPath, "config", "", "Path to config file (yaml, json or toml)")
	flag.StringVar(&host, "host", "", "HTTP server host")
	flag.IntVar(&port, "port", 0, "HTTP server port")
	flag.StringVar(&mode, "mode", "", "Verification mode: explorer, node or probe")
	flag.StringVar(&tool, "tool", "", "Prover executable")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Explicit flags beat file and environment
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = host
		case "port":
			cfg.Port = port
		case "mode":
			cfg.VerifyMode = mode
		case "tool":
			cfg.Tool = tool
		}
	})
	// Positional "bitcoind" kept for existing launch scripts
	if flag.Arg(0) == "bitcoind" {
		cfg.VerifyMode = config.VerifyNode
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		slog.Error("failed to listen", "addr", cfg.Addr(), "error", err)
		os.Exit(1)
	}
	if err := run(ctx, cfg, ln); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// run serves on ln until ctx is done, then waits for in-flight requests so
// their scratch sessions are removed before it returns
func run(ctx context.Context, cfg *config.Config, ln net.Listener) error {
	store, err := artifact.NewStore(cfg.ScratchDir)
	if err != nil {
		ln.Close()
		return errors.Wrap(err, "failed to prepare scratch dir")
	}

	runner := prover.ExecRunner{WaitDelay: time.Second}
	gateway := prover.New(cfg.Tool,
		prover.WithRunner(runner),
		prover.WithTimeout(cfg.ToolTimeout),
		prover.WithModeSelector(cfg.ModeSelector(runner)),
	)

	router := httpapi.NewRouter(httpapi.NewAPI(store, gateway), httpapi.RouterOptions{
		PublicDir:     cfg.PublicDir,
		MaxBodyBytes:  cfg.MaxBodyBytes,
		EnableUpgrade: cfg.EnableUpgrade,
	})

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		slog.Info("shutting down, draining requests")
		// a tool run may take up to ToolTimeout, leave room for cleanup
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ToolTimeout+5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("starting server",
		"addr", ln.Addr().String(),
		"tool", gateway.Tool(),
		"verify_mode", cfg.VerifyMode,
		"public_dir", cfg.PublicDir,
		"scratch_dir", store.Root(),
		"upgrade", cfg.EnableUpgrade,
	)
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-stopped
	return nil
}

// newLogger picks JSON for machines and text for a human at a terminal
func newLogger(format string) *slog.Logger {
	if format == config.LogAuto {
		format = config.LogJSON
		if term.IsTerminal(int(os.Stdout.Fd())) {
			format = config.LogText
		}
	}
	if format == config.LogText {
		return slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
