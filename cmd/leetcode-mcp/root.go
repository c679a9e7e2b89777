package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/config"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/jwtauth"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/leetcode"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/logctx"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/resources"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/internal/tools"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcp"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcpservice"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/sessions"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/stdio"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/storage"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/storage/memory"
	redisstore "github.com/ayushjaipuriyar/leetcode-mcpserver/storage/redis"
	"github.com/ayushjaipuriyar/leetcode-mcpserver/streaminghttp"
)

const serverName = "leetcode-mcp-server"

const instructions = `Tools and resources for LeetCode (leetcode.com).
Read-only tools cover problems, solutions, contest rankings and public
profiles. Tools about the signed-in user need a valid session cookie.
Every tool returns a single JSON text block; failures carry "error" and
"message" keys.`

const shutdownTimeout = 5 * time.Second

func newRootCmd() *cobra.Command {
	var (
		session  string
		csrf     string
		httpAddr string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:           "leetcode-mcp",
		Short:         "LeetCode Model Context Protocol server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("session") {
				cfg.Session = session
			}
			if cmd.Flags().Changed("csrf") {
				cfg.CSRFToken = csrf
			}
			if cmd.Flags().Changed("http-addr") {
				cfg.HTTPAddr = httpAddr
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVar(&session, "session", "", "LeetCode session cookie (overrides LEETCODE_SESSION)")
	f.StringVar(&csrf, "csrf", "", "LeetCode CSRF token (overrides LEETCODE_CSRF)")
	f.StringVar(&httpAddr, "http-addr", "", "serve streamable HTTP on this address instead of stdio")
	f.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	return cmd
}

// run wires the process together and blocks until ctx is canceled or the
// transport stops.
func run(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	lvl, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	var level slog.LevelVar
	level.Set(lvl)
	log := slog.New(logctx.Wrap(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: &level})))

	backend, closeBackend, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBackend()

	client, err := leetcode.New(ctx, leetcode.Config{
		BaseURL:      cfg.BaseURL,
		Session:      cfg.Session,
		CSRFToken:    cfg.CSRFToken,
		Timeout:      cfg.Timeout,
		RateLimit:    cfg.RateLimit,
		PollAttempts: cfg.PollAttempts,
		PollInterval: cfg.PollInterval,
		CacheTTL:     cfg.CacheTTL,
		Cache:        backend,
		Logger:       log,
	})
	if err != nil {
		return err
	}

	reg := mcpservice.NewRegistry()
	if err := tools.RegisterAll(reg, client, log, tools.WithSubmission(cfg.EnableSubmission)); err != nil {
		return err
	}
	if err := resources.RegisterAll(reg, client, log); err != nil {
		return err
	}

	srv := mcpservice.NewServer(
		mcpservice.WithServerInfo(mcp.ImplementationInfo{Name: serverName, Version: cfg.ServerVersion()}),
		mcpservice.WithInstructions(instructions),
		mcpservice.WithRegistry(reg),
	)
	store := sessions.NewStore(backend, sessions.WithTTL(cfg.SessionTTL))

	log.InfoContext(ctx, "server.start",
		slog.String("version", cfg.ServerVersion()),
		slog.Bool("authenticated", client.IsAuthenticated()),
		slog.Bool("submission_enabled", cfg.EnableSubmission),
		slog.String("transport", transportName(cfg)),
	)

	if cfg.HTTPAddr == "" {
		err = stdio.NewHandler(srv, stdio.WithLogger(log), stdio.WithSessionStore(store)).Serve(ctx)
	} else {
		err = serveHTTP(ctx, cfg, srv, store, log)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.InfoContext(context.WithoutCancel(ctx), "server.stop")
	return nil
}

func transportName(cfg *config.Config) string {
	if cfg.HTTPAddr == "" {
		return "stdio"
	}
	return "http"
}

// openStorage returns the shared backend for sessions and the response
// cache: Redis when REDIS_ADDR is set, otherwise an in-process LRU.
func openStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Storage, func(), error) {
	if cfg.RedisAddr == "" {
		mem, err := memory.New(cfg.CacheSize)
		if err != nil {
			return nil, nil, fmt.Errorf("memory storage: %w", err)
		}
		return mem, func() { _ = mem.Close() }, nil
	}

	rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
	}
	rs, err := redisstore.New(redisstore.Config{Client: rc, KeyPrefix: cfg.StorageKeyPrefix})
	if err != nil {
		_ = rc.Close()
		return nil, nil, err
	}
	log.InfoContext(ctx, "storage.redis.ok", slog.String("addr", cfg.RedisAddr))
	return rs, func() { _ = rs.Close() }, nil
}

func serveHTTP(ctx context.Context, cfg *config.Config, srv mcpservice.ServerCapabilities, store *sessions.Store, log *slog.Logger) error {
	opts := []streaminghttp.Option{streaminghttp.WithLogger(log)}
	authn, err := newAuthenticator(ctx, cfg)
	if err != nil {
		return err
	}
	if authn != nil {
		opts = append(opts, streaminghttp.WithAuthenticator(authn), streaminghttp.WithRealm(serverName))
	}
	if cfg.PublicURL != "" {
		opts = append(opts, streaminghttp.WithProtectedResource(cfg.PublicURL, cfg.AuthIssuer))
	}

	h, err := streaminghttp.New(srv, store, opts...)
	if err != nil {
		return err
	}
	hs := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	hs.RegisterOnShutdown(h.CloseStreams)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gctx, "http.listen", slog.String("addr", cfg.HTTPAddr))
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newAuthenticator returns nil when the HTTP endpoint is unauthenticated.
func newAuthenticator(ctx context.Context, cfg *config.Config) (jwtauth.Authenticator, error) {
	switch {
	case cfg.AuthIssuer != "":
		jc := jwtauth.DefaultConfig()
		jc.Issuer = cfg.AuthIssuer
		jc.Audience = cfg.AuthAudience
		a, err := jwtauth.NewFromDiscovery(ctx, jc)
		if err != nil {
			return nil, err
		}
		return a, nil
	case cfg.AuthHS256Secret != "":
		a, err := jwtauth.NewHS256([]byte(cfg.AuthHS256Secret), &jwtauth.Config{Audience: cfg.AuthAudience})
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, nil
	}
}
