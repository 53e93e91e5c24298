package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/uniprep/copilot/internal/auth"
	"github.com/uniprep/copilot/internal/extract"
	"github.com/uniprep/copilot/internal/handler"
	appI18n "github.com/uniprep/copilot/internal/i18n"
	"github.com/uniprep/copilot/internal/llm"
	"github.com/uniprep/copilot/internal/model"
	"github.com/uniprep/copilot/internal/store"
)

// legacyEnv maps config keys to the environment names older deployments use.
var legacyEnv = map[string]string{
	"llm-key":            "OPENROUTER_API_KEY",
	"llm-url":            "OPENROUTER_BASE_URL",
	"llm-model":          "OPENROUTER_MODEL",
	"jwt-secret":         "JWT_SECRET",
	"jwt-refresh-secret": "JWT_REFRESH_SECRET",
	"jwt-access-ttl":     "JWT_ACCESS_EXPIRES_IN",
	"jwt-refresh-ttl":    "JWT_REFRESH_EXPIRES_IN",
	"frontend-url":       "FRONTEND_URL",
	"app-url":            "APP_URL",
	"addr":               "PORT",
}

var defaultOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

//go:generate templ generate

func main() {
	loadDotenv()
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadDotenv reads .env into the environment. Variables already set win.
func loadDotenv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: reading .env:", err)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "uniprep",
		Short: "AI study assistant backend for university exam preparation",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), checkLLMCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLLMFlags(f *pflag.FlagSet) {
	f.String("llm-url", "https://openrouter.ai/api/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "", "API key for the LLM provider")
	f.String("llm-model", "openai/gpt-4o-mini", "LLM model name")
	f.Bool("llm-stream", false, "Use streamed completions")
	f.Duration("llm-timeout", llm.DefaultTimeout, "LLM request timeout")
	f.String("app-url", "http://localhost:5000", "Public URL sent to the provider as HTTP-Referer")
}

func addLogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "auto", "Log format (text, json, auto)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":5000", "HTTP listen address (a bare port is accepted)")
	f.String("db", "uniprep.db", "SQLite database path")
	f.String("env", "production", "Environment; development adds error details to responses")
	f.StringP("lang", "l", "en", "Default response language (en, hi)")
	f.String("jwt-secret", "", "Access token signing secret (required)")
	f.String("jwt-refresh-secret", "", "Refresh token signing secret (required)")
	f.String("jwt-access-ttl", "15m", "Access token lifetime (Go duration or days, e.g. 7d)")
	f.String("jwt-refresh-ttl", "7d", "Refresh token lifetime")
	f.StringSlice("frontend-url", nil, "Allowed CORS origins in addition to the local dev servers")
	f.StringSlice("cors-origin-patterns", nil, "Allowed CORS origin patterns, e.g. https://*.vercel.app")
	f.StringSlice("upload-patterns", extract.DefaultPatterns, "Accepted context upload file names")
	f.String("max-upload", "10MB", "Maximum context upload size")
	addLLMFlags(f)
	addLogFlags(f)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export one user's data as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "uniprep.db", "SQLite database path")
	f.StringP("user", "u", "", "User ID or email (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(f)

	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func checkLLMCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-llm",
		Short: "Diagnose the configured LLM API key",
		RunE:  runCheckLLM,
	}
	addLLMFlags(cmd.Flags())
	addLogFlags(cmd.Flags())
	return cmd
}

// setupLogging installs the default logger writing to w and returns its
// level so it can be changed while running.
func setupLogging(v *viper.Viper, w io.Writer) *slog.LevelVar {
	level := new(slog.LevelVar)
	level.Set(parseLevel(v.GetString("log-level")))
	opts := &slog.HandlerOptions{Level: level}

	format := strings.ToLower(v.GetString("log-format"))
	if format == "auto" || format == "" {
		format = "json"
		if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			format = "text"
		}
	}
	var h slog.Handler
	switch format {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
	return level
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadConfig reads the command's configuration and installs the logger it
// describes. The config file outcome is logged through that logger.
func loadConfig(cmd *cobra.Command, w io.Writer) (*viper.Viper, *slog.LevelVar) {
	v, err := viperForCmd(cmd)
	level := setupLogging(v, w)
	switch {
	case err != nil:
		slog.Warn("error reading config file", "error", err)
	case v.ConfigFileUsed() != "":
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}
	return v, level
}

// viperForCmd binds a command's flags, environment and config file to a
// fresh viper instance. A missing config file is not an error.
func viperForCmd(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("UNIPREP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if cmd.Flags().Lookup(key) == nil {
			continue
		}
		_ = v.BindEnv(key, "UNIPREP_"+strings.ToUpper(strings.ReplaceAll(key, "-", "_")), env)
	}

	v.SetConfigName("uniprep")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/uniprep")
	v.AddConfigPath("/etc/uniprep")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return v, err
		}
	}
	return v, nil
}

// parseTTL accepts Go durations plus a whole-day form such as "7d".
func parseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// listenAddr turns a bare port such as "5000" into ":5000".
func listenAddr(addr string) string {
	if _, err := strconv.Atoi(addr); err == nil {
		return ":" + addr
	}
	return addr
}

func newLLMClient(v *viper.Viper) *llm.Client {
	return llm.New(llm.Config{
		BaseURL: v.GetString("llm-url"),
		APIKey:  v.GetString("llm-key"),
		Model:   v.GetString("llm-model"),
		Timeout: v.GetDuration("llm-timeout"),
		Stream:  v.GetBool("llm-stream"),
		AppURL:  v.GetString("app-url"),
	})
}

// originAllowed reports whether origin is in the allow-list or matches one
// of the doublestar patterns. Trailing slashes are ignored.
func originAllowed(allowed, patterns []string, origin string) bool {
	origin = strings.TrimRight(origin, "/")
	for _, a := range allowed {
		if strings.TrimRight(a, "/") == origin {
			return true
		}
	}
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, origin); err == nil && ok {
			return true
		}
	}
	return false
}

func runServe(cmd *cobra.Command, _ []string) error {
	v, level := loadConfig(cmd, os.Stderr)

	v.OnConfigChange(func(e fsnotify.Event) {
		level.Set(parseLevel(v.GetString("log-level")))
		slog.Info("config file changed", "path", e.Name, "log_level", level.Level())
	})
	if v.ConfigFileUsed() != "" {
		v.WatchConfig()
	}

	accessTTL, err := parseTTL(v.GetString("jwt-access-ttl"))
	if err != nil {
		return fmt.Errorf("jwt-access-ttl: %w", err)
	}
	refreshTTL, err := parseTTL(v.GetString("jwt-refresh-ttl"))
	if err != nil {
		return fmt.Errorf("jwt-refresh-ttl: %w", err)
	}
	tokens, err := auth.NewIssuer(auth.Config{
		AccessSecret:  v.GetString("jwt-secret"),
		RefreshSecret: v.GetString("jwt-refresh-secret"),
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	})
	if err != nil {
		return fmt.Errorf("set --jwt-secret and --jwt-refresh-secret (or JWT_SECRET and JWT_REFRESH_SECRET): %w", err)
	}

	maxUpload, err := humanize.ParseBytes(v.GetString("max-upload"))
	if err != nil {
		return fmt.Errorf("max-upload: %w", err)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	llmClient := newLLMClient(v)
	if !llmClient.Configured() {
		slog.Warn("LLM API key is not set; generation endpoints will fail until OPENROUTER_API_KEY is configured")
	} else {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), llm.DefaultTimeout)
			defer cancel()
			d := llmClient.Diagnose(ctx)
			if d.Valid {
				slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", llmClient.Model())
				return
			}
			slog.Warn("LLM key check failed", "error", d.Error, "status", d.StatusCode, "detail", d.Detail)
		}()
	}

	h, err := handler.New(db, llmClient, tokens, model.ServerConfig{
		Env:            v.GetString("env"),
		UploadPatterns: v.GetStringSlice("upload-patterns"),
		MaxUploadBytes: int64(maxUpload),
	})
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	allowed := append(append([]string{}, defaultOrigins...), v.GetStringSlice("frontend-url")...)
	if appURL := v.GetString("app-url"); appURL != "" {
		allowed = append(allowed, appURL)
	}
	patterns := v.GetStringSlice("cors-origin-patterns")
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid CORS origin pattern %q", p)
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			return originAllowed(allowed, patterns, origin)
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type", "X-Refresh-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	h.Routes(r)

	addr := listenAddr(v.GetString("addr"))
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errc := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", addr,
			"env", v.GetString("env"),
			"lang", lang,
			"model", llmClient.Model(),
			"llm_url", v.GetString("llm-url"),
			"max_upload", humanize.Bytes(maxUpload),
			"origins", allowed,
		)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runExport(cmd *cobra.Command, _ []string) error {
	v, _ := loadConfig(cmd, os.Stderr)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	id := v.GetString("user")
	if strings.Contains(id, "@") {
		u, err := db.GetUserByEmail(id)
		if err != nil {
			return fmt.Errorf("find user %s: %w", id, err)
		}
		id = u.ID
	}
	export, err := db.ExportUser(id)
	if err != nil {
		return fmt.Errorf("export user: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)

	slog.Info("exported user data",
		"user", id,
		"subjects", len(export.Subjects),
		"size", humanize.Bytes(uint64(len(data))),
	)
	return nil
}

func runCheckLLM(cmd *cobra.Command, _ []string) error {
	v, _ := loadConfig(cmd, os.Stderr)

	client := newLLMClient(v)
	d := client.Diagnose(cmd.Context())

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return err
	}
	if !d.Valid {
		return fmt.Errorf("LLM key check failed: %s", d.Error)
	}
	return nil
}
