package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"wsaddon/internal/app"
	"wsaddon/internal/domain"
	"wsaddon/internal/proxy"
	"wsaddon/internal/search"
)

type rootOptions struct {
	logLevel string
	cfg      app.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "wsctl",
		Short:         "Operate the Webshare stream addon pipeline from a terminal",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		Long: `wsctl runs the same resolution pipeline the addon serves, without HTTP.

Examples:
  wsctl plan --title "Hra o trůny" --original "Game of Thrones" --season 1 --episode 2
  wsctl login --user me@example.com
  wsctl resolve movie tt1160419 --user me@example.com
  wsctl proxy-url encode https://free.example/file.mkv

Environment Variables:
  WEBSHARE_LOGIN, WEBSHARE_PASSWORD   default credentials
  REALDEBRID_API_KEY                   default premium key
  All addon variables (TMDB_API_KEY, REDIS_URL, ...) are honoured as well.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			opts.cfg = app.LoadConfig()
			if opts.logLevel != "" {
				opts.cfg.LogLevel = opts.logLevel
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newPlanCmd(),
		newLoginCmd(opts),
		newResolveCmd(opts),
		newProxyURLCmd(),
	)
	return root
}

func newPlanCmd() *cobra.Command {
	var info domain.ShowInfo
	var kind string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the search queries planned for a title",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info.Kind = domain.MediaKindMovie
			if info.Season > 0 || info.Episode > 0 || kind == string(domain.MediaKindSeries) {
				info.Kind = domain.MediaKindSeries
			}
			if !info.Valid() {
				return errors.New("a title is required; series need --season and --episode above zero")
			}
			for _, query := range search.Plan(info) {
				fmt.Fprintln(cmd.OutOrStdout(), query)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&info.Title, "title", "", "localized title")
	cmd.Flags().StringVar(&info.OriginalTitle, "original", "", "original title")
	cmd.Flags().StringVar(&kind, "kind", "", "movie or series (inferred from --season/--episode)")
	cmd.Flags().IntVar(&info.Season, "season", 0, "season number")
	cmd.Flags().IntVar(&info.Episode, "episode", 0, "episode number")
	return cmd
}

type credentialFlags struct {
	user     string
	password string
}

func (c *credentialFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.user, "user", os.Getenv("WEBSHARE_LOGIN"), "Webshare username or email")
	cmd.Flags().StringVar(&c.password, "password", os.Getenv("WEBSHARE_PASSWORD"), "Webshare password")
}

func (c *credentialFlags) credentials() domain.Credentials {
	return domain.Credentials{Username: strings.TrimSpace(c.user), Password: c.password}
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	creds := &credentialFlags{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Check Webshare credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			services := buildServices(ctx, opts, cmd.ErrOrStderr())
			defer services.Close()

			session, err := services.Webshare.Login(ctx, creds.credentials())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "login ok for %s (token %s)\n",
				creds.credentials().MaskedUsername(), maskToken(session.Token))
			return nil
		},
	}
	creds.bind(cmd)
	return cmd
}

func newResolveCmd(opts *rootOptions) *cobra.Command {
	creds := &credentialFlags{}
	var premiumKey string
	var usePremium bool
	var baseURL string
	cmd := &cobra.Command{
		Use:   "resolve <movie|series> <id>",
		Short: "Run the whole pipeline for a Stremio id and print the streams as JSON",
		Long: `Run the whole pipeline for a Stremio id and print the streams as JSON.

Series ids carry season and episode: tt0944947:1:2.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			services := buildServices(ctx, opts, cmd.ErrOrStderr())
			defer services.Close()

			ctx, cancel := context.WithTimeout(ctx, opts.cfg.ResolveTimeout)
			defer cancel()
			show, err := services.Finder.FindShowInfo(ctx, args[0], args[1])
			if err != nil {
				return fmt.Errorf("metadata for %s %s: %w", args[0], args[1], err)
			}

			credentials := creds.credentials()
			addonCfg := domain.AddonConfig{
				Login:         credentials.Username,
				Password:      credentials.Password,
				RealDebridKey: premiumKey,
				UseRealDebrid: "ne",
			}
			if usePremium {
				addonCfg.UseRealDebrid = "ano"
			}
			if baseURL == "" {
				baseURL = opts.cfg.BaseURL
			}
			response := services.Pipeline.Resolve(ctx, show, addonCfg, baseURL)
			return writeJSON(cmd.OutOrStdout(), response)
		},
	}
	creds.bind(cmd)
	cmd.Flags().StringVar(&premiumKey, "rd-key", os.Getenv("REALDEBRID_API_KEY"), "Real-Debrid API key")
	cmd.Flags().BoolVar(&usePremium, "use-rd", false, "unrestrict streams through Real-Debrid")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "public addon origin for proxied urls (defaults to ADDON_BASE_URL)")
	return cmd
}

func newProxyURLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy-url",
		Short: "Encode or decode /proxy-stream/ paths",
	}
	var base string
	encode := &cobra.Command{
		Use:   "encode <upstream-url>",
		Short: "Print the proxy path (or absolute url with --base) for an upstream url",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := proxy.Decode(proxy.Encode(args[0])); err != nil {
				return err
			}
			if base != "" {
				fmt.Fprintln(cmd.OutOrStdout(), proxy.URL(base, args[0]))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), proxy.Path(args[0]))
			return nil
		},
	}
	encode.Flags().StringVar(&base, "base", "", "public addon origin")

	decode := &cobra.Command{
		Use:   "decode <token|path|url>",
		Short: "Print the upstream url behind a proxy token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := args[0]
			if idx := strings.Index(token, proxy.PathPrefix); idx >= 0 {
				token = token[idx+len(proxy.PathPrefix):]
			}
			upstream, err := proxy.Decode(token)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), upstream)
			return nil
		},
	}
	cmd.AddCommand(encode, decode)
	return cmd
}

func buildServices(ctx context.Context, opts *rootOptions, logOut io.Writer) *app.Services {
	logger := app.NewLoggerTo(logOut, opts.cfg.LogLevel, opts.cfg.LogFormat)
	return app.BuildServices(ctx, opts.cfg, logger)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func maskToken(token string) string {
	if len(token) <= 6 {
		return "***"
	}
	return token[:3] + "***" + token[len(token)-3:]
}

func writeJSON(w io.Writer, payload any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(payload)
}
