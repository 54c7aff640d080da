package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ariefcatur/go-storefront/internal/admin"
	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/logx"
	"github.com/ariefcatur/go-storefront/internal/notify"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	baseURL  string
	apiPath  string
	username string
	password string
	token    string
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(config.Load()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Config) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "catalogadmin",
		Short:        "Manage the storefront product catalog",
		SilenceUsage: true,
	}
	f := root.PersistentFlags()
	f.StringVar(&opts.baseURL, "base-url", cfg.BaseURL, "shop API base URL")
	f.StringVar(&opts.apiPath, "api-path", cfg.APIPath, "shop API path segment")
	f.StringVar(&opts.username, "username", cfg.AdminUsername, "admin username")
	f.StringVar(&opts.password, "password", cfg.AdminPassword, "admin password")
	f.StringVar(&opts.token, "token", cfg.AdminToken, "admin token, skips sign in")

	connect := func(cmd *cobra.Command) (*admin.Editor, error) {
		log, err := logx.New("catalogadmin", cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		client := api.New(api.Options{
			BaseURL: opts.baseURL,
			APIPath: opts.apiPath,
			Timeout: cfg.RequestTimeout,
			Logger:  log,
		})
		n := notify.Multi{notify.Log{L: log}, printer{w: cmd.ErrOrStderr()}}
		ed := admin.NewEditor(client, n, log)
		if opts.token != "" {
			client.SetToken(opts.token)
			ed.SetSignedIn()
			return ed, nil
		}
		if err := ed.SignIn(cmd.Context(), opts.username, opts.password); err != nil {
			return nil, err
		}
		log.Debug("signed in", zap.String("username", opts.username))
		return ed, nil
	}

	root.AddCommand(
		newListCmd(connect),
		newCreateCmd(connect),
		newUpdateCmd(connect),
		newDeleteCmd(connect),
	)
	root.SetContext(context.Background())
	return root
}

// printer shows notifications on the terminal.
type printer struct {
	w io.Writer
}

func (p printer) Success(title string) { fmt.Fprintln(p.w, title) }

func (p printer) Error(title, detail string) {
	if detail == "" {
		detail = notify.GenericDetail
	}
	fmt.Fprintf(p.w, "%s: %s\n", title, detail)
}
