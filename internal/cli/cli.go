package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/blockdeck/pkg/buildinfo"
	"github.com/matzehuels/blockdeck/pkg/cache"
	"github.com/matzehuels/blockdeck/pkg/integrations/notion"
	"github.com/matzehuels/blockdeck/pkg/pipeline"
	"github.com/matzehuels/blockdeck/pkg/session"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "blockdeck"

	envToken        = "NOTION_TOKEN"
	envClientID     = "NOTION_CLIENT_ID"
	envClientSecret = "NOTION_CLIENT_SECRET"

	// envAPIURL points the client at another API host, such as a recording
	// proxy.
	envAPIURL = "BLOCKDECK_API_URL"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "blockdeck turns Notion pages into slides",
		Long: `blockdeck fetches the blocks of a Notion page, lays them out on a fixed
canvas with your style settings and exports one image per page.

Log in once with 'blockdeck login', then point any command at a page URL or id.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.loginCommand())
	root.AddCommand(c.logoutCommand())
	root.AddCommand(c.whoamiCommand())
	root.AddCommand(c.pagesCommand())
	root.AddCommand(c.databasesCommand())
	root.AddCommand(c.fetchCommand())
	root.AddCommand(c.outlineCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.styleCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Client and Runner Factories
// =============================================================================

// newClient builds an API client from NOTION_TOKEN or the stored login.
// The environment wins so scripts can run without touching the login.
func newClient(ctx context.Context, c cache.Cache) (*notion.Client, error) {
	token := os.Getenv(envToken)
	var keyer cache.Keyer
	if token == "" {
		sess, err := loadSession(ctx)
		if err != nil {
			return nil, err
		}
		token = sess.AccessToken
		if id := sess.UserID(); id != "" {
			keyer = cache.NewScopedKeyer(nil, id+":")
		}
	}

	client := notion.NewClient(token, c)
	if keyer != nil {
		client = client.WithKeyer(keyer)
	}
	if u := os.Getenv(envAPIURL); u != "" {
		client = client.WithBaseURL(u)
	}
	return client, nil
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	store, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	client, err := newClient(ctx, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return pipeline.NewRunner(client, store, client.Keyer(), c.Logger), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return fc, nil
}

// =============================================================================
// Sessions
// =============================================================================

func openSessionStore() (*session.CLIStore, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	store, err := session.NewCLIStore(filepath.Join(dir, "sessions"))
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return store, nil
}

// loadSession returns the stored login, or an error telling the user how to
// log in.
func loadSession(ctx context.Context) (*session.Session, error) {
	store, err := openSessionStore()
	if err != nil {
		return nil, err
	}
	sess, err := store.GetSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	// Expired logins are dropped by the store.
	if sess == nil || sess.AccessToken == "" {
		return nil, fmt.Errorf("not logged in (run '%s login' or set %s)", appName, envToken)
	}
	return sess, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/blockdeck/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// configDir returns ~/.config/blockdeck, honouring XDG_CONFIG_HOME.
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// defaultStylePath is where 'style init' writes and every render looks
// when --style is not given.
func defaultStylePath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "style.toml"), nil
}
