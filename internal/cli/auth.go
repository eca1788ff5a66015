package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/blockdeck/pkg/integrations/notion"
	"github.com/matzehuels/blockdeck/pkg/session"
)

const (
	// defaultCallbackPort must match a redirect URI registered with the
	// public integration: http://127.0.0.1:8765/callback.
	defaultCallbackPort = 8765

	loginTimeout = 5 * time.Minute
)

// loginCommand creates the login command.
func (c *CLI) loginCommand() *cobra.Command {
	var (
		token string
		oauth bool
		port  int
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a Notion access token",
		Long: `Store the credential used by every other command.

With --token (or NOTION_TOKEN) an internal integration token is verified
and saved. With --oauth the browser opens the public integration's consent
page and the code is received on a loopback address; this needs
NOTION_CLIENT_ID and NOTION_CLIENT_SECRET.

The login is stored in ~/.config/blockdeck/sessions/.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openSessionStore()
			if err != nil {
				return err
			}

			var sess *session.Session
			if oauth {
				sess, err = c.runOAuthLogin(ctx, port)
			} else {
				if token == "" {
					token = os.Getenv(envToken)
				}
				if token == "" {
					return fmt.Errorf("no token: pass --token, set %s or use --oauth", envToken)
				}
				sess, err = verifyToken(ctx, token)
			}
			if err != nil {
				return err
			}

			if err := store.SaveSession(ctx, sess); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			name := sess.WorkspaceName
			if name == "" {
				name = "Notion"
			}
			printSuccess("Logged in to %s", StyleHighlight.Render(name))
			printDetail("Session: %s", store.Path())
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "integration token (default $NOTION_TOKEN)")
	cmd.Flags().BoolVar(&oauth, "oauth", false, "log in through the browser")
	cmd.Flags().IntVar(&port, "port", defaultCallbackPort, "loopback port for the OAuth callback")
	cmd.MarkFlagsMutuallyExclusive("token", "oauth")

	return cmd
}

// logoutCommand creates the logout command.
func (c *CLI) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored Notion credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSessionStore()
			if err != nil {
				return err
			}
			if err := store.DeleteSession(cmd.Context()); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
			printSuccess("Logged out")
			return nil
		},
	}
}

// whoamiCommand creates the whoami command.
func (c *CLI) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the integration behind the stored credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := loadSession(ctx)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			spinner := newSpinnerWithContext(ctx, "Verifying session...")
			spinner.Start()
			user, err := apiClient(sess.AccessToken).Me(ctx)
			if err != nil {
				spinner.StopWithError("Session invalid")
				return fmt.Errorf("verify session: %w", err)
			}
			spinner.Stop()

			printSuccess("Notion Session")
			if name := user.WorkspaceName(); name != "" {
				printKeyValue("Workspace", name)
			}
			if user.Name != "" {
				printKeyValue("Integration", user.Name)
			}
			printKeyValue("Bot", user.ID)
			printKeyValue("Logged in", sess.CreatedAt.Format("Jan 2, 2006"))
			if sess.ExpiresAt.Sub(sess.CreatedAt) < session.CLITTL {
				printKeyValue("Expires", sess.ExpiresAt.Format("Jan 2, 2006"))
			}
			return nil
		},
	}
}

// apiClient is an uncached client, honouring BLOCKDECK_API_URL.
func apiClient(token string) *notion.Client {
	client := notion.NewClient(token, nil)
	if u := os.Getenv(envAPIURL); u != "" {
		client = client.WithBaseURL(u)
	}
	return client
}

// verifyToken checks token against the API and builds a session for it.
func verifyToken(ctx context.Context, token string) (*session.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	spinner := newSpinnerWithContext(ctx, "Verifying token...")
	spinner.Start()
	user, err := apiClient(token).Me(ctx)
	spinner.Stop()
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}

	sess, err := session.New(token, user.ID, session.CLITTL)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	sess.WorkspaceName = user.WorkspaceName()
	return sess, nil
}

// =============================================================================
// OAuth Login
// =============================================================================

type callbackResult struct {
	code string
	err  error
}

// callbackHandler receives the OAuth redirect. The first request that
// reaches it decides the outcome; later requests are answered but ignored.
func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
		case q.Get("state") != state:
			res.err = fmt.Errorf("state mismatch")
		case q.Get("code") == "":
			res.err = fmt.Errorf("callback without code")
		default:
			res.code = q.Get("code")
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if res.err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "Login failed: %v\n", res.err)
		} else {
			fmt.Fprintln(w, "Logged in. You can close this tab.")
		}

		select {
		case results <- res:
		default:
		}
	})
	return mux
}

func (c *CLI) runOAuthLogin(ctx context.Context, port int) (*session.Session, error) {
	logger := loggerFromContext(ctx)
	cfg := notion.OAuthConfig{
		ClientID:     os.Getenv(envClientID),
		ClientSecret: os.Getenv(envClientSecret),
		RedirectURI:  fmt.Sprintf("http://127.0.0.1:%d/callback", port),
	}
	if !cfg.Configured() {
		return nil, fmt.Errorf("OAuth login needs %s and %s", envClientID, envClientSecret)
	}
	oauthClient := notion.NewOAuthClient(cfg)
	if u := os.Getenv(envAPIURL); u != "" {
		oauthClient = oauthClient.WithBaseURL(u)
	}

	state, err := session.GenerateState()
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("listen for callback: %w", err)
	}
	results := make(chan callbackResult, 1)
	srv := &http.Server{Handler: callbackHandler(state, results), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Debug("callback server stopped", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := oauthClient.AuthorizationURL(state)
	printNewline()
	fmt.Println(StyleTitle.Render("Notion Authorization"))
	printNewline()
	printKeyValue("URL", StyleLink.Render(authURL))
	printNewline()
	if err := openBrowser(authURL); err != nil {
		printDetail("Copy the URL above and paste it in your browser")
	} else {
		printDetail("Opening browser...")
	}
	printInline("Waiting for authorization...")

	loginCtx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	var res callbackResult
	select {
	case res = <-results:
	case <-loginCtx.Done():
		fmt.Println()
		return nil, fmt.Errorf("authorization: %w", loginCtx.Err())
	}
	fmt.Println()
	if res.err != nil {
		return nil, res.err
	}

	tok, err := oauthClient.ExchangeCode(loginCtx, res.code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	logger.Debug("token exchanged", "workspace", tok.WorkspaceName, "bot", tok.BotID)
	return session.FromToken(tok, session.CLITTL)
}

func openBrowser(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", rawURL)
	case "linux":
		cmd = exec.Command("xdg-open", rawURL)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", rawURL)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}
