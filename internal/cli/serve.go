package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/matzehuels/blockdeck/pkg/cache"
	"github.com/matzehuels/blockdeck/pkg/errors"
	"github.com/matzehuels/blockdeck/pkg/integrations/notion"
	"github.com/matzehuels/blockdeck/pkg/observability"
	"github.com/matzehuels/blockdeck/pkg/server"
	"github.com/matzehuels/blockdeck/pkg/session"
)

const (
	storeFile  = "file"
	storeRedis = "redis"
	storeMongo = "mongo"
	storeNone  = "none"

	redisPrefix = "blockdeck:"
)

// serveOptions are the flags of 'serve' after environment defaults.
type serveOptions struct {
	addr          string
	baseURL       string
	clientOrigin  string
	sessionStore  string
	cacheStore    string
	redisURL      string
	mongoURI      string
	secureCookies bool
}

// applyEnv fills unset options from the environment the web app used.
func (o *serveOptions) applyEnv() {
	if o.addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			o.addr = ":" + port
		} else {
			o.addr = server.DefaultAddr
		}
	}
	if o.baseURL == "" {
		o.baseURL = os.Getenv("BASE_URL")
	}
	if o.clientOrigin == "" {
		o.clientOrigin = os.Getenv("CLIENT_ORIGIN")
	}
	if o.redisURL == "" {
		o.redisURL = os.Getenv("REDIS_URL")
	}
	if o.mongoURI == "" {
		o.mongoURI = os.Getenv("MONGO_URI")
	}
}

func (o *serveOptions) validate() error {
	if err := errors.ValidateFormat(o.sessionStore, storeFile, storeRedis, storeMongo); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "--session-store")
	}
	if err := errors.ValidateFormat(o.cacheStore, storeNone, storeFile, storeRedis); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "--cache")
	}
	if (o.sessionStore == storeRedis || o.cacheStore == storeRedis) && o.redisURL == "" {
		return errors.New(errors.ErrCodeInvalidInput, "redis needs --redis-url or REDIS_URL")
	}
	if o.sessionStore == storeMongo && o.mongoURI == "" {
		return errors.New(errors.ErrCodeInvalidInput, "mongo needs --mongo-uri or MONGO_URI")
	}
	if o.baseURL != "" {
		if err := errors.ValidateURL(o.baseURL); err != nil {
			return err
		}
	}
	return nil
}

func (o *serveOptions) config() server.Config {
	return server.Config{
		Addr:         o.addr,
		BaseURL:      o.baseURL,
		ClientOrigin: o.clientOrigin,
		OAuth: notion.OAuthConfig{
			ClientID:     os.Getenv(envClientID),
			ClientSecret: os.Getenv(envClientSecret),
		},
		SecureCookies: o.secureCookies,
		NotionBaseURL: os.Getenv(envAPIURL),
	}
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API for the web client",
		Long: `Run the HTTP API used by the web client: OAuth connection, page and
block listings, slide previews as SVG and zip exports.

OAuth needs NOTION_CLIENT_ID and NOTION_CLIENT_SECRET. PORT, BASE_URL,
CLIENT_ORIGIN, REDIS_URL and MONGO_URI are read when the matching flag is
not set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			opts.applyEnv()
			if err := opts.validate(); err != nil {
				return err
			}

			b, err := openBackends(ctx, opts)
			if err != nil {
				return err
			}
			cfg := opts.config()
			if !cfg.OAuth.Configured() {
				logger.Warn("OAuth not configured; /api/notion/auth will fail", "need", envClientID+", "+envClientSecret)
			}

			observability.Register(observability.NewLogHooks(logger))
			srv := server.New(cfg, b.sessions, b.states, b.cache, logger)
			defer func() {
				err = multierr.Combine(err, srv.Close(), b.close())
			}()
			logger.Info("starting server", "sessions", opts.sessionStore, "cache", opts.cacheStore)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default :$PORT or :3001)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "public URL of this server (default $BASE_URL)")
	cmd.Flags().StringVar(&opts.clientOrigin, "client-origin", "", "web client origin (default $CLIENT_ORIGIN or "+server.DefaultClientOrigin+")")
	cmd.Flags().StringVar(&opts.sessionStore, "session-store", storeFile, "session backend: file, redis or mongo")
	cmd.Flags().StringVar(&opts.cacheStore, "cache", storeFile, "response cache: none, file or redis")
	cmd.Flags().StringVar(&opts.redisURL, "redis-url", "", "redis connection URL (default $REDIS_URL)")
	cmd.Flags().StringVar(&opts.mongoURI, "mongo-uri", "", "MongoDB connection URI (default $MONGO_URI)")
	cmd.Flags().BoolVar(&opts.secureCookies, "secure-cookies", false, "mark the session cookie Secure")

	return cmd
}

// backends are the stores behind the server. The Redis client is shared;
// it is closed by the cache when the cache is Redis and by close otherwise.
type backends struct {
	sessions session.Store
	states   session.StateStore
	cache    cache.Cache
	rdb      *goredis.Client
	ownRDB   bool
}

func (b *backends) close() error {
	if b.rdb != nil && b.ownRDB {
		return b.rdb.Close()
	}
	return nil
}

func openBackends(ctx context.Context, opts serveOptions) (*backends, error) {
	b := &backends{}
	fail := func(err error) (*backends, error) {
		var cerr error
		if b.cache != nil {
			cerr = multierr.Append(cerr, b.cache.Close())
		}
		if b.sessions != nil {
			cerr = multierr.Append(cerr, b.sessions.Close())
		}
		return nil, multierr.Combine(err, cerr, b.close())
	}

	if opts.redisURL != "" && (opts.sessionStore == storeRedis || opts.cacheStore == storeRedis) {
		rdb, err := session.NewRedisClient(ctx, opts.redisURL)
		if err != nil {
			return nil, err
		}
		b.rdb, b.ownRDB = rdb, true
	}

	switch opts.cacheStore {
	case storeNone:
		b.cache = cache.NewNullCache()
	case storeRedis:
		b.cache = cache.NewRedisCacheFromClient(b.rdb, redisPrefix+"cache:")
		b.ownRDB = false
	default:
		c, err := newCache(false)
		if err != nil {
			return fail(err)
		}
		b.cache = c
	}

	b.states = session.NewMemoryStateStore()
	switch opts.sessionStore {
	case storeRedis:
		b.sessions = session.NewRedisStore(b.rdb, redisPrefix)
		b.states = session.NewRedisStateStore(b.rdb, redisPrefix)
	case storeMongo:
		store, err := session.NewMongoStore(ctx, session.MongoOptions{URI: opts.mongoURI})
		if err != nil {
			return fail(err)
		}
		b.sessions = store
	default:
		dir, err := configDir()
		if err != nil {
			return fail(err)
		}
		store, err := session.NewFileStore(filepath.Join(dir, "server-sessions"))
		if err != nil {
			return fail(fmt.Errorf("open session store: %w", err))
		}
		b.sessions = store
	}
	return b, nil
}
