package store

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/rews"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/pkg/logger"
	"github.com/surrealdb/surrealdb.go/surrealcbor"
	"github.com/yuchen-w/fangnote/internal/config"
)

func init() {
	// Force HTTP/1.1 for WSS connections to prevent HTTP/2 ALPN negotiation.
	// WebSocket upgrade requires HTTP/1.1 semantics which fail under HTTP/2.
	gorillaws.DefaultDialer.TLSClientConfig = &tls.Config{
		NextProtos: []string{"http/1.1"},
	}
}

// SurrealKV stores keys as records in a SurrealDB `kv` table over an
// auto-reconnecting WebSocket connection.
type SurrealKV struct {
	conn   *rews.Connection[*gorillaws.Connection]
	db     *surrealdb.DB
	logger logger.Logger
}

var _ KV = (*SurrealKV)(nil)

// kvRecord is one row of the kv table.
type kvRecord struct {
	Value string `json:"value"`
}

// NewSurrealKV connects and authenticates against SurrealDB.
func NewSurrealKV(ctx context.Context, cfg config.Config, log *slog.Logger) (*SurrealKV, error) {
	var sdkLogger logger.Logger
	if log != nil {
		sdkLogger = logger.New(log.Handler())
	} else {
		sdkLogger = logger.New(slog.Default().Handler())
	}

	// surrealcbor handles SurrealDB custom CBOR tags
	codec := surrealcbor.New()

	// gorillaws requires the base URL without /rpc (it appends it itself)
	baseURL := strings.TrimSuffix(cfg.SurrealDBURL, "/rpc")

	conn := rews.New(
		func(ctx context.Context) (*gorillaws.Connection, error) {
			ws := gorillaws.New(&connection.Config{
				BaseURL:     baseURL,
				Marshaler:   codec,
				Unmarshaler: codec,
				Logger:      sdkLogger,
			})
			return ws, nil
		},
		5*time.Second,
		codec,
		sdkLogger,
	)

	retryer := rews.NewExponentialBackoffRetryer()
	retryer.InitialDelay = 1 * time.Second
	retryer.MaxDelay = 30 * time.Second
	retryer.Multiplier = 2.0
	retryer.MaxRetries = 10
	conn.Retryer = retryer

	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("from connection: %w", err)
	}

	if cfg.SurrealDBAuthLevel == "database" {
		_, err = db.SignIn(ctx, surrealdb.Auth{
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
		})
	} else {
		_, err = db.SignIn(ctx, surrealdb.Auth{
			Username: cfg.SurrealDBUser,
			Password: cfg.SurrealDBPass,
		})
	}
	if err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("signin: %w", err)
	}

	if err := db.Use(ctx, cfg.SurrealDBNamespace, cfg.SurrealDBDatabase); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("use: %w", err)
	}

	sdkLogger.Info("SurrealDB connection established", "url", cfg.SurrealDBURL)
	return &SurrealKV{conn: conn, db: db, logger: sdkLogger}, nil
}

func (s *SurrealKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	results, err := surrealdb.Query[[]kvRecord](ctx, s.db,
		`SELECT value FROM type::thing("kv", $key)`,
		map[string]any{"key": key})
	if err != nil {
		return nil, false, fmt.Errorf("surrealdb get %s: %w", key, err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, false, nil
	}
	return []byte((*results)[0].Result[0].Value), true, nil
}

func (s *SurrealKV) Put(ctx context.Context, key string, value []byte) error {
	_, err := surrealdb.Query[any](ctx, s.db,
		`UPSERT type::thing("kv", $key) SET value = $value, updated_at = time::now()`,
		map[string]any{"key": key, "value": string(value)})
	if err != nil {
		return fmt.Errorf("surrealdb put %s: %w", key, err)
	}
	return nil
}

func (s *SurrealKV) Close(ctx context.Context) error {
	s.logger.Info("closing SurrealDB connection")
	return s.conn.Close(ctx)
}
