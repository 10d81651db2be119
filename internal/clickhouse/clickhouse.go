package clickhouse

import (
	clickhouse_go "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/billix/billix/internal/config"
	ierr "github.com/billix/billix/internal/errors"
)

// Store wraps the native clickhouse connection used by the columnar event
// mirror
type Store struct {
	conn driver.Conn
}

func NewStore(cfg *config.Configuration) (*Store, error) {
	conn, err := clickhouse_go.Open(cfg.ClickHouse.GetClientOptions())
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to connect to clickhouse").
			Mark(ierr.ErrDatabase)
	}
	return &Store{conn: conn}, nil
}

func (s *Store) Conn() driver.Conn {
	return s.conn
}

func (s *Store) Close() error {
	return s.conn.Close()
}
