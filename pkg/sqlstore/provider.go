package sqlstore

import (
	"context"
	"log/slog"
	"math/rand"

	"github.com/jmoiron/sqlx"
)

type SqlCommons interface {
	GetTable(...interface{}) string
}

type ConnectConfig interface {
	FormatDSN() string
}

type SqlProvider struct {
	master   *sqlx.DB
	replicas []*sqlx.DB
	dbname   string
}

type TransactionKey struct{}

func (s *SqlProvider) GetTxFromCtx(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(TransactionKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}

func (s *SqlProvider) GetMaster() *sqlx.DB {
	return s.master
}

func (s *SqlProvider) GetReplica() *sqlx.DB {
	return s.replicas[rand.Intn(len(s.replicas))]
}

func (s *SqlProvider) Transaction(ctx context.Context, next func(ctx context.Context) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if s.GetTxFromCtx(ctx) != nil {
		return next(ctx)
	}

	tx, err := s.GetMaster().BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		r := recover()
		if r == nil && err == nil {
			return
		}
		slog.Error("transaction rollbacked", slog.Any("recover", r), slog.Any("error", err))
		_ = tx.Rollback()
		if r != nil {
			panic(r)
		}
	}()

	if err = next(context.WithValue(ctx, TransactionKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SqlProvider) initConnection(conf ConnectConfig) (*sqlx.DB, error) {
	return sqlx.Open("postgres", conf.FormatDSN())
}

// MustSetupProvider 第一个配置为主库，其余为只读副本，未配置副本时读写都走主库
func MustSetupProvider(m ConnectConfig, s ...ConnectConfig) *SqlProvider {
	provider := &SqlProvider{}

	engine, err := provider.initConnection(m)
	if err != nil {
		panic(err)
	}
	provider.master = engine

	for _, v := range s {
		replica, err := provider.initConnection(v)
		if err != nil {
			panic(err)
		}
		provider.replicas = append(provider.replicas, replica)
	}
	if len(provider.replicas) == 0 {
		provider.replicas = append(provider.replicas, engine)
	}
	return provider
}

// NewProviderWithDB 使用已有连接构造，主要用于测试
func NewProviderWithDB(db *sqlx.DB) *SqlProvider {
	return &SqlProvider{master: db, replicas: []*sqlx.DB{db}}
}

func (s *SqlProvider) GetDBName() (string, error) {
	if s.dbname == "" {
		var dbName string
		if err := s.GetMaster().QueryRow("SELECT current_database()").Scan(&dbName); err != nil {
			return "", err
		}
		s.dbname = dbName
	}
	return s.dbname, nil
}

func (s *SqlProvider) Close() error {
	seen := map[*sqlx.DB]struct{}{s.master: {}}
	err := s.master.Close()
	for _, r := range s.replicas {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		if cerr := r.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
