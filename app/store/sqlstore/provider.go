package sqlstore

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/quka-ai/synthesis/app/store"
	"github.com/quka-ai/synthesis/pkg/register"
	"github.com/quka-ai/synthesis/pkg/sqlstore"
	"github.com/quka-ai/synthesis/pkg/types"
)

func init() {
	sq.StatementBuilder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

type Provider struct {
	*sqlstore.SqlProvider
	stores *Stores
}

type Stores struct {
	store.JobStore
}

type RegisterKey struct{}

func newProvider(sp *sqlstore.SqlProvider) *Provider {
	p := &Provider{
		SqlProvider: sp,
		stores:      &Stores{},
	}
	for _, f := range register.ResolveFuncHandlers[*Provider](RegisterKey{}) {
		f(p)
	}
	return p
}

func MustSetup(m sqlstore.ConnectConfig, s ...sqlstore.ConnectConfig) *Provider {
	p := newProvider(sqlstore.MustSetupProvider(m, s...))
	slog.Debug("sql stores registered", slog.Any("stores", register.Names(RegisterKey{})))
	return p
}

// Install 按文件名顺序执行未执行过的建表文件
func (p *Provider) Install() error {
	if err := p.ensureMigrationTable(); err != nil {
		return err
	}

	files, err := CreateTableFiles.ReadDir(".")
	if err != nil {
		return err
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}
		executed, err := p.isFileExecuted(file.Name())
		if err != nil {
			return err
		}
		if executed {
			continue
		}

		content, err := CreateTableFiles.ReadFile(file.Name())
		if err != nil {
			return err
		}
		if _, err = p.GetMaster().Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute %s: %w", file.Name(), err)
		}
		if err = p.markFileExecuted(file.Name()); err != nil {
			return err
		}
		slog.Info("sql file executed", slog.String("file", file.Name()))
	}
	return nil
}

func (p *Provider) ensureMigrationTable() error {
	_, err := p.GetMaster().Exec(`
CREATE TABLE IF NOT EXISTS ` + types.TABLE_PREFIX + `schema_migrations (
    filename VARCHAR(255) PRIMARY KEY,
    executed_at BIGINT NOT NULL
);`)
	return err
}

func (p *Provider) isFileExecuted(filename string) (bool, error) {
	var count int
	err := p.GetMaster().Get(&count,
		"SELECT COUNT(*) FROM "+types.TABLE_PREFIX+"schema_migrations WHERE filename = $1", filename)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (p *Provider) markFileExecuted(filename string) error {
	_, err := p.GetMaster().Exec(
		"INSERT INTO "+types.TABLE_PREFIX+"schema_migrations (filename, executed_at) VALUES ($1, $2) ON CONFLICT (filename) DO NOTHING",
		filename, time.Now().Unix())
	return err
}

func (p *Provider) JobStore() store.JobStore {
	return p.stores.JobStore
}
