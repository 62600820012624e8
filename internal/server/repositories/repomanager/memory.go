package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/fintrack/internal/dbx"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/records"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/users"
)

// MemoryRepositoryManager ignores the handle it is given and always returns
// the same map-backed repositories. Writes made "inside" a transaction are
// therefore not rolled back.
type MemoryRepositoryManager struct {
	users         *users.MemoryRepository
	refreshTokens *refreshtokens.MemoryRepository
	records       *records.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users:         users.NewMemoryRepository(),
		refreshTokens: refreshtokens.NewMemoryRepository(),
		records:       records.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository { return m.users }

func (m *MemoryRepositoryManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return m.refreshTokens
}

func (m *MemoryRepositoryManager) Records(dbx.DBTX) records.Repository { return m.records }
