// Package repomanager hands out repositories bound to a database handle, so
// services can run the same repository code on *sql.DB or inside a
// transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/fintrack/internal/dbx"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/records"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Records(db dbx.DBTX) records.Repository
}
