package testutil

import (
	"context"
	"log/slog"

	"github.com/stretchr/testify/suite"
	"github.com/uptrace/bun"
)

// BaseSuite gives every test a fresh SQLite database.
//
//	type ReconcileSuite struct {
//	    testutil.BaseSuite
//	}
//
//	func TestReconcile(t *testing.T) { suite.Run(t, new(ReconcileSuite)) }
type BaseSuite struct {
	suite.Suite

	TestDB *TestDB
	Ctx    context.Context
	Log    *slog.Logger
}

// SetupTest opens a new database before each test.
func (s *BaseSuite) SetupTest() {
	s.Ctx = context.Background()
	s.Log = Logger()
	s.TestDB = SetupTestDB(s.T())
}

// DB returns the current test database.
func (s *BaseSuite) DB() *bun.DB {
	return s.TestDB.DB
}

// Count returns the number of rows in table matching where.
func (s *BaseSuite) Count(table, where string, args ...any) int {
	return Count(s.T(), s.DB(), table, where, args...)
}
