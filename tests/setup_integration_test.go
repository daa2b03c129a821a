package tests

import (
	"os"
	"testing"

	"github.com/compahunt/mailsync/internal/config"
	"github.com/compahunt/mailsync/internal/repositories"
	log "github.com/sirupsen/logrus"
)

var dbCtx *repositories.DbContext

func upEnvironment() {

	os.Setenv("DB_CONNECTION_STRING", "testdatabase.db")
	os.Setenv("GOOGLE_CLIENT_ID", "test-client-id")
	os.Setenv("GOOGLE_CLIENT_SECRET", "test-client-secret")
	os.Setenv("GOOGLE_PUBSUB_TOPIC", "projects/test/topics/gmail-push")
	os.Setenv("AI_KEY", "test-ai-key")
	cfg := config.Get()

	var err error
	dbCtx, err = repositories.NewDbContext(cfg.DB.ConnectionString)
	if err != nil {
		log.Fatalf("could not create db context: %s", err)
	}

	err = dbCtx.Migrate()
	if err != nil {
		log.Fatalf("could not migrate db: %s", err)
	}

	// sqlite tolerates one writer; funnel the pool through a single
	// connection so concurrent tests contend on transactions, not on
	// SQLITE_BUSY errors
	if sqlDB, err := dbCtx.DB.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
}

func downEnvironment() {
	_ = dbCtx.Close()
	_ = os.Remove("testdatabase.db")
}

func TestMain(m *testing.M) {

	err := os.Chdir("../") //project root to resolve correctly relative paths in code
	if err != nil {
		log.Fatal(err)
	}

	upEnvironment()

	code := m.Run()

	downEnvironment()

	os.Exit(code)
}
