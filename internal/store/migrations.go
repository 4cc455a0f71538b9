package store

import (
	"database/sql"
	"log"

	assets "github.com/oxhollow/ferrite"
	"github.com/oxhollow/ferrite/internal"
	"github.com/pressly/goose/v3"
)

func RunMigrations(db *sql.DB) {
	goose.SetBaseFS(assets.MigrationsFS)
	if err := goose.SetDialect("sqlite"); err != nil {
		log.Fatal(err)
	}
	if err := goose.Up(db, internal.MigrationsDir); err != nil {
		log.Fatal(err)
	}
}
