package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/oxhollow/ferrite/internal"
	"github.com/oxhollow/ferrite/internal/depend"
	"github.com/oxhollow/ferrite/internal/service"
	"github.com/oxhollow/ferrite/internal/settings"
	"github.com/oxhollow/ferrite/internal/store"

	_ "modernc.org/sqlite"
)

const usage = `usage: ferritectl <command>

commands:
  superuser            create the superuser account
  apikey               create a trigger API key
  chkdeps <provider>   list a provider's dependents, exit 1 if any remain
`

func main() {
	os.Exit(run())
}

// run holds the deferred database closes so the exit code can be
// decided without os.Exit skipping them.
func run() int {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	internal.InitializeConfiguration()
	settings.ReadDotenv(internal.DotEnvPath)
	settings.Settings = settings.NewSettings()
	rdb := store.InitDatabase(true)
	defer rdb.Close()
	rwdb := store.InitDatabase(false)
	defer rwdb.Close()
	store.RunMigrations(rwdb)

	switch os.Args[1] {
	case "superuser":
		userSvc := service.NewUserService(store.NewUserSQLiteStore(rdb, rwdb))
		userSvc.InitializeSuperuser(context.Background())
	case "apikey":
		apiKeySvc := service.NewAPIKeyService(
			store.NewAPIKeySQLiteStore(rdb, rwdb),
			service.NewUUIDGen(),
		)
		ak, err := apiKeySvc.CreateAPIKey(context.Background())
		if err != nil {
			log.Println(err)
			return 1
		}
		fmt.Println(ak.Value)
	case "chkdeps":
		if len(os.Args) < 3 {
			fmt.Fprint(os.Stderr, usage)
			return 2
		}
		registry := depend.NewRegistry(store.NewProviderSQLiteStore(rdb, rwdb))
		dependents, err := registry.CheckDependents(context.Background(), os.Args[2], nil)
		if err != nil {
			log.Println(err)
			return 1
		}
		for _, d := range dependents {
			fmt.Printf("%s\t%s\n", d.Key, d.Name)
		}
		if len(dependents) > 0 {
			return 1
		}
	default:
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	return 0
}
