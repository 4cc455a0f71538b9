package main

import (
	"context"
	"log"
	"os"

	"github.com/oxhollow/ferrite/internal"
	"github.com/oxhollow/ferrite/internal/depend"
	"github.com/oxhollow/ferrite/internal/handler"
	"github.com/oxhollow/ferrite/internal/security"
	"github.com/oxhollow/ferrite/internal/service"
	"github.com/oxhollow/ferrite/internal/settings"
	"github.com/oxhollow/ferrite/internal/store"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	_ "modernc.org/sqlite"
)

func main() {
	internal.InitializeConfiguration()
	settings.ReadDotenv(internal.DotEnvPath)
	settings.Settings = settings.NewSettings()
	hashKey, blockKey := security.NewKeys()
	rdb := store.InitDatabase(true)
	defer rdb.Close()
	rwdb := store.InitDatabase(false)
	defer rwdb.Close()
	store.RunMigrations(rwdb)

	scheduler := service.NewScheduler()
	defer scheduler.Shutdown()

	userStore := store.NewUserSQLiteStore(rdb, rwdb)
	credentialStore := store.NewCredentialSQLiteStore(rdb, rwdb)
	agentStore := store.NewAgentSQLiteStore(rdb, rwdb)
	workflowStore := store.NewWorkflowSQLiteStore(rdb, rwdb)
	jobStore := store.NewJobSQLiteStore(rdb, rwdb)
	apiKeyStore := store.NewAPIKeySQLiteStore(rdb, rwdb)
	providerStore := store.NewProviderSQLiteStore(rdb, rwdb)
	aesEncrypter := security.NewAESEncrypter([]byte(os.Getenv("FERRITE_HASH_KEY")))

	registry := depend.NewRegistry(providerStore)

	cookieSvc := service.NewCookieService(hashKey, blockKey)
	userSvc := service.NewUserService(userStore)
	credentialSvc := service.NewCredentialService(
		credentialStore,
		aesEncrypter,
	)
	agentSvc := service.NewAgentService(agentStore, credentialSvc)
	_, _ = agentStore.CreateControllerAgent(context.Background())
	apiKeySvc := service.NewAPIKeyService(
		apiKeyStore,
		service.NewUUIDGen(),
	)
	workflowSvc := service.NewWorkflowService(
		workflowStore,
		jobStore,
		credentialStore,
		agentStore,
		apiKeyStore,
		registry,
		scheduler,
		aesEncrypter,
	)
	if err := workflowSvc.InitializeJobQueues(context.Background()); err != nil {
		log.Fatal(err)
	}
	defer workflowSvc.ShutdownAll()

	userSvc.InitializeSuperuser(context.Background())

	handler.ScheduleWorkflows(workflowSvc)
	if err := workflowSvc.ScheduleJobRetention(internal.Config.JobRetentionDays); err != nil {
		log.Fatal(err)
	}
	scheduler.Start()

	e := setupEcho()
	g := e.Group("", handler.SessionMiddleware(userSvc, cookieSvc))
	handler.SetupAuthRoutes(g, userSvc, cookieSvc)
	handler.SetupUserRoutes(g, userSvc, cookieSvc)
	handler.SetupCredentialRoutes(g, credentialSvc)
	handler.SetupAgentRoutes(g, agentSvc)
	handler.SetupWorkflowRoutes(g, workflowSvc, apiKeySvc)
	handler.SetupAPIKeyRoutes(g, apiKeySvc)
	handler.SetupProviderRoutes(g, registry)

	internal.GracefulShutdown(e, settings.Settings.Port)
}

func setupEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Use(
		middleware.CORSWithConfig(internal.GetCORSConfig()),
		middleware.RateLimiterWithConfig(internal.GetRateLimiterConfig()),
	)

	return e
}
