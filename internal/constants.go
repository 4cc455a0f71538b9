package internal

const (
	DotEnvPath           = "./.env"
	MigrationsDir        = "migrations"
	RunDirLayout         = "20060102_150405000"
	DBTimestampLayout    = "2006-01-02 15:04:05"
	SessionCookie        = "session"
	TriggerKeyHeader     = "X-Ferrite-Trigger-Key"
	DefaultManifestPath  = ".ferrite.yaml"
	DefaultArtifactsPath = "target/doc"
)
