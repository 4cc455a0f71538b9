package service

// Manifest is the optional per-repository build manifest. Everything in
// it has a default, so a repository without one still builds.
type Manifest struct {
	Toolchain ManifestToolchain `yaml:"toolchain"`
	Env       map[string]string `yaml:"env"`
	Artifacts string            `yaml:"artifacts"`
}

type ManifestToolchain struct {
	Channel string `yaml:"channel"`
}
