package internal

import (
	"fmt"
	"runtime"

	"github.com/courtline/rally/pkg/auth"
	"github.com/courtline/rally/pkg/config"
)

const Logo = "🎾"

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

func LoadConfig() (*config.Config, error) {
	return config.LoadConfig(config.DefaultConfigPath())
}

// LoadCredential requires a prior `rally login`.
func LoadCredential(cfg *config.Config) (*auth.Credential, error) {
	cred, err := auth.Load(cfg.CredentialPath())
	if err != nil {
		return nil, err
	}
	if cred.Expired() {
		return nil, fmt.Errorf("stored token expired; run `rally login` again")
	}
	return cred, nil
}

// FormatVersion returns the version string with optional git commit
func FormatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// FormatBuildInfo returns build time and go version info
func FormatBuildInfo() (string, string) {
	build := buildTime
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return build, goVer
}

// GetVersion returns the version string
func GetVersion() string {
	return version
}
