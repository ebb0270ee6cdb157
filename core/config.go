package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var Conf *Config

type (
	ServerConfig struct {
		Host                      string
		Port                      string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	// BackendConfig points at the external GraphQL server that owns all persistence.
	BackendConfig struct {
		URL      string
		Timeout  time.Duration
		CacheTTL time.Duration
	}

	// IdentityConfig points at the identity provider.
	// Mode is one of "keycloak" (external OIDC provider) or "local" (seeded dev directory).
	IdentityConfig struct {
		Mode         string
		BaseURL      string
		Realm        string
		ClientID     string
		ClientSecret string
	}

	Config struct {
		Env      string // DEV (local; default), TEST, QA, PROD
		Debug    bool
		TestMode bool
		AppName  string
		Build    string

		SecretKey            string
		FrontendBaseURL      string
		DefaultFromEmailAddr string
		SendgridApiKey       string
		RollbarToken         string
		// DirectoryPath persists the local user directory to a JSON file so
		// the API server and the admin CLI share accounts. Empty: memory only.
		DirectoryPath string

		Server   ServerConfig
		Backend  BackendConfig
		Identity IdentityConfig
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.DefaultFromEmailAddr}
}

func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

func init() {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "VolunHub")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "j2v#0y8_3&k!dn$ve)q7(mz+5xh^4cwg@1u*befr9%ospl6t")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("directoryPath", filepath.Join("config", "users.json"))

	v.SetDefault("serverHost", "")
	v.SetDefault("serverPort", "8000")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("backendURL", "http://localhost:8080/graphql")
	v.SetDefault("backendTimeout", 30*time.Second)
	v.SetDefault("backendCacheTTL", 30*time.Second)

	v.SetDefault("identityMode", "local")
	v.SetDefault("identityBaseURL", "http://localhost:8180")
	v.SetDefault("identityRealm", "volunhub")
	v.SetDefault("identityClientID", "volunhub")
	v.SetDefault("identityClientSecret", "")

	env := os.Getenv("ENV")
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	Conf = &Config{
		Env:      env,
		Debug:    v.GetBool("debug"),
		TestMode: v.GetBool("testMode"),
		AppName:  v.GetString("appName"),
		Build:    v.GetString("build"),

		SecretKey:            v.GetString("secretKey"),
		FrontendBaseURL:      v.GetString("frontendBaseURL"),
		DefaultFromEmailAddr: v.GetString("defaultFromEmail"),
		SendgridApiKey:       v.GetString("sendgridApiKey"),
		RollbarToken:         v.GetString("rollbarToken"),
		DirectoryPath:        v.GetString("directoryPath"),

		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Port:                      v.GetString("serverPort"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		},
		Backend: BackendConfig{
			URL:      v.GetString("backendURL"),
			Timeout:  v.GetDuration("backendTimeout"),
			CacheTTL: v.GetDuration("backendCacheTTL"),
		},
		Identity: IdentityConfig{
			Mode:         v.GetString("identityMode"),
			BaseURL:      v.GetString("identityBaseURL"),
			Realm:        v.GetString("identityRealm"),
			ClientID:     v.GetString("identityClientID"),
			ClientSecret: v.GetString("identityClientSecret"),
		},
	}
}
