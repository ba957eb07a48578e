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

type Config struct {
	Debug    bool
	TestMode bool
	Env      string // DEV (default), TEST, QA, PROD
	Build    string
	AppName  string
	WorkDir  string
	DataDir  string // flat-file storage root

	SecretKey                 string
	PasswordResetTimeoutDelta time.Duration

	FrontendBaseURL  string
	DefaultFromEmail mail.Address
	SendgridApiKey   string
	RollbarToken     string

	Server struct {
		Host                      string
		Addr                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}
}

// NewConfig loads the app configuration from defaults, an optional
// config/.env.<env> file and environment variables prefixed with <ENV>_.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("build", "dev")
	conf.SetDefault("appName", "Ratiba")
	conf.SetDefault("dataDir", "data")
	conf.SetDefault("secretKey", "w#05m$69h)a+j=x7j2-q&yf_y1(#@dp8u7fdbd%ip$mh&-fz0k")
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.addr", ":8000")
	conf.SetDefault("server.debugHost", "localhost:8001")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)

	env := os.Getenv("ENV")
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	c := &Config{
		Debug:                     conf.GetBool("debug"),
		TestMode:                  conf.GetBool("testMode"),
		Env:                       env,
		Build:                     conf.GetString("build"),
		AppName:                   conf.GetString("appName"),
		WorkDir:                   wd,
		DataDir:                   conf.GetString("dataDir"),
		SecretKey:                 conf.GetString("secretKey"),
		PasswordResetTimeoutDelta: conf.GetDuration("passwordResetTimeoutDelta"),
		FrontendBaseURL:           conf.GetString("frontendBaseURL"),
		DefaultFromEmail:          mail.Address{Name: conf.GetString("appName"), Address: conf.GetString("defaultFromEmail")},
		SendgridApiKey:            conf.GetString("sendgridApiKey"),
		RollbarToken:              conf.GetString("rollbarToken"),
	}
	c.Server.Host = conf.GetString("server.host")
	c.Server.Addr = conf.GetString("server.addr")
	c.Server.DebugHost = conf.GetString("server.debugHost")
	c.Server.ShutdownTimeout = conf.GetDuration("server.shutdownTimeout")
	c.Server.JWTExpirationDelta = conf.GetDuration("server.jwtExpirationDelta")
	c.Server.JWTRefreshExpirationDelta = conf.GetDuration("server.jwtRefreshExpirationDelta")

	if !filepath.IsAbs(c.DataDir) {
		c.DataDir = filepath.Join(wd, c.DataDir)
	}
	return c
}
