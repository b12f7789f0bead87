package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Configs struct {
	Env string

	ApiServer    ServerConfigs
	Database     DatabaseConfigs
	Redis        RedisConfigs
	Auth         AuthConfigs
	Ledger       LedgerConfigs
	Inventory    ServiceConfigs
	Notification ServiceConfigs
	Jackpot      JackpotConfigs
	Lock         LockConfigs
}

type ServerConfigs struct {
	Host string
	Port string
	Cert string
	Key  string
}

func (s *ServerConfigs) Address() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

type DatabaseConfigs struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

func (d *DatabaseConfigs) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type RedisConfigs struct {
	Addr string
}

type AuthConfigs struct {
	AccessTokenName string
	TokenSecret     string
	TokenExpiration Duration
}

// LedgerConfigs configures the client of the authoritative balance service.
// TrustedSourcePrefixes lists the source prefixes of server-initiated
// transactions which must never be throttled.
type LedgerConfigs struct {
	URL                   string
	MaxPerMinute          int
	TrustedSourcePrefixes []string
}

type ServiceConfigs struct {
	URL string
}

type JackpotConfigs struct {
	BaselineValue uint64
	DrawInterval  Duration
}

type LockConfigs struct {
	// Driver is either "memory" or "redis". The memory driver only serializes
	// draws within a single process.
	Driver string
	Lease  Duration
}

// Duration wraps time.Duration so it can be written as "7h30m" in the
// configuration file.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}

	d.Duration = parsed
	return nil
}

func Default() Configs {
	return Configs{
		Env:       "local",
		ApiServer: ServerConfigs{Host: "0.0.0.0", Port: "8080"},
		Redis:     RedisConfigs{Addr: "localhost:6379"},
		Auth: AuthConfigs{
			AccessTokenName: "access_token",
			TokenSecret:     "secret",
			TokenExpiration: Duration{24 * time.Hour},
		},
		Ledger: LedgerConfigs{
			MaxPerMinute:          60,
			TrustedSourcePrefixes: []string{"admin:", "system:", "event:", "mission:"},
		},
		Jackpot: JackpotConfigs{
			BaselineValue: 1000,
			DrawInterval:  Duration{7 * 24 * time.Hour},
		},
		Lock: LockConfigs{Driver: "memory", Lease: Duration{time.Minute}},
	}
}

// Load reads the TOML configuration file, starting from defaults. Secrets can
// be overridden with environment variables to keep them out of the file.
func Load(path string) (Configs, error) {
	configs := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &configs); err != nil {
			return Configs{}, err
		}
	}

	if secret := os.Getenv("TOKEN_SECRET"); secret != "" {
		configs.Auth.TokenSecret = secret
	}

	if password := os.Getenv("DATABASE_PASSWORD"); password != "" {
		configs.Database.Password = password
	}

	return configs, nil
}
