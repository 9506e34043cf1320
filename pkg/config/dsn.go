package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/ruslano69/dbgate/pkg/adapters"
)

var _ adapters.ConnectionProvider = DatabaseConfig{}

// ConnectionString implements adapters.ConnectionProvider. It returns the
// configured string verbatim or builds one from the individual fields.
func (c DatabaseConfig) ConnectionString() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	if c.Host == "" {
		return "", errors.New("database.connection_string or database.host must be set")
	}
	return c.BuildDSN(), nil
}

// BuildDSN constructs the driver connection string for the provider.
func (c DatabaseConfig) BuildDSN() string {
	user := url.UserPassword(c.User, c.Password)

	switch adapters.ParseProvider(c.Provider) {
	case adapters.ProviderPostgreSQL:
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     user,
			Host:     fmt.Sprintf("%s:%d", c.Host, c.portOr(5432)),
			Path:     "/" + c.Name,
			RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
		}
		return u.String()

	case adapters.ProviderMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.portOr(3306), c.Name)

	default:
		q := url.Values{"database": {c.Name}}
		u := url.URL{
			Scheme: "sqlserver",
			Host:   fmt.Sprintf("%s:%d", c.Host, c.portOr(1433)),
		}
		if c.WindowsAuth {
			q.Set("integrated security", "SSPI")
		} else {
			u.User = user
		}
		u.RawQuery = q.Encode()
		return u.String()
	}
}

func (c DatabaseConfig) portOr(def int) int {
	if c.Port == 0 {
		return def
	}
	return c.Port
}
