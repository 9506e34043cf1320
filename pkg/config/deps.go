package config

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/crypto"
	"github.com/ruslano69/dbgate/pkg/security"
)

// Deps assembles backend dependencies from c. observer may be nil.
func (c *Config) Deps(logger *zerolog.Logger, observer adapters.Observer) (adapters.Deps, error) {
	hasher, err := crypto.NewBcryptHasher(c.Security.BcryptCost)
	if err != nil {
		return adapters.Deps{}, fmt.Errorf("security.bcrypt_cost: %w", err)
	}

	deps := adapters.Deps{
		Connections: c.Database,
		Hasher:      hasher,
		Logger:      logger,
		Timeouts: adapters.Timeouts{
			Validate:  c.Timeouts.Validate,
			Query:     c.Timeouts.Query,
			Procedure: c.Timeouts.Procedure,
			Catalog:   c.Timeouts.Catalog,
		}.WithDefaults(),
		MaxOpenConns: c.Database.MaxOpenConns,
		MaxIdleConns: c.Database.MaxIdleConns,
		Observer:     observer,
	}

	if len(c.Security.ForbiddenTables) > 0 {
		deps.Policy = security.NewForbiddenTables(c.Security.ForbiddenTables)
	}
	return deps, nil
}
