package storage

import (
	"context"
	"fmt"

	"BacklinkOutreach/internal/config"
	"BacklinkOutreach/internal/ports"
)

// OpenLedger builds the ledger backend named by cfg.Ledger.Driver.
func OpenLedger(ctx context.Context, cfg config.Config) (ports.Ledger, error) {
	switch cfg.Ledger.Driver {
	case config.LedgerJSON:
		return NewJSONLedger(cfg.Storage.Root), nil
	case config.LedgerSQLite:
		return OpenSQLite(ctx, cfg.LedgerDSN())
	case config.LedgerPostgres:
		return OpenPostgres(ctx, cfg.LedgerDSN())
	case config.LedgerRedis:
		return OpenRedis(ctx, cfg.LedgerDSN())
	default:
		return nil, fmt.Errorf("ledger driver %q is not supported", cfg.Ledger.Driver)
	}
}
