//go:build !integration

package main

import (
	"path/filepath"
	"testing"

	"github.com/sells-group/dse-bonds/internal/config"
)

const testReport = `<html><head><meta charset="utf-8"></head><body>
<p>DAR ES SALAAM STOCK EXCHANGE - BOND TRADING REPORT</p>
<table>
<tr><th>Bond No.</th><th>Term</th><th>Coupon</th></tr>
<tr><td>ABC.12.1.20.01/01/2020.01/01/2025.3.02/02/2020.100.12345.98.1234.5.6789</td></tr>
<tr><td>XYZ.5.10.50.15/06/2019.15/06/2024.2.02/02/2020.7.25000.101.5000.9.8765</td></tr>
</table></body></html>`

// useConfig installs a config backed by a SQLite file in a temp dir and
// returns the database path.
func useConfig(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "bonds.db")
	prev := cfg
	cfg = &config.Config{
		Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: dbPath},
		Server: config.ServerConfig{
			Port:        5001,
			SecretKey:   "test-secret",
			MaxUploadMB: 10,
		},
		Monitor: config.MonitoringConfig{LookbackHours: 24},
	}
	t.Cleanup(func() { cfg = prev })
	return dbPath
}
