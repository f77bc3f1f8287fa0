package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dse-bonds/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "dse-bonds",
	Short: "DSE bond trading report loader",
	Long:  "Extracts bond trades from DSE daily trading reports, stores trading days not seen before and exports the rows as a spreadsheet.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadDotEnv(".env"); err != nil {
			return err
		}

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// loadDotEnv exports variables from path into the process environment.
// A missing file is not an error. Variables already set win.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
