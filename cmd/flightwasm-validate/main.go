// Command flightwasm-validate is a thin outside-the-core collaborator: it
// reads a binary Wasm module off disk, runs it through facade.ParseAndValidate,
// and reports pass/fail, wrapping the library with a small CLI rather than
// folding CLI concerns into the core.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flightwasm/core/facade"
	"github.com/flightwasm/core/internal/wasm"
)

func newRootCommand(logger *zap.Logger) *cobra.Command {
	var featuresFlag uint64

	cmd := &cobra.Command{
		Use:   "flightwasm-validate <module.wasm>",
		Short: "Decode and statically validate a binary Wasm module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				logger.Error("could not read module", zap.String("path", path), zap.Error(err))
				return err
			}

			m, err := facade.ParseAndValidate(data, facade.WithFeatures(wasm.Features(featuresFlag)))
			if err != nil {
				logger.Error("module is invalid", zap.String("path", path), zap.Error(err))
				return err
			}

			logger.Info("module is valid",
				zap.String("path", path),
				zap.Int("types", len(m.TypeSection)),
				zap.Int("imports", len(m.ImportSection)),
				zap.Int("functions", len(m.FunctionSection)),
				zap.Int("exports", len(m.ExportSection)),
			)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&featuresFlag, "features", uint64(wasm.Features20220419),
		"feature bitset to validate against (default: every Core 2.0 proposal)")
	return cmd
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := newRootCommand(logger).Execute(); err != nil {
		os.Exit(1)
	}
}
