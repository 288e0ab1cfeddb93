package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/couchcryptid/storm-windspeed-predictor/internal/domain"
	"github.com/couchcryptid/storm-windspeed-predictor/internal/model"
	"github.com/couchcryptid/storm-windspeed-predictor/internal/observability"
	"github.com/couchcryptid/storm-windspeed-predictor/internal/predict"
	"github.com/spf13/cobra"
)

type options struct {
	modelPath string
	infoPath  string
	logLevel  string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "windspeed",
		Short:         "windspeed predicts tornado windspeed from atmospheric readings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.modelPath, "model", "m", "models/tornado_svm_model_export.json", "model artifact file")
	root.PersistentFlags().StringVarP(&opts.infoPath, "info", "i", "models/model_info.json", "model metadata file; empty uses metadata embedded in the artifact")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level for diagnostics on stderr")

	root.AddCommand(
		newPredictCmd(opts),
		newInspectCmd(opts),
		newVerifyCmd(opts),
		newFixturesCmd(opts),
	)
	return root
}

func (o *options) logger(cmd *cobra.Command) *slog.Logger {
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: observability.ParseLevel(o.logLevel),
	}))
}

func (o *options) load() (*model.Artifact, error) {
	return model.Load(o.modelPath, o.infoPath)
}

func newPredictCmd(opts *options) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "predict [readings.json]",
		Short: "Predict windspeed for a reading object or an array of readings (stdin if no file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			a, err := opts.load()
			if err != nil {
				return err
			}
			svc := predict.New(a, opts.logger(cmd), observability.NewUnregisteredMetrics(), predict.WithWorkers(workers))

			if isArray(data) {
				var readings []domain.Reading
				if err := json.Unmarshal(data, &readings); err != nil {
					return fmt.Errorf("decode readings: %w", err)
				}
				results, err := svc.PredictBatch(readings)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), results)
			}

			var reading domain.Reading
			if err := json.Unmarshal(data, &reading); err != nil {
				return fmt.Errorf("decode reading: %w", err)
			}
			result, err := svc.Predict(reading)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", runtime.NumCPU(), "goroutines used for array input")
	return cmd
}

func newInspectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the artifact family, sizes, and metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), a.Summary())
		},
	}
}

func newVerifyCmd(opts *options) *cobra.Command {
	var (
		fixturesPath string
		tolerance    float64
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the artifact reproduces reference outputs; exits non-zero on mismatch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			fixtures, err := model.LoadFixtures(fixturesPath)
			if err != nil {
				return err
			}

			mismatches := model.Verify(a, fixtures, tolerance)
			out := cmd.OutOrStdout()
			for _, m := range mismatches {
				fmt.Fprintf(out, "FAIL %s\n", m)
			}
			fmt.Fprintf(out, "%d/%d fixtures passed\n", len(fixtures)-len(mismatches), len(fixtures))
			if len(mismatches) > 0 {
				return fmt.Errorf("%d fixture(s) outside tolerance", len(mismatches))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&fixturesPath, "fixtures", "f", "", "fixture file (JSON array of {name, reading, expected})")
	cmd.Flags().Float64VarP(&tolerance, "tolerance", "t", model.DefaultTolerance, "relative tolerance")
	_ = cmd.MarkFlagRequired("fixtures")
	return cmd
}

func newFixturesCmd(opts *options) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "fixtures [inputs.json]",
		Short: "Generate fixtures from a trusted artifact for named readings (stdin if no file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			var inputs []model.Fixture
			if err := json.Unmarshal(data, &inputs); err != nil {
				return fmt.Errorf("decode inputs: %w", err)
			}
			a, err := opts.load()
			if err != nil {
				return err
			}
			fixtures, err := model.GenerateFixtures(a, inputs)
			if err != nil {
				return err
			}

			if outPath == "" {
				return writeJSON(cmd.OutOrStdout(), fixtures)
			}
			return writeFile(outPath, fixtures)
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (stdout if empty)")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

func isArray(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// writeFile writes v as indented JSON to path, reporting close errors.
func writeFile(path string, v any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return writeJSON(f, v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
