package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fanworks/storygraph/internal/normalize"
	"github.com/fanworks/storygraph/internal/record"
	"github.com/fanworks/storygraph/internal/seed"
)

// scanner buffer large enough for chapter content lines.
const maxLineBytes = 16 << 20

func newIngestCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Replay a newline-delimited JSON record dump through the pipeline",
		Long: `Reads one JSON record envelope per line from --file (or stdin when
omitted) and processes each through the normalization pipeline. Lines
that fail to decode or resolve are logged and skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIngest(cmd, file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "NDJSON file to replay (default stdin)")
	return cmd
}

func runIngest(cmd *cobra.Command, file string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := seed.Apply(ctx, store, logger); err != nil {
		return fmt.Errorf("apply seed data: %w", err)
	}

	in := os.Stdin
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	router := normalize.NewRouter(store, logger)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var processed, skipped, line int
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		rec, err := record.Decode(data)
		if err != nil {
			logger.Warn("line skipped", zap.Int("line", line), zap.Error(err))
			skipped++
			continue
		}
		if _, err := router.Process(ctx, rec); err != nil {
			logger.Warn("record skipped", zap.Int("line", line), zap.Error(err))
			skipped++
			continue
		}
		processed++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	logger.Info("ingest finished", zap.Int("processed", processed), zap.Int("skipped", skipped))
	return nil
}
