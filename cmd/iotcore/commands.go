package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/iotcore/pkg/compression"
	"github.com/ajitpratap0/iotcore/pkg/config"
	"github.com/ajitpratap0/iotcore/pkg/connector/core"
	"github.com/ajitpratap0/iotcore/pkg/connector/sources/iotcore"
	"github.com/ajitpratap0/iotcore/pkg/export"
	"github.com/ajitpratap0/iotcore/pkg/logger"
)

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(a.out, "iotcore v%s (connector %s)\n", version, iotcore.Version)
			fmt.Fprintf(a.out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(a.out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func (a *app) tablesCmd() *cobra.Command {
	var schema string
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Print the table definitions the connector exposes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, def := range iotcore.ImportSchema(schema) {
				fmt.Fprintf(a.out, "%s.%s (table_type=%s)\n", def.Schema, def.Name, def.Options[config.OptionTableType])
				for _, col := range def.Columns {
					fmt.Fprintf(a.out, "  %-24s %s\n", col.Name, col.Type)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&schema, "schema", "iot", "Schema prefix for the table names")
	return cmd
}

type scanFlags struct {
	columns string
	where   []string
	limit   int
}

func (f *scanFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.columns, "columns", "c", "", "Comma separated columns to fetch (default all)")
	cmd.Flags().StringArrayVarP(&f.where, "where", "w", nil, "Filter as col=value or col~~pattern; repeatable")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Stop after this many rows (0 = no limit)")
}

func (a *app) scanCmd() *cobra.Command {
	var f scanFlags
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a table and print rows as JSON lines",
		Example: `  iotcore scan -t thing --columns thing_name,thing_groups --where thing_type_name=gateway
  iotcore scan -t thing-group --where 'thing_group_name~~plant%'`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runScan(cmd.Context(), f, config.ExportConfig{Target: "-"}, export.WithStdout(a.out))
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var f scanFlags
	var target, codec string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a scan to a file or S3 object as JSON lines",
		Example: `  iotcore export -t thing --to things.jsonl.gz --compression gzip
  iotcore export -t thing --to s3://fleet-archive/registry/`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ecfg := a.file.Export
			if cmd.Flags().Changed("to") || ecfg.Target == "" {
				ecfg.Target = target
			}
			if cmd.Flags().Changed("compression") || ecfg.Compression == "" {
				ecfg.Compression = codec
			}

			var opts []export.Option
			if t, err := export.ParseTarget(ecfg.Target); err == nil && t.Kind == export.TargetS3 {
				uploader, err := export.NewUploader(cmd.Context(), ecfg, config.IoTCoreOptionsFromConfig(a.connectorConfig()))
				if err != nil {
					return err
				}
				opts = append(opts, export.WithUploader(uploader))
			}
			opts = append(opts, export.WithStdout(a.out))
			return a.runScan(cmd.Context(), f, ecfg, opts...)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&target, "to", "-", "Destination: -, a file path or s3://bucket/key (a trailing / generates the name)")
	cmd.Flags().StringVar(&codec, "compression", "none", "none, gzip, lz4 or zstd")
	return cmd
}

func (a *app) runScan(ctx context.Context, f scanFlags, ecfg config.ExportConfig, opts ...export.Option) error {
	ctx = withQueryID(ctx)
	quals, err := parseWhere(f.where)
	if err != nil {
		return err
	}

	table, err := a.open()
	if err != nil {
		return err
	}
	defer table.Close(context.WithoutCancel(ctx))

	columns := parseColumns(f.columns, iotcore.Columns(table.Kind()))
	it, err := table.Execute(ctx, quals, columns)
	if err != nil {
		return err
	}
	if f.limit > 0 {
		it = &limitIterator{RowIterator: it, remaining: f.limit}
	}

	sink, err := export.Open(ctx, ecfg, append([]export.Option{export.WithLogger(a.log)}, opts...)...)
	if err != nil {
		_ = it.Close()
		return err
	}
	n, copyErr := sink.Copy(ctx, it)
	if err := sink.Close(); err != nil && copyErr == nil {
		copyErr = err
	}
	logger.WithContext(ctx, a.log).Info("scan finished",
		zap.String("table_type", table.Kind().String()),
		zap.Int64("rows", n),
		zap.Any("metrics", table.Metrics()))
	return copyErr
}

// withQueryID tags ctx with a fresh query id for the connector logs
func withQueryID(ctx context.Context) context.Context {
	return context.WithValue(ctx, logger.QueryIDKey, uuid.NewString())
}

// limitIterator stops the wrapped scan early; no further pages are fetched.
type limitIterator struct {
	core.RowIterator
	remaining int
}

func (it *limitIterator) Next(ctx context.Context) bool {
	if it.remaining <= 0 {
		return false
	}
	it.remaining--
	return it.RowIterator.Next(ctx)
}

func (a *app) insertCmd() *cobra.Command {
	var set []string
	cmd := &cobra.Command{
		Use:     "insert",
		Short:   "Create a thing",
		Example: `  iotcore insert --set thing_name=sensor-9 --set thing_type_name=sensor`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			values, err := parseSet(set)
			if err != nil {
				return err
			}
			table, err := a.open()
			if err != nil {
				return err
			}
			defer table.Close(context.WithoutCancel(cmd.Context()))

			row, err := table.Insert(withQueryID(cmd.Context()), values)
			if err != nil {
				return err
			}
			return a.printRow(cmd.Context(), row)
		},
	}
	cmd.Flags().StringArrayVar(&set, "set", nil, "Column assignment col=value; repeatable")
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	var set []string
	var shadow, shadowFile string
	cmd := &cobra.Command{
		Use:   "update <thing_name>",
		Short: "Replace a thing's shadow document",
		Args:  cobra.ExactArgs(1),
		Example: `  iotcore update sensor-1 --shadow '{"state":{"desired":{"led":"on"}}}'
  iotcore update sensor-1 --shadow-name config --shadow-file desired.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseSet(set)
			if err != nil {
				return err
			}
			switch {
			case shadowFile != "":
				doc, err := readInput(shadowFile)
				if err != nil {
					return err
				}
				values[iotcore.ColumnThingShadowData] = string(doc)
			case cmd.Flags().Changed("shadow"):
				values[iotcore.ColumnThingShadowData] = shadow
			}

			table, err := a.open()
			if err != nil {
				return err
			}
			defer table.Close(context.WithoutCancel(cmd.Context()))

			row, err := table.Update(withQueryID(cmd.Context()), args[0], values)
			if err != nil {
				return err
			}
			return a.printRow(cmd.Context(), row)
		},
	}
	cmd.Flags().StringArrayVar(&set, "set", nil, "Column assignment col=value; repeatable")
	cmd.Flags().StringVar(&shadow, "shadow", "", "New shadow document")
	cmd.Flags().StringVar(&shadowFile, "shadow-file", "", "Read the shadow document from a file (- for stdin)")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <thing_name>",
		Short: "Delete a thing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := a.open()
			if err != nil {
				return err
			}
			defer table.Close(context.WithoutCancel(cmd.Context()))

			if err := table.Delete(withQueryID(cmd.Context()), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %s\n", args[0])
			return nil
		},
	}
}

func (a *app) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the registry is reachable with the configured credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := a.open()
			if err != nil {
				return err
			}
			defer table.Close(context.WithoutCancel(cmd.Context()))

			if err := table.Health(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "ok")
			return nil
		},
	}
}

// printRow writes a mutation result the same way scan writes rows.
func (a *app) printRow(ctx context.Context, row core.Row) error {
	sink, err := export.Open(ctx, config.ExportConfig{Target: "-"}, export.WithStdout(a.out), export.WithLogger(a.log))
	if err != nil {
		return err
	}
	_, copyErr := sink.Copy(ctx, core.NewSliceIterator([]core.Row{row}))
	if err := sink.Close(); err != nil && copyErr == nil {
		copyErr = err
	}
	return copyErr
}

// readInput reads path ("-" for stdin), decompressing .gz, .lz4 and .zst files.
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := compression.NewReader(f, compression.ForPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}
