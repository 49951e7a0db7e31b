package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/attenberger/ftpkit"
)

// newDownloadCommand builds the "download" subcommand: -s/--src and
// -d/--dst may each repeat (cobra.StringArrayVarP); the orchestrator's
// classifier, not the flag parser, demotes single-item lists to scalars.
func newDownloadCommand(cfg *cliConfig) *cobra.Command {
	var srcs, dsts []string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download a file, batch of files, or directory tree from the FTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd, cfg, srcs, dsts, func(ctx context.Context, o *ftpkit.Orchestrator, src, dst string) error {
				return o.Download(ctx, src, dst)
			}, func(ctx context.Context, o *ftpkit.Orchestrator, srcs, dsts []string) error {
				return o.DownloadManyTo(ctx, srcs, dsts)
			}, func(ctx context.Context, o *ftpkit.Orchestrator, srcs []string, dst string) error {
				return o.DownloadMany(ctx, srcs, dst)
			})
		},
	}
	cmd.Flags().StringArrayVarP(&srcs, "src", "s", nil, "remote source path(s)")
	cmd.Flags().StringArrayVarP(&dsts, "dst", "d", nil, "local destination path(s)")
	return cmd
}

// newUploadCommand mirrors newDownloadCommand for local-to-remote transfers.
func newUploadCommand(cfg *cliConfig) *cobra.Command {
	var srcs, dsts []string

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a file, batch of files, or directory tree to the FTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd, cfg, srcs, dsts, func(ctx context.Context, o *ftpkit.Orchestrator, src, dst string) error {
				return o.Upload(ctx, src, dst)
			}, func(ctx context.Context, o *ftpkit.Orchestrator, srcs, dsts []string) error {
				return o.UploadManyTo(ctx, srcs, dsts)
			}, func(ctx context.Context, o *ftpkit.Orchestrator, srcs []string, dst string) error {
				return o.UploadMany(ctx, srcs, dst)
			})
		},
	}
	cmd.Flags().StringArrayVarP(&srcs, "src", "s", nil, "local source path(s)")
	cmd.Flags().StringArrayVarP(&dsts, "dst", "d", nil, "remote destination path(s)")
	return cmd
}

// runTransfer builds the ConnectionParameters, opens the pool and
// FileSystem, and dispatches srcs/dsts to one of the three supplied
// callbacks depending on how many of each were given: a single src and
// single dst go through the shape classifier (one); multiple srcs paired
// with multiple dsts require matched lengths (manyTo); multiple srcs with
// a single dst fan into that one directory (many).
func runTransfer(
	cmd *cobra.Command,
	cfg *cliConfig,
	srcs, dsts []string,
	one func(context.Context, *ftpkit.Orchestrator, string, string) error,
	manyTo func(context.Context, *ftpkit.Orchestrator, []string, []string) error,
	many func(context.Context, *ftpkit.Orchestrator, []string, string) error,
) error {
	if len(srcs) == 0 {
		return &ftpkit.ConfigError{Field: "src", Err: fmt.Errorf("at least one -s/--src is required")}
	}
	if len(dsts) == 0 {
		return &ftpkit.ConfigError{Field: "dst", Err: fmt.Errorf("at least one -d/--dst is required")}
	}

	creds := ftpkit.Credentials{Username: cfg.username, Password: cfg.password}
	params := &ftpkit.ConnectionParameters{
		Host:           cfg.host,
		Port:           cfg.port,
		Credentials:    creds,
		Timeout:        cfg.timeout,
		MaxConnections: cfg.maxConnections,
		MaxWorkers:     cfg.maxWorkers,
	}
	if err := params.Validate(); err != nil {
		return err
	}

	log, err := ftpkit.NewLogger(cfg.loggerLevel, cfg.loggerPath)
	if err != nil {
		return err
	}

	ctx, cancel := buildRootContext(cmd)
	defer cancel()

	pool := ftpkit.NewPool(params, log)
	if err := pool.Open(ctx); err != nil {
		if ctx.Err() != nil {
			return errInterrupted
		}
		return err
	}
	defer pool.Close(context.Background())

	fs := ftpkit.NewFileSystem(pool, params, log)
	engine := ftpkit.NewEngine(pool, params)
	orch := ftpkit.NewOrchestrator(fs, engine, params, log)
	if cfg.loggerInterval > 0 {
		if err := orch.SetLogInterval(cfg.loggerInterval); err != nil {
			return err
		}
	}

	var runErr error
	switch {
	case len(srcs) == 1 && len(dsts) == 1:
		runErr = one(ctx, orch, srcs[0], dsts[0])
	case len(dsts) == 1:
		runErr = many(ctx, orch, srcs, dsts[0])
	default:
		runErr = manyTo(ctx, orch, srcs, dsts)
	}

	if runErr != nil && ctx.Err() != nil {
		return errInterrupted
	}
	return runErr
}
