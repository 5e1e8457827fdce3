package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mmo-fsw/maxbuild/model"
	awsconfig "github.com/mmo-fsw/maxbuild/service/aws_config"
	"github.com/mmo-fsw/maxbuild/service/config"
	"github.com/mmo-fsw/maxbuild/service/output"
	"github.com/mmo-fsw/maxbuild/service/publish"
	"github.com/mmo-fsw/maxbuild/service/storage"
	"github.com/mmo-fsw/maxbuild/shared/spinner"
	"github.com/spf13/pflag"
)

func runSubcommand(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "db":
		return runDBCommand(ctx, args)
	case "history":
		return runHistoryCommand(args)
	case "publish":
		return runPublishCommand(ctx, args)
	case "config":
		return runConfigCommand(args)
	default:
		return fmt.Errorf("unsupported command: %s", cmd)
	}
}

func runDBCommand(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("db", pflag.ContinueOnError)
	dbPath := fs.String("db-path", "", "SQLite database path")
	olderThan := fs.Int("older-than", 90, "Purge history older than N days")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: maxbuild db <vacuum|reindex|purge> [--db-path ...]")
	}

	store, err := storage.NewService(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	return dbCommand(ctx, store, rest[0], *olderThan, os.Stdout)
}

func dbCommand(ctx context.Context, store storage.Service, sub string, olderThan int, w io.Writer) error {
	switch sub {
	case "vacuum":
		return store.Vacuum(ctx)
	case "reindex":
		return store.Reindex(ctx)
	case "purge":
		if olderThan < 0 {
			return fmt.Errorf("--older-than must not be negative")
		}
		count, err := store.PurgeOlderThan(ctx, olderThan)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Purged %d builds and installs\n", count)
		return nil
	default:
		return fmt.Errorf("unsupported db command: %s", sub)
	}
}

type historyOptions struct {
	program string
	limit   int
	days    int
}

func runHistoryCommand(args []string) error {
	fs := pflag.NewFlagSet("history", pflag.ContinueOnError)
	dbPath := fs.String("db-path", "", "SQLite database path")
	program := fs.StringP("program", "p", "", "Program filter")
	limit := fs.Int("limit", 20, "Number of rows to list")
	days := fs.Int("days", 30, "Days of trend data")
	format := fs.StringP("output", "o", "table", "Output format (table or json)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: maxbuild history <builds|installs|steps|trend>")
	}

	store, err := storage.NewService(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := historyOptions{program: *program, limit: *limit, days: *days}
	return historyCommand(store, output.NewService(*format), rest, opts)
}

func historyCommand(store storage.Service, out output.Service, rest []string, opts historyOptions) error {
	switch rest[0] {
	case "builds":
		records, err := store.RecentBuilds(opts.program, opts.limit)
		if err != nil {
			return err
		}
		return out.BuildHistory(records)
	case "installs":
		records, err := store.RecentInstalls(opts.program, opts.limit)
		if err != nil {
			return err
		}
		return out.InstallHistory(records)
	case "steps":
		if len(rest) < 2 {
			return fmt.Errorf("usage: maxbuild history steps <install-id>")
		}
		steps, err := store.InstallSteps(rest[1])
		if err != nil {
			return err
		}
		if len(steps) == 0 {
			return fmt.Errorf("no install recorded with id %s", rest[1])
		}
		return out.Installs([]*model.InstallReport{{Program: rest[1], Action: "history", Steps: steps}})
	case "trend":
		points, err := store.BuildTrend(opts.program, opts.days)
		if err != nil {
			return err
		}
		return out.Trend(points)
	default:
		return fmt.Errorf("unsupported history command: %s", rest[0])
	}
}

func runPublishCommand(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("publish", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "maxbuild.yaml", "Path to the project manifest")
	programs := fs.StringSliceP("program", "p", nil, "Programs to publish (default all)")
	bucket := fs.String("bucket", "", "Destination S3 bucket")
	prefix := fs.String("prefix", "", "Key prefix inside the bucket")
	region := fs.String("region", "", "AWS region")
	profile := fs.String("profile", "", "AWS profile")
	format := fs.StringP("output", "o", "table", "Output format (table or json)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *bucket == "" {
		return fmt.Errorf("usage: maxbuild publish --bucket B [--prefix P] [--region R] [--profile X]")
	}

	configService := config.NewService()
	project, err := configService.Load(model.Flags{ConfigPath: *configPath})
	if err != nil {
		return err
	}
	progs, err := configService.Select(project, *programs)
	if err != nil {
		return err
	}

	cfg, err := awsconfig.NewService().Load(ctx, *region, *profile)
	if err != nil {
		return err
	}

	spinner.StartSpinner("Uploading bundles to s3://" + *bucket)
	result, err := publish.NewService(cfg).Publish(ctx, project, progs, publish.Options{Bucket: *bucket, Prefix: *prefix})
	spinner.StopSpinner()
	if err != nil {
		return err
	}
	return output.NewService(*format).Publish(result)
}

func runConfigCommand(args []string) error {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "maxbuild.yaml", "Path to the project manifest")
	arch := fs.String("arch", "", "Target architecture: x86 or arm")
	format := fs.StringP("output", "o", "table", "Output format (table prints YAML, or json)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	configService := config.NewService()
	project, err := configService.Load(model.Flags{ConfigPath: *configPath, Arch: *arch})
	if err != nil {
		return err
	}
	return configCommand(configService, output.NewService(*format), project)
}

func configCommand(configService config.Service, out output.Service, project *model.Project) error {
	dump, err := configService.Dump(project)
	if err != nil {
		return err
	}
	return out.Project(project, dump)
}
