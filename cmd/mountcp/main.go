// mountcp copies files and directory trees between configured mounts.
//
//	mountcp --config mounts.yaml site:reports/2026 backup:reports/2026
//	mountcp --config mounts.yaml --skip hash --exclude '*.tmp' site:assets s3docs:assets
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	_ "github.com/softwell/mountfs/backend/all" // register all backends
	"github.com/softwell/mountfs/config"
	"github.com/softwell/mountfs/mount"
)

func main() {
	app := cli.NewApp()
	app.Name = "mountcp"
	app.Usage = "Copies a file or directory tree from one configured mount to another"
	app.ArgsUsage = "<source address> <target address>   (addresses take the form mount:relative/path)"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config",
			Usage:  "mount configuration file",
			Value:  "mounts.yaml",
			EnvVar: "MOUNTFS_CONFIG",
		},
		cli.StringFlag{
			Name:  "skip",
			Usage: "skip strategy: never, exists, size, hash",
			Value: "never",
		},
		cli.StringSliceFlag{
			Name:  "include",
			Usage: "copy only base names matching the glob (repeatable)",
		},
		cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "skip base names matching the glob (repeatable)",
		},
		cli.BoolFlag{
			Name:  "quiet",
			Usage: "suppress per-file output",
		},
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "log mount configuration",
		},
	}
	app.Action = func(c *cli.Context) error {
		if err := checkArgs(c.Args().Get(0), c.Args().Get(1)); err != nil {
			return err
		}

		logLevel := slog.LevelWarn
		if c.Bool("verbose") {
			logLevel = slog.LevelInfo
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

		return run(c.String("config"), c.Args().Get(0), c.Args().Get(1),
			c.String("skip"), c.StringSlice("include"), c.StringSlice("exclude"),
			c.Bool("quiet"), logger)
	}

	if err := app.Run(os.Args); err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

func checkArgs(src, dst string) error {
	if src == "" || dst == "" {
		return errors.New("mountcp requires a source and a target address")
	}
	return nil
}

func run(configPath, srcAddr, dstAddr, skip string, include, exclude []string, quiet bool, logger *slog.Logger) error {
	m, err := config.Manager(configPath, mount.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	src, err := m.Node(srcAddr)
	if err != nil {
		return err
	}
	dst, err := m.Node(dstAddr)
	if err != nil {
		return err
	}

	opts := []mount.CopyOption{mount.WithSkip(mount.SkipStrategy(skip))}
	if len(include) > 0 {
		opts = append(opts, mount.WithInclude(include...))
	}
	if len(exclude) > 0 {
		opts = append(opts, mount.WithExclude(exclude...))
	}
	copied, skipped := 0, 0
	if !quiet {
		opts = append(opts,
			mount.WithOnFile(func(src, dst *mount.Node) {
				copied++
				fmt.Printf("%s %s -> %s\n", color.GreenString("copied"), src, dst)
			}),
			mount.WithOnSkip(func(src *mount.Node, reason string) {
				skipped++
				fmt.Printf("%s %s (%s)\n", color.YellowString("skipped"), src, reason)
			}),
		)
	}

	if _, err := src.CopyTo(context.Background(), dst, opts...); err != nil {
		return err
	}
	if !quiet {
		fmt.Printf("done: %d copied, %d skipped\n", copied, skipped)
	}
	return nil
}
