package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/elvinchan/dbfixture"
	"github.com/elvinchan/dbfixture/internal/logger"
	"github.com/elvinchan/dbfixture/service/server"
	"github.com/urfave/cli/v2"
)

func NewApp() *cli.App {
	fs, before := flags()
	return &cli.App{
		Name:      "dbfixture",
		Usage:     "Resets database state for test runs",
		UsageText: "dbfixture [options] command [arguments]",
		Flags:     fs,
		Before: func(c *cli.Context) error {
			if err := before(c); err != nil {
				return err
			}
			logger.Setup(logger.Options{
				Verbosity: c.String("verbosity"),
				Writer:    c.App.ErrWriter,
			})
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "truncate",
				Usage:     "delete every document of the given collections",
				ArgsUsage: "collection [collection...]",
				Action:    runTruncate,
			},
			{
				Name:      "load",
				Usage:     "truncate the collections of fixture files and insert their documents",
				ArgsUsage: "file [file...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-truncate",
						Usage: "insert without truncating first",
					},
				},
				Action: runLoad,
			},
			{
				Name:  "serve",
				Usage: "serve the driver as a fixture rpc service",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "network",
						Value:   "tcp",
						EnvVars: []string{"DBFIXTURE_NETWORK"},
					},
					&cli.StringFlag{
						Name:    "address",
						Value:   "127.0.0.1:7300",
						EnvVars: []string{"DBFIXTURE_ADDRESS"},
					},
				},
				Action: runServe,
			},
		},
	}
}

func driverOptions(c *cli.Context) []dbfixture.Option {
	opts := []dbfixture.Option{
		dbfixture.Logger(slog.Default()),
		dbfixture.Concurrency(c.Int("concurrency")),
	}
	if c.String("verbosity") == "DEBUG" {
		opts = append(opts, dbfixture.Debug())
	}
	return opts
}

// withDriver opens the configured driver, runs fn and closes the driver.
func withDriver(c *cli.Context, fn func(d dbfixture.Driver) error) (err error) {
	d, err := openDriver(c, driverOptions(c)...)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		if cerr := d.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close: %w", cerr)
		}
	}()
	return fn(d)
}

func runTruncate(c *cli.Context) error {
	collections := c.Args().Slice()
	if len(collections) == 0 {
		return errors.New("no collection given")
	}
	return withDriver(c, func(d dbfixture.Driver) error {
		if err := d.Truncate(collections); err != nil {
			return err
		}
		slog.Info("truncated", "collections", collections)
		return nil
	})
}

func runLoad(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("no fixture file given")
	}
	var set dbfixture.Set
	for _, path := range c.Args().Slice() {
		s, err := dbfixture.LoadFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		set = append(set, s...)
	}
	return withDriver(c, func(d dbfixture.Driver) error {
		if c.Bool("no-truncate") {
			for _, f := range set {
				if err := d.InsertFixtures(f.Collection, f.Documents); err != nil {
					return err
				}
			}
		} else if err := dbfixture.Apply(d, set); err != nil {
			return err
		}
		slog.Info("loaded fixtures", "collections", set.Collections())
		return nil
	})
}

func runServe(c *cli.Context) error {
	if c.String("driver") == "rpc" {
		return errors.New("cannot serve an rpc driver")
	}
	return withDriver(c, func(d dbfixture.Driver) error {
		network, address := c.String("network"), c.String("address")
		l, err := net.Listen(network, address)
		if err != nil {
			return err
		}
		go func() {
			<-c.Context.Done()
			l.Close()
		}()
		slog.Info("start listen", "network", network, "address", address)
		err = server.Serve(l, d)
		if c.Context.Err() != nil {
			return nil
		}
		return err
	})
}
