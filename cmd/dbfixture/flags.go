package main

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/elvinchan/dbfixture"
	"github.com/elvinchan/dbfixture/leveldb"
	"github.com/elvinchan/dbfixture/mongodb"
	"github.com/elvinchan/dbfixture/rdb"
	"github.com/elvinchan/dbfixture/service"
	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"
)

const (
	DefaultVerbosity = "INFO"
	DefaultDriver    = "mongodb"
)

var (
	allowedVerbosities = []string{"DEBUG", "INFO", "WARN", "ERROR"}
	allowedDrivers     = []string{"mongodb", "sqlite", "mysql", "postgres", "leveldb", "rpc"}
)

func oneOf(name string, allowed []string) func(*cli.Context, string) error {
	return func(_ *cli.Context, v string) error {
		if !slices.Contains(allowed, v) {
			return fmt.Errorf("unsupported %s %q (%s)",
				name, v, strings.Join(allowed, ","))
		}
		return nil
	}
}

// flags returns the global flags and the Before func that reads them from
// an optional YAML config file.
func flags() ([]cli.Flag, cli.BeforeFunc) {
	fs := []cli.Flag{
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:    "verbosity",
			Usage:   fmt.Sprintf("log level (%s)", strings.Join(allowedVerbosities, ",")),
			Value:   DefaultVerbosity,
			EnvVars: []string{"DBFIXTURE_VERBOSITY"},
			Action:  oneOf("verbosity", allowedVerbosities),
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:    "driver",
			Usage:   fmt.Sprintf("database driver (%s)", strings.Join(allowedDrivers, ",")),
			Value:   DefaultDriver,
			EnvVars: []string{"DBFIXTURE_DRIVER"},
			Action:  oneOf("driver", allowedDrivers),
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name: "uri",
			Usage: "connection string, DSN or path; for rpc " +
				"unix:///path/to.sock or tcp://host:port",
			Aliases: []string{"u"},
			EnvVars: []string{"DBFIXTURE_URI"},
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:    "db",
			Usage:   "database name (mongodb only)",
			EnvVars: []string{"DBFIXTURE_DB"},
		}),
		altsrc.NewIntFlag(&cli.IntFlag{
			Name:    "concurrency",
			Usage:   "max concurrent deletes per truncate, 0 for no limit",
			EnvVars: []string{"DBFIXTURE_CONCURRENCY"},
		}),
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path of a YAML config file",
		},
	}
	return fs, altsrc.InitInputSourceWithContext(fs, altsrc.NewYamlSourceFromFlagFunc("config"))
}

// parseRPCAddress splits unix:///tmp/f.sock or tcp://host:port into the
// arguments of net.Dial.
func parseRPCAddress(uri string) (network, address string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", err
	}
	switch u.Scheme {
	case "unix":
		address = u.Path
	case "tcp", "tcp4", "tcp6":
		address = u.Host
	default:
		return "", "", fmt.Errorf("unsupported rpc address %q", uri)
	}
	if address == "" {
		return "", "", fmt.Errorf("missing rpc address in %q", uri)
	}
	return u.Scheme, address, nil
}

func openDriver(c *cli.Context, opts ...dbfixture.Option) (dbfixture.Driver, error) {
	uri := c.String("uri")
	if uri == "" {
		return nil, errors.New("missing --uri")
	}
	switch c.String("driver") {
	case "mongodb":
		return mongodb.NewDriver(mongodb.Config{
			ConnectURI:   uri,
			DatabaseName: c.String("db"),
		}, opts...)
	case "sqlite":
		return rdb.NewDriver(rdb.DriverSqlite3, uri, opts...)
	case "mysql":
		return rdb.NewDriver(rdb.DriverMySQL, uri, opts...)
	case "postgres":
		return rdb.NewDriver(rdb.DriverPostgres, uri, opts...)
	case "leveldb":
		return leveldb.NewDriver(uri, opts...)
	case "rpc":
		network, address, err := parseRPCAddress(uri)
		if err != nil {
			return nil, err
		}
		return service.DialFixtureService(network, address)
	}
	return nil, dbfixture.ErrUnsupportedDriver
}
