// Command oraconsole is a small shell around the adapter: it opens a
// session from a YAML configuration and runs one command against it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"gorm.io/driver/oracle"
	_ "gorm.io/driver/oracle/dialects/oci"
	_ "gorm.io/driver/oracle/dialects/thin"
	"gorm.io/driver/oracle/logger"
)

// globalFlags are shared by every command.
type globalFlags struct {
	config    *string
	driver    *string
	logLevel  *string
	logFormat *string
}

func (g *globalFlags) logger() logger.Interface {
	level, ok := logger.ParseLevel(*g.logLevel)
	if !ok {
		exitWithErr(fmt.Errorf("unknown log level %q", *g.logLevel))
	}
	// the command prints a failed lookup itself
	cfg := logger.Config{LogLevel: level, IgnoreNotFoundError: true, NotFoundError: oracle.ErrNotFound}

	switch *g.logFormat {
	case "zap":
		l, err := zap.NewDevelopment()
		if err != nil {
			exitWithErr(err)
		}
		return logger.NewZapLogger(l, cfg)
	case "zerolog":
		return logger.NewZerologLogger(zerolog.New(os.Stderr).With().Timestamp().Logger(), cfg)
	case "slog":
		return logger.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)), cfg)
	}
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger.NewLogrusLogger(l, cfg)
}

// open connects with the configuration file and the flags layered on top.
func (g *globalFlags) open(ctx context.Context) *oracle.RecoveringConnection {
	cfg, err := oracle.LoadConfig(*g.config)
	if err != nil {
		exitWithErr(err)
	}
	if *g.driver != "" {
		cfg.Driver = *g.driver
	}
	conn, err := oracle.Open(ctx, cfg, oracle.WithLogger(g.logger()))
	if err != nil {
		exitWithErr(fmt.Errorf("failed to connect: %w", err))
	}
	return conn
}

func main() {
	app := kingpin.New("oraconsole", "Run statements against an Oracle database.")
	g := &globalFlags{
		config:    app.Flag("config", "YAML file with the connection configuration.").Short('c').Required().ExistingFile(),
		driver:    app.Flag("driver", "Backend to use, overriding the configuration.").Enum(oracle.Dialects()...),
		logLevel:  app.Flag("log-level", "silent, error, warn or info.").Default("warn").String(),
		logFormat: app.Flag("log-format", "logrus, zap, zerolog or slog.").Default("logrus").Enum("logrus", "zap", "zerolog", "slog"),
	}

	addPingCommand(app, g)
	addDescribeCommand(app, g)
	addExecCommand(app, g)
	addQueryCommand(app, g)
	addLOBCommand(app, g)

	kingpin.MustParse(app.Parse(os.Args[1:]))
}

func exitWithErr(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
