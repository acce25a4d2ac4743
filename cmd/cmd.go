package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/urfave/cli/v2"

	"github.com/webitel/benefit-solver/config"
)

const (
	ServiceName      = "benefit-solver"
	ServiceNamespace = "webitel"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

// overridable lists the config keys that can be set from the command line.
var overridable = []string{
	"log.level",
	"broker.driver",
	"broker.url",
	"broker.topic",
	"http.addr",
}

func Run() error {
	app := &cli.App{
		Name:    ServiceName,
		Usage:   "Answers benefit-period needs on the rapid",
		Version: version,
		Commands: []*cli.Command{
			serverCmd(),
		},
	}

	return app.Run(os.Args)
}

func serverCmd() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "config_file",
			Usage: "Path to the configuration file",
		},
	}
	for _, key := range overridable {
		flags = append(flags, &cli.StringFlag{Name: key, Usage: "Overrides " + key})
	}

	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Run the rapid consumer",
		Flags:   flags,
		Action: func(c *cli.Context) error {
			overrides, err := flagOverrides(c)
			if err != nil {
				return err
			}
			cfg, err := config.LoadConfig(c.String("config_file"), overrides)
			if err != nil {
				return err
			}
			app := NewApp(cfg)

			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("Shutting down...")
			return app.Stop(context.Background())
		},
	}
}

// flagOverrides copies the flags given on the command line into a pflag set for viper.
// Flags left unset stay out of it so they never shadow the file or environment.
func flagOverrides(c *cli.Context) (*pflag.FlagSet, error) {
	fs := pflag.NewFlagSet(ServiceName, pflag.ContinueOnError)
	for _, key := range overridable {
		if !c.IsSet(key) {
			continue
		}
		fs.String(key, "", "")
		if err := fs.Set(key, c.String(key)); err != nil {
			return nil, err
		}
	}
	return fs, nil
}
