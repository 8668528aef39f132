// Package main runs the arm pathfinder, answering path requests sent over the messenger.
package main

import (
	"context"

	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/armpathfinder/config"
	"go.viam.com/armpathfinder/logging"
	"go.viam.com/armpathfinder/messenger"
	"go.viam.com/armpathfinder/motionplan"
	"go.viam.com/armpathfinder/services/armpathfinder"
)

var logger = logging.NewLogger("armpathfinder")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	ConfigFile string `flag:"config,usage=pathfinder config file; the built in robot config is used when empty"`
	Debug      bool   `flag:"debug,usage=enable debug logging"`
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) (err error) {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	cfg := config.Default()
	if argsParsed.ConfigFile != "" {
		read, err := config.Read(argsParsed.ConfigFile)
		if err != nil {
			return err
		}
		cfg = *read
	}

	logger.SetLevel(cfg.Log.Level)
	if argsParsed.Debug {
		logger.SetLevel(logging.DEBUG)
	}
	if cfg.Log.File != "" {
		fileAppender := logging.NewFileAppender(cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)
		logger.AddAppender(fileAppender)
		defer func() {
			err = multierr.Combine(err, logger.Sync(), fileAppender.Close())
		}()
	}

	planner, err := motionplan.NewPlanner(cfg.Arm, cfg.StateSpace, cfg.PlannerOptions(), logger.Sublogger("planner"))
	if err != nil {
		return err
	}

	client, err := messenger.NewClient(cfg.Messenger.ClientConfig(), logger.Sublogger("messenger"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, client.Close())
	}()

	svc := armpathfinder.NewService(planner, client, cfg.ServiceConfig(), logger.Sublogger("service"))
	return svc.Run(ctx)
}
