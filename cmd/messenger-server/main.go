// Package main runs a messenger broker.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/armpathfinder/logging"
	"go.viam.com/armpathfinder/messenger"
)

const defaultPort = 5805

var logger = logging.NewLogger("messenger")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	Port        utils.NetPortFlag `flag:"port,usage=port to listen on"`
	ReadTimeout string            `flag:"read-timeout,usage=drop clients silent for this long (default 5s)"`
	QueueSize   int               `flag:"queue-size,usage=messages buffered per client"`
	LogFile     string            `flag:"log-file,usage=also write the message and event log to this file"`
	Debug       bool              `flag:"debug,usage=log every forwarded message"`
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) (err error) {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	if argsParsed.Port == 0 {
		argsParsed.Port = defaultPort
	}
	if argsParsed.Debug {
		logger.SetLevel(logging.DEBUG)
	}
	if argsParsed.LogFile != "" {
		fileAppender := logging.NewFileAppender(argsParsed.LogFile, 10, 3)
		logger.AddAppender(fileAppender)
		defer func() {
			err = multierr.Combine(err, logger.Sync(), fileAppender.Close())
		}()
	}

	var readTimeout time.Duration
	if argsParsed.ReadTimeout != "" {
		readTimeout, err = time.ParseDuration(argsParsed.ReadTimeout)
		if err != nil {
			return errors.Wrap(err, "invalid read-timeout")
		}
	}

	broker := messenger.NewBroker(messenger.BrokerConfig{
		ReadTimeout: readTimeout,
		QueueSize:   argsParsed.QueueSize,
	}, logger)
	return broker.ListenAndServe(ctx, fmt.Sprintf(":%d", argsParsed.Port))
}
