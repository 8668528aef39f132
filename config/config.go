// Package config defines the structures to configure the arm pathfinder and the
// messenger it talks over.
package config

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/armpathfinder/kinematics"
	"go.viam.com/armpathfinder/logging"
	"go.viam.com/armpathfinder/messenger"
	"go.viam.com/armpathfinder/motionplan"
	"go.viam.com/armpathfinder/services/armpathfinder"
)

// DefaultMessengerAddress is where the messenger broker listens by default.
const DefaultMessengerAddress = "localhost:5805"

// Config describes a pathfinder process.
type Config struct {
	ConfigFilePath string `json:"-"`

	Messenger     Messenger `json:"messenger"`
	MessagePrefix string    `json:"message_prefix"`
	Finder        string    `json:"finder"`
	// PlanningBudget bounds each plan. Zero means unbounded.
	PlanningBudget Duration              `json:"planning_budget"`
	StatsInterval  Duration              `json:"stats_interval,omitempty"`
	StateSpace     motionplan.StateSpace `json:"state_space"`
	Arm            kinematics.ArmConfig  `json:"arm"`
	Log            Log                   `json:"log"`
}

// Messenger describes how to reach the messenger broker.
type Messenger struct {
	Address           string   `json:"address"`
	Name              string   `json:"name"`
	HeartbeatInterval Duration `json:"heartbeat_interval"`
	HeartbeatTimeout  Duration `json:"heartbeat_timeout,omitempty"`
	ReconnectMaxWait  Duration `json:"reconnect_max_wait"`
}

// Log configures logging output.
type Log struct {
	Level logging.Level `json:"level"`
	// File additionally writes logs to a rotated file when set.
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
}

// Default returns the configuration of the competition robot.
func Default() Config {
	return Config{
		Messenger: Messenger{
			Address:           DefaultMessengerAddress,
			Name:              "Pathfinder",
			HeartbeatInterval: Duration(time.Second),
			ReconnectMaxWait:  Duration(10 * time.Second),
		},
		MessagePrefix:  armpathfinder.DefaultMessagePrefix,
		Finder:         motionplan.FinderThetaStar,
		PlanningBudget: Duration(2 * time.Second),
		StateSpace:     motionplan.DefaultStateSpace(),
		Arm:            kinematics.DefaultArmConfig(),
		Log: Log{
			Level:      logging.INFO,
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate() error {
	if err := c.Messenger.Validate("messenger"); err != nil {
		return err
	}
	if c.MessagePrefix == "" {
		return utils.NewConfigValidationFieldRequiredError("", "message_prefix")
	}
	if _, err := motionplan.FinderByName(c.Finder); err != nil {
		return utils.NewConfigValidationError("finder", err)
	}
	if c.PlanningBudget < 0 {
		return utils.NewConfigValidationError("planning_budget", errors.New("must not be negative"))
	}
	if c.StatsInterval < 0 {
		return utils.NewConfigValidationError("stats_interval", errors.New("must not be negative"))
	}
	if err := c.StateSpace.Validate("state_space"); err != nil {
		return err
	}
	if err := c.Arm.Validate("arm"); err != nil {
		return err
	}
	return c.Log.Validate("log")
}

// Validate ensures all parts of the config are valid.
func (m *Messenger) Validate(path string) error {
	if m.Address == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "address")
	}
	if m.Name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if len(m.Name) > messenger.MaxNameLength {
		return utils.NewConfigValidationError(path, messenger.ErrNameTooLong)
	}
	if m.HeartbeatInterval <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "heartbeat_interval")
	}
	if m.HeartbeatTimeout < 0 {
		return utils.NewConfigValidationError(path, errors.New("heartbeat_timeout must not be negative"))
	}
	if m.HeartbeatTimeout > 0 && m.HeartbeatTimeout <= m.HeartbeatInterval {
		return utils.NewConfigValidationError(path,
			errors.Errorf("heartbeat_timeout %v must be longer than heartbeat_interval %v", m.HeartbeatTimeout, m.HeartbeatInterval))
	}
	if m.ReconnectMaxWait <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "reconnect_max_wait")
	}
	return nil
}

// ClientConfig converts the section into messenger client settings.
func (m *Messenger) ClientConfig() messenger.ClientConfig {
	return messenger.ClientConfig{
		Address:           m.Address,
		Name:              m.Name,
		HeartbeatInterval: time.Duration(m.HeartbeatInterval),
		HeartbeatTimeout:  time.Duration(m.HeartbeatTimeout),
		ReconnectMaxWait:  time.Duration(m.ReconnectMaxWait),
	}
}

// Validate ensures all parts of the config are valid.
func (l *Log) Validate(path string) error {
	if l.File == "" {
		return nil
	}
	if l.MaxSizeMB <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "max_size_mb")
	}
	if l.MaxBackups < 0 {
		return utils.NewConfigValidationError(path, errors.New("max_backups must not be negative"))
	}
	return nil
}

// ServiceConfig returns the planning service settings.
func (c *Config) ServiceConfig() armpathfinder.Config {
	return armpathfinder.Config{
		MessagePrefix:  c.MessagePrefix,
		PlanningBudget: time.Duration(c.PlanningBudget),
		StatsInterval:  time.Duration(c.StatsInterval),
	}
}

// PlannerOptions returns the planner settings.
func (c *Config) PlannerOptions() motionplan.Options {
	return motionplan.Options{Finder: c.Finder}
}

// Duration is a time.Duration written in JSON as a string such as "1.5s".
type Duration time.Duration

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch value := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return errors.Wrapf(err, "invalid duration %q", value)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(value)
	default:
		return errors.Errorf("invalid duration %s", string(data))
	}
	return nil
}
