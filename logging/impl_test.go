package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.viam.com/test"
)

type waypoint struct {
	Bottom float64
	Top    float64
	note   string
}

// splitLine reads one log line and returns its tab delimited parts.
func splitLine(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	output, err := buf.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)
	return strings.Split(strings.TrimSuffix(output, "\n"), "\t")
}

func TestConsoleAppenderFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewBlankLogger("")
	logger.AddAppender(NewWriterAppender(&buf))

	logger.Info("planner ready")
	parts := splitLine(t, &buf)
	test.That(t, parts, test.ShouldHaveLength, 4)
	test.That(t, len(parts[0]), test.ShouldEqual, len(DefaultTimeFormatStr))
	test.That(t, parts[1], test.ShouldEqual, "INFO")
	test.That(t, parts[2], test.ShouldStartWith, "logging/impl_test.go:")
	test.That(t, parts[3], test.ShouldEqual, "planner ready")

	logger.Debugf("expanded %d nodes", 12)
	parts = splitLine(t, &buf)
	test.That(t, parts[1], test.ShouldEqual, "DEBUG")
	test.That(t, parts[3], test.ShouldEqual, "expanded 12 nodes")
}

func TestStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewBlankLogger("svc")
	logger.AddAppender(NewWriterAppender(&buf))

	logger.Infow("path found", "waypoints", 3, "start", waypoint{Bottom: 1, Top: 2, note: "hidden"})
	parts := splitLine(t, &buf)
	test.That(t, parts, test.ShouldHaveLength, 6)
	test.That(t, parts[2], test.ShouldEqual, "svc")

	fields := map[string]any{}
	test.That(t, json.Unmarshal([]byte(parts[5]), &fields), test.ShouldBeNil)
	test.That(t, fields["waypoints"], test.ShouldEqual, 3.0)
	test.That(t, fields["start"], test.ShouldResemble, map[string]any{"Bottom": 1.0, "Top": 2.0})

	logger.Warnw("dangling", "key")
	parts = splitLine(t, &buf)
	test.That(t, parts[5], test.ShouldContainSubstring, "unpaired log key")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewBlankLogger("filter")
	logger.AddAppender(NewWriterAppender(&buf))

	logger.SetLevel(WARN)
	test.That(t, logger.GetLevel(), test.ShouldEqual, WARN)
	logger.Debug("dropped")
	logger.Info("dropped")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	logger.Error("kept")
	parts := splitLine(t, &buf)
	test.That(t, parts[1], test.ShouldEqual, "ERROR")
}

func TestSublogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewBlankLogger("armpathfinder")
	logger.AddAppender(NewWriterAppender(&buf))

	sub := logger.Sublogger("messenger")
	sub.Info("connected")
	parts := splitLine(t, &buf)
	test.That(t, parts[2], test.ShouldEqual, "armpathfinder.messenger")

	// appenders added later are shared with existing subloggers
	var other bytes.Buffer
	logger.AddAppender(NewWriterAppender(&other))
	sub.Info("again")
	test.That(t, other.Len(), test.ShouldBeGreaterThan, 0)

	// levels are not
	sub.SetLevel(ERROR)
	test.That(t, logger.GetLevel(), test.ShouldEqual, DEBUG)
}

func TestObservedTestLogger(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	logger.Warnw("request dropped", "error", "short payload")

	entries := observed.FilterMessage("request dropped").All()
	test.That(t, entries, test.ShouldHaveLength, 1)
	test.That(t, entries[0].ContextMap()["error"], test.ShouldEqual, "short payload")

	logger.AsZap().Infow("through zap", "k", "v")
	test.That(t, observed.FilterMessage("through zap").Len(), test.ShouldEqual, 1)
	test.That(t, logger.Sync(), test.ShouldBeNil)
}

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		input    string
		expected Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warn", WARN},
		{"warning", WARN},
		{"error", ERROR},
	} {
		level, err := LevelFromString(tc.input)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.expected)
	}

	_, err := LevelFromString("verbose")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLevelJSON(t *testing.T) {
	data, err := json.Marshal(WARN)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, `"warn"`)

	var level Level
	test.That(t, json.Unmarshal([]byte(`"error"`), &level), test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, ERROR)
	test.That(t, json.Unmarshal([]byte(`"loud"`), &level), test.ShouldNotBeNil)
}
