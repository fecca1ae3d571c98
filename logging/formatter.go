package logging

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

const (
	OutcomeField   = "outcome"
	OutcomeSuccess = "success"

	MarkerSuccess = "✅"
	MarkerInfo    = "ℹ️"
	MarkerWarning = "⚠️"
	MarkerError   = "❌"
	MarkerDebug   = "🔍"
)

const defaultTimestampFormat = "2006-01-02 15:04:05"

// MarkerFormatter renders "<timestamp> <marker> <message> key=value ...".
type MarkerFormatter struct {
	TimestampFormat string
}

func (formatter *MarkerFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestampFormat := formatter.TimestampFormat
	if timestampFormat == "" {
		timestampFormat = defaultTimestampFormat
	}

	buffer := entry.Buffer
	if buffer == nil {
		buffer = &bytes.Buffer{}
	}

	fmt.Fprintf(buffer, "%s %s %s", entry.Time.Format(timestampFormat), Marker(entry), entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for key := range entry.Data {
		if key == OutcomeField {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(buffer, " %s=%v", key, entry.Data[key])
	}
	buffer.WriteByte('\n')

	return buffer.Bytes(), nil
}

func Marker(entry *logrus.Entry) string {
	switch entry.Level {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		return MarkerError
	case logrus.WarnLevel:
		return MarkerWarning
	case logrus.InfoLevel:
		if entry.Data[OutcomeField] == OutcomeSuccess {
			return MarkerSuccess
		}
		return MarkerInfo
	default:
		return MarkerDebug
	}
}

// Success tags an entry so it renders with the success marker.
func Success(logger logrus.FieldLogger) *logrus.Entry {
	return logger.WithField(OutcomeField, OutcomeSuccess)
}

// Configure applies the verbosity and output format shared by all commands.
func Configure(logger *logrus.Logger, verbosity string, structured bool) error {
	level, err := logrus.ParseLevel(verbosity)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", verbosity, err)
	}
	logger.SetLevel(level)
	logger.SetFormatter(&MarkerFormatter{})
	if structured {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}
