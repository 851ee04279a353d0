package mocklogger

import (
	"testing"

	"github.com/hugolhafner/go-kafka-rest/logger"
)

func (m *MockLogger) AssertCalledWithMessage(tb testing.TB, message string) {
	tb.Helper()

	for _, entry := range m.Entries() {
		if entry.Message == message {
			return
		}
	}

	tb.Errorf("expected log message '%s' to be called", message)
}

func (m *MockLogger) AssertCalledWithLevelAndMessage(tb testing.TB, level logger.LogLevel, message string) {
	tb.Helper()

	for _, entry := range m.Entries() {
		if entry.Level == level && entry.Message == message {
			return
		}
	}

	tb.Errorf("expected log with level '%s' and message '%s' to be called", level.String(), message)
}

func (m *MockLogger) AssertNotCalledWithLevel(tb testing.TB, level logger.LogLevel) {
	tb.Helper()

	for _, entry := range m.Entries() {
		if entry.Level == level {
			tb.Errorf("expected log level '%s' to NOT be called, got '%s'", level.String(), entry.Message)
			return
		}
	}
}

// AssertCalledWithKV checks that some entry with the message carries key set to value.
func (m *MockLogger) AssertCalledWithKV(tb testing.TB, message string, key string, value any) {
	tb.Helper()

	for _, entry := range m.Entries() {
		if entry.Message != message {
			continue
		}

		for i := 0; i+1 < len(entry.KV); i += 2 {
			if entry.KV[i] == key && entry.KV[i+1] == value {
				return
			}
		}
	}

	tb.Errorf("expected log '%s' with %s=%v to be called", message, key, value)
}
