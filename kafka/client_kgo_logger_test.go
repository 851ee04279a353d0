//go:build unit

package kafka

import (
	"testing"

	"github.com/hugolhafner/go-kafka-rest/logger"
	mocklogger "github.com/hugolhafner/go-kafka-rest/logger/mock"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

func TestKgoLogger_Levels(t *testing.T) {
	t.Parallel()
	tests := []struct {
		kgoLevel kgo.LogLevel
		level    logger.LogLevel
	}{
		{kgo.LogLevelDebug, logger.DebugLevel},
		{kgo.LogLevelInfo, logger.InfoLevel},
		{kgo.LogLevelWarn, logger.WarnLevel},
		{kgo.LogLevelError, logger.ErrorLevel},
	}

	for _, tt := range tests {
		require.Equal(t, tt.level, mapFromKgoLevel(tt.kgoLevel))
		require.Equal(t, tt.kgoLevel, mapToKgoLevel(tt.level))
	}
}

func TestKgoLogger_Forwards(t *testing.T) {
	t.Parallel()
	l := mocklogger.New()
	kl := newKgoLogger(l)

	kl.Log(kgo.LogLevelWarn, "metadata refresh failed", "broker", 1)

	require.Equal(t, kgo.LogLevelDebug, kl.Level())
	l.AssertCalledWithLevelAndMessage(t, logger.WarnLevel, "metadata refresh failed")
}

func TestNewKgoClient_RequiresBrokers(t *testing.T) {
	t.Parallel()
	_, err := NewKgoClient(WithBootstrapServers(nil))
	require.Error(t, err)
}
