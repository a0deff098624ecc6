package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParsesLevelAndFormatter(t *testing.T) {
	log, err := New(Options{Level: "debug", Production: true})
	require.NoError(t, err)

	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
}

func TestNewFallsBackToInfo(t *testing.T) {
	log, err := New(Options{Level: "chatty"})
	require.NoError(t, err)

	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "reports.log")
	log, err := New(Options{Level: "info", File: path, Production: true})
	require.NoError(t, err)

	log.WithField("component", "test").Info("report generated")

	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "report generated")
	assert.Contains(t, string(payload), `"component":"test"`)
}

func TestDevelopmentLoggerReportsCaller(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.log")
	log, err := New(Options{Level: "info", File: path})
	require.NoError(t, err)
	assert.True(t, log.ReportCaller)

	log.Info("snapshot fetched")

	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "logger_test.go:")
	assert.Contains(t, string(payload), "TestDevelopmentLoggerReportsCaller")
}
