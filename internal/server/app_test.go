package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/fintrack/internal/server/config"
)

func TestNewApp_InvalidLogConfig(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()
	c.LogBackend = "syslog"

	_, err := NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "unknown log backend")
}
