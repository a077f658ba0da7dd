package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestStartup_StartsInDependencyOrderAndStopsInReverse(t *testing.T) {
	var events []string
	dep := func(name string, requires ...string) *Dependency {
		return &Dependency{
			Name:     name,
			Requires: requires,
			OnStart:  func(context.Context) error { events = append(events, "start:"+name); return nil },
			OnStop:   func(context.Context) error { events = append(events, "stop:"+name); return nil },
		}
	}

	s := NewStartup(testLogger(), 1)
	s.AddDependency(dep("http", "database", "redis"))
	s.AddDependency(dep("database"))
	s.AddDependency(dep("redis"))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start:database", "start:redis", "start:http"}, events)

	events = nil
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop:http", "stop:redis", "stop:database"}, events)
}

func TestStartup_RetriesFailedDependency(t *testing.T) {
	attempts := 0
	s := NewStartup(testLogger(), 3)
	s.backoffUnit = time.Millisecond
	s.AddDependency(&Dependency{
		Name: "database",
		OnStart: func(context.Context) error {
			attempts++
			if attempts < 2 {
				return errors.New("connection refused")
			}
			return nil
		},
	})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 2, attempts)
}

func TestStartup_GivesUpAfterMaxAttempts(t *testing.T) {
	s := NewStartup(testLogger(), 2)
	s.backoffUnit = time.Millisecond
	s.AddDependency(&Dependency{
		Name:    "kafka",
		OnStart: func(context.Context) error { return errors.New("no brokers") },
	})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers")
}

func TestStartup_UnknownDependency(t *testing.T) {
	s := NewStartup(testLogger(), 1)
	s.AddDependency(&Dependency{Name: "http", Requires: []string{"database"}})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown startup dependency")
}
