package logger

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Component loggers keep the structured fields and carry their name.
func TestProperty_ComponentLogsAreStructured(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("component log entries carry name and fields", prop.ForAll(
		func(component string, message string, orderNumber string) bool {
			core, logs := observer.New(zapcore.DebugLevel)
			log := Component(zap.New(core), component)

			log.Info(message, zap.String("order_number", orderNumber))

			entries := logs.All()
			if len(entries) != 1 {
				return false
			}
			entry := entries[0]
			if entry.LoggerName != component {
				t.Logf("FAIL: expected logger name %q, got %q", component, entry.LoggerName)
				return false
			}
			if entry.Message != message {
				return false
			}
			fields := entry.ContextMap()
			return fields["order_number"] == orderNumber
		},
		gen.Identifier(),
		gen.AnyString(),
		gen.RegexMatch(`TM-[0-9]{8}-[A-Z0-9]{8}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestComponentWithNilBase(t *testing.T) {
	log := Component(nil, "jobs")
	if log == nil {
		t.Fatal("Logger should not be nil")
	}
	log.Info("discarded")
}

func TestNewBuildsBothEnvironments(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		log, err := New(env)
		if err != nil {
			t.Fatalf("Failed to create %s logger: %v", env, err)
		}
		if log == nil {
			t.Fatalf("Logger for %s should not be nil", env)
		}
		_ = log.Sync()
	}
}

func TestProductionLoggerSkipsDebug(t *testing.T) {
	log, err := New("production")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	if log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("production logger should not emit debug entries")
	}
	if !log.Core().Enabled(zapcore.InfoLevel) {
		t.Error("production logger should emit info entries")
	}
}
