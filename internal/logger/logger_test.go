package logger

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestWithComponent(t *testing.T) {
	entry := WithComponent("cache")
	if entry == nil {
		t.Fatal("expected non-nil entry")
	}

	if val, ok := entry.Data["component"]; !ok {
		t.Error("expected component field to be set")
	} else if val != "cache" {
		t.Errorf("expected component 'cache', got '%v'", val)
	}
}

func TestLoggerInit(t *testing.T) {
	if Logger == nil {
		t.Fatal("expected Logger to be initialized")
	}

	if Logger.Out != os.Stdout {
		t.Error("expected Logger output to be os.Stdout")
	}
}

func TestSetLevel(t *testing.T) {
	origLevel := Logger.GetLevel()
	defer Logger.SetLevel(origLevel)

	tests := []struct {
		name          string
		value         string
		ok            bool
		expectedLevel logrus.Level
	}{
		{"debug level", "debug", true, logrus.DebugLevel},
		{"warn level", "warn", true, logrus.WarnLevel},
		{"DEBUG uppercase", "DEBUG", true, logrus.DebugLevel},
		{"padded", "  error ", true, logrus.ErrorLevel},
		{"invalid level", "invalid", false, logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger.SetLevel(logrus.InfoLevel)

			if got := SetLevel(tt.value); got != tt.ok {
				t.Errorf("expected SetLevel(%q) = %v, got %v", tt.value, tt.ok, got)
			}
			if Logger.GetLevel() != tt.expectedLevel {
				t.Errorf("expected level %v, got %v", tt.expectedLevel, Logger.GetLevel())
			}
		})
	}
}

func TestWithComponentMultiple(t *testing.T) {
	entry1 := WithComponent("store")
	entry2 := WithComponent("remote")

	if entry1.Data["component"] == entry2.Data["component"] {
		t.Error("expected different component values for different entries")
	}
}
