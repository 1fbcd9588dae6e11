package logger

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitGlobalLogger(t *testing.T) {
	// Reset global state for testing
	globalLogger = nil
	once = sync.Once{}

	InitGlobalLogger(nil)

	assert.NotNil(t, globalLogger)
	assert.Equal(t, "paylink", globalLogger.service)
	assert.Equal(t, "1.0.0", globalLogger.version)
	assert.False(t, globalLogger.enableOpenSearch)
}

func TestGetGlobalLogger(t *testing.T) {
	// Fallback logger is created when not initialized
	globalLogger = nil
	once = sync.Once{}

	logger := GetGlobalLogger()

	assert.NotNil(t, logger)
	assert.Equal(t, "paylink", logger.service)
	assert.True(t, logger.enableConsole)
}

func TestGlobalLoggerConvenienceFunctions(t *testing.T) {
	globalLogger = NewSystemLogger(nil, SystemLoggerConfig{
		EnableConsole: false,
		MinLevel:      LevelDebug,
	})

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message", errors.New("test error"))

	// No assertions needed as we're just testing that methods don't panic
}

func TestWithContext(t *testing.T) {
	globalLogger = NewSystemLogger(nil, SystemLoggerConfig{
		EnableConsole: false,
		MinLevel:      LevelDebug,
	})

	cl := WithContext(LogContext{PaymentID: "PAY-1", RequestID: "req-12345678"})

	assert.NotNil(t, cl)
	assert.Equal(t, "PAY-1", cl.context.PaymentID)
	assert.Equal(t, "req-12345678", cl.context.RequestID)
}

func TestWithPayment(t *testing.T) {
	globalLogger = NewSystemLogger(nil, SystemLoggerConfig{
		EnableConsole: false,
		MinLevel:      LevelDebug,
	})

	cl := WithPayment("PAY-42")

	assert.Equal(t, "PAY-42", cl.context.PaymentID)
	assert.Empty(t, cl.context.SaleID)
}

func TestWithSale(t *testing.T) {
	globalLogger = NewSystemLogger(nil, SystemLoggerConfig{
		EnableConsole: false,
		MinLevel:      LevelDebug,
	})

	cl := WithSale("SALE-42")

	assert.Equal(t, "SALE-42", cl.context.SaleID)
	assert.Empty(t, cl.context.PaymentID)
}

func TestInitGlobalLogger_OnlyOnce(t *testing.T) {
	globalLogger = nil
	once = sync.Once{}

	InitGlobalLogger(nil)
	first := globalLogger

	InitGlobalLogger(nil)

	assert.Same(t, first, globalLogger, "second init must not replace the logger")
}
