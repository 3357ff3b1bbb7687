package logger

import (
	"log/slog"
	"strings"
	"sync"
)

// ModuleConfig manages per-module logging configuration.
// Module names are dotted package paths below the module root; more specific
// modules override less specific ones ("runtime.pipeline.stage" overrides
// "runtime.pipeline").
type ModuleConfig struct {
	defaultLevel slog.Level
	modules      map[string]slog.Level
	mu           sync.RWMutex
}

// NewModuleConfig creates a new ModuleConfig with the given default level.
func NewModuleConfig(defaultLevel slog.Level) *ModuleConfig {
	return &ModuleConfig{
		defaultLevel: defaultLevel,
		modules:      make(map[string]slog.Level),
	}
}

// SetModuleLevel sets the log level for a specific module.
func (m *ModuleConfig) SetModuleLevel(module string, level slog.Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modules[module] = level
}

// ModuleLevel returns the level set for exactly module, if any.
func (m *ModuleConfig) ModuleLevel(module string) (slog.Level, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	level, ok := m.modules[module]
	return level, ok
}

// ClearModuleLevel removes the override for module.
func (m *ModuleConfig) ClearModuleLevel(module string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.modules, module)
}

// SetDefaultLevel sets the default log level.
func (m *ModuleConfig) SetDefaultLevel(level slog.Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultLevel = level
}

// LevelFor returns the log level for the given module.
// It checks for an exact match first, then walks up the hierarchy, then
// falls back to the default level.
func (m *ModuleConfig) LevelFor(module string) slog.Level {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for {
		if level, ok := m.modules[module]; ok {
			return level
		}
		lastDot := strings.LastIndex(module, ".")
		if lastDot == -1 {
			return m.defaultLevel
		}
		module = module[:lastDot]
	}
}

// MinLevel returns the most verbose level configured anywhere.
func (m *ModuleConfig) MinLevel() slog.Level {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lowest := m.defaultLevel
	for _, level := range m.modules {
		if level < lowest {
			lowest = level
		}
	}
	return lowest
}

// hasModules reports whether any module override exists.
func (m *ModuleConfig) hasModules() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.modules) > 0
}

// globalModuleConfig is the global module configuration.
var globalModuleConfig = NewModuleConfig(slog.LevelInfo)

// LoggingConfigSpec defines the logging configuration for the Configure function.
type LoggingConfigSpec struct {
	DefaultLevel string
	Format       string // "json" or "text"
	CommonFields map[string]string
	Modules      []ModuleLoggingSpec
}

// ModuleLoggingSpec configures logging for a specific module.
type ModuleLoggingSpec struct {
	Name  string
	Level string
}

// Log format constants
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Configure applies a LoggingConfigSpec to the global logger.
// A logger installed with SetLogger is preserved.
func Configure(cfg *LoggingConfigSpec) error {
	if cfg == nil {
		return nil
	}
	if customHandler != nil {
		return nil
	}

	defaultLevel := slog.LevelInfo
	if cfg.DefaultLevel != "" {
		defaultLevel = ParseLevel(cfg.DefaultLevel)
	}

	commonFields := make([]slog.Attr, 0, len(cfg.CommonFields))
	for k, v := range cfg.CommonFields {
		commonFields = append(commonFields, slog.String(k, v))
	}

	moduleConfig := NewModuleConfig(defaultLevel)
	for _, mod := range cfg.Modules {
		moduleConfig.SetModuleLevel(mod.Name, ParseLevel(mod.Level))
	}
	globalModuleConfig = moduleConfig

	initLoggerWithConfig(defaultLevel, commonFields, moduleConfig, cfg.Format == FormatJSON)
	return nil
}

// SetModuleLevel overrides the level of one module on the global logger.
func SetModuleLevel(module string, level slog.Level) {
	globalModuleConfig.SetModuleLevel(module, level)
	if customHandler != nil {
		return
	}
	initLoggerWithConfig(globalModuleConfig.defaultLevel, nil, globalModuleConfig, false)
}

// OverrideModuleLevel sets the level of module on the global logger and
// returns a function that puts the previous setting back.
func OverrideModuleLevel(module string, level slog.Level) (restore func()) {
	prev, had := globalModuleConfig.ModuleLevel(module)
	SetModuleLevel(module, level)
	return func() {
		if had {
			SetModuleLevel(module, prev)
			return
		}
		globalModuleConfig.ClearModuleLevel(module)
		if customHandler == nil {
			initLoggerWithConfig(globalModuleConfig.defaultLevel, nil, globalModuleConfig, false)
		}
	}
}

// initLoggerWithConfig creates the logger with full configuration.
func initLoggerWithConfig(level slog.Level, commonFields []slog.Attr, moduleConfig *ModuleConfig, useJSON bool) {
	opts := &slog.HandlerOptions{Level: level}
	if moduleConfig != nil {
		// module overrides may be more verbose than the default
		opts.Level = moduleConfig.MinLevel()
	}

	var baseHandler slog.Handler
	if useJSON {
		baseHandler = slog.NewJSONHandler(logOutput, opts)
	} else {
		baseHandler = slog.NewTextHandler(logOutput, opts)
	}

	var handler slog.Handler
	if moduleConfig != nil && moduleConfig.hasModules() {
		handler = NewModuleHandler(baseHandler, moduleConfig, commonFields...)
	} else {
		handler = NewContextHandler(baseHandler, commonFields...)
	}

	DefaultLogger = slog.New(handler)
}

// GetModuleConfig returns the global module configuration.
// This is primarily for testing.
func GetModuleConfig() *ModuleConfig {
	return globalModuleConfig
}
