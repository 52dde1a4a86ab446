// Copyright 2025 The pgr Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logging

import (
	"io"
	"log/slog"
)

// WithHandlerType sets the output format.
func WithHandlerType(t HandlerType) Option {
	return func(l *Logger) { l.handlerType = t }
}

// WithJSONHandler writes JSON records.
func WithJSONHandler() Option { return WithHandlerType(JSONHandler) }

// WithTextHandler writes key=value records.
func WithTextHandler() Option { return WithHandlerType(TextHandler) }

// WithConsoleHandler writes colored records for terminals.
func WithConsoleHandler() Option { return WithHandlerType(ConsoleHandler) }

// WithOutput sets the destination writer.
func WithOutput(w io.Writer) Option {
	return func(l *Logger) { l.output = w }
}

// WithLevel sets the minimum level.
func WithLevel(level Level) Option {
	return func(l *Logger) { l.level = level }
}

// WithServiceName adds a service attribute to every record.
func WithServiceName(name string) Option {
	return func(l *Logger) { l.serviceName = name }
}

// WithServiceVersion adds a version attribute to every record.
func WithServiceVersion(version string) Option {
	return func(l *Logger) { l.serviceVersion = version }
}

// WithEnvironment adds an env attribute to every record.
func WithEnvironment(env string) Option {
	return func(l *Logger) { l.environment = env }
}

// WithSource records the caller location.
func WithSource(enabled bool) Option {
	return func(l *Logger) { l.addSource = enabled }
}

// WithCustomLogger wraps an existing slog logger instead of building one.
func WithCustomLogger(logger *slog.Logger) Option {
	return func(l *Logger) {
		l.customLogger = logger
		l.useCustom = true
	}
}

// WithGlobalLogger also installs the logger with slog.SetDefault.
func WithGlobalLogger() Option {
	return func(l *Logger) { l.registerGlobal = true }
}
