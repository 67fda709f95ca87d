/*
 *    Copyright [2020] Sergey Kudasov
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package loadgen

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type correlationIdType int

const (
	requestIdKey correlationIdType = iota
	sessionIdKey
)

type Logger struct {
	*zap.SugaredLogger
}

var log = defaultLogger()

func defaultLogger() *Logger {
	l, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return &Logger{l.Sugar()}
}

// DefaultLogger returns the package logger, reconfigured by NewLogger after the generator config is read
func DefaultLogger() *Logger {
	return log
}

// NopLogger discards everything, used in tests
func NopLogger() *Logger {
	return &Logger{zap.NewNop().Sugar()}
}

// WithRqId returns a context which knows its request ID
func WithRqId(ctx context.Context, rqId string) context.Context {
	return context.WithValue(ctx, requestIdKey, rqId)
}

// WithSessionId returns a context which knows its session ID
func WithSessionId(ctx context.Context, sessionId string) context.Context {
	return context.WithValue(ctx, sessionIdKey, sessionId)
}

// FromCtx returns a logger with as much context as possible
func (m *Logger) FromCtx(ctx context.Context) *Logger {
	newLogger := m
	if ctx != nil {
		if ctxRqId, ok := ctx.Value(requestIdKey).(string); ok {
			newLogger = &Logger{newLogger.With(zap.String("rqId", ctxRqId))}
		}
		if ctxSessionId, ok := ctx.Value(sessionIdKey).(string); ok {
			newLogger = &Logger{newLogger.With(zap.String("sessionId", ctxSessionId))}
		}
	}
	return newLogger
}

// Named returns a child logger with a key/value pair attached
func (m *Logger) Named(key string, value interface{}) *Logger {
	return &Logger{m.With(key, value)}
}

func setupLogger(encoding string, level string, outputPaths []string) (*Logger, error) {
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}
	paths, err := json.Marshal(outputPaths)
	if err != nil {
		return nil, err
	}
	rawJSON := []byte(fmt.Sprintf(`{
	  "level": "%s",
	  "encoding": "%s",
	  "outputPaths": %s,
	  "errorOutputPaths": ["stderr"],
	  "encoderConfig": {
	    "messageKey": "message",
	    "levelKey": "level",
	    "levelEncoder": "uppercase",
	    "timeKey": "time",
	    "timeEncoder": "ISO8601",
	    "callerKey": "caller",
	    "callerEncoder": "short"
	  }
	}`, level, encoding, paths))

	var cfg zap.Config
	if err := json.Unmarshal(rawJSON, &cfg); err != nil {
		return nil, err
	}
	if encoding == "console" {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{zl.Sugar()}, nil
}

// NewLogger builds the package logger from the logging section of the generator config
func NewLogger() *Logger {
	l, err := setupLogger(
		viper.GetString("logging.encoding"),
		viper.GetString("logging.level"),
		viper.GetStringSlice("logging.output_paths"),
	)
	if err != nil {
		log.Fatalf("failed to setup logger: %s", err)
	}
	log = l
	return log
}
