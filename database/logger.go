/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/bus/utils"
)

// Logger is the logging contract of the database package. Fields are
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

var defaultLogger = sync.OnceValue(func() Logger {
	return &logrusLogger{logger: utils.NewLogger("DATABASE")}
})

// GetLogger returns the package logger, the "DATABASE" logrus logger.
func GetLogger() Logger {
	return defaultLogger()
}

type logrusLogger struct {
	logger *logrus.Logger
}

func (l *logrusLogger) Debug(msg string, fields ...interface{}) { l.log(logrus.DebugLevel, msg, fields) }
func (l *logrusLogger) Info(msg string, fields ...interface{}) { l.log(logrus.InfoLevel, msg, fields) }
func (l *logrusLogger) Warn(msg string, fields ...interface{}) { l.log(logrus.WarnLevel, msg, fields) }
func (l *logrusLogger) Error(msg string, fields ...interface{}) { l.log(logrus.ErrorLevel, msg, fields) }

func (l *logrusLogger) log(level logrus.Level, msg string, fields []interface{}) {
	if !l.logger.IsLevelEnabled(level) {
		return
	}
	l.logger.WithFields(toFields(fields)).Log(level, msg)
}

// toFields pairs up key/value arguments. A trailing key without value is
// kept under "extra".
func toFields(fields []interface{}) logrus.Fields {
	out := make(logrus.Fields, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			out["extra"] = fields[i]
			break
		}
		out[fmt.Sprint(fields[i])] = fields[i+1]
	}
	return out
}
