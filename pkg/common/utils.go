// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package common

import (
	"runtime/debug"

	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// ConfigureLogger sets the level and format of the std logger used by every scope.
func ConfigureLogger(level string, asJSON bool) error {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return eris.Wrapf(err, "invalid log level %q", level)
	}
	logrus.SetLevel(parsed)
	if asJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{PrettyPrint: false})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// RunIsolated runs fn and turns a panic into an error, so one bad item never aborts a whole sweep.
func RunIsolated(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("recovered from panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn()
}

// LogJSONFormatter is printing the data in log
func LogJSONFormatter(data interface{}) string {
	response, err := json.Marshal(data)
	if err != nil {
		logrus.Errorf("failed to marshal json.")

		return ""
	}
	return string(response)
}
