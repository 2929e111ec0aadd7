package logger

import (
	"github.com/sirupsen/logrus"
)

// Log глобальный логгер приложения. До вызова Init пишет в stderr с уровнем info.
var Log = logrus.New()

// Init настраивает уровень и формат логов.
func Init(level string, json bool) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if json {
		Log.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// Component возвращает логгер с полем компонента.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
