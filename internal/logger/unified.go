package logger

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogType represents the type of log message
type LogType string

const (
	UserLog LogType = "user"
	OpLog   LogType = "op"
)

var (
	base *logrus.Logger
	once sync.Once
)

// Internal returns the shared logrus logger, initializing it if necessary
func Internal() *logrus.Logger {
	once.Do(func() {
		base = logrus.New()
		base.SetOutput(os.Stdout)
		base.SetLevel(logrus.InfoLevel)
		base.SetFormatter(&CLIFormatter{
			DisableTimestamp: true,
			DisableLevel:     true,
		})
	})
	return base
}

// Emoji prefixes for user-facing messages
const (
	emojiError   = "❌"
	emojiWarn    = "⚠️"
	emojiStart   = "🚀"
	emojiSuccess = "✅"
	emojiBuild   = "🔨"
	emojiWatch   = "👀"
	emojiReload  = "🔄"
	emojiCache   = "💾"
	emojiCleanup = "🧹"
	emojiServe   = "🌐"
)
