package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	User *UserLogger // Clean messages for users (stdout) with emojis
	Op   *OpLogger   // Detailed operational logs (stderr) without emojis
)

// init ensures loggers are never nil
func init() {
	User = &UserLogger{logger: Internal()}
	Op = &OpLogger{logger: Internal()}
}

type UserLogger struct {
	logger *logrus.Logger
}

type OpLogger struct {
	logger *logrus.Logger
}

func (u *UserLogger) entry(emoji string) *logrus.Entry {
	fields := logrus.Fields{"log_type": string(UserLog)}
	if emoji != "" {
		fields["emoji"] = emoji
	}
	return u.logger.WithFields(fields)
}

func (u *UserLogger) Info(msg string) {
	u.entry("").Info(msg)
}

func (u *UserLogger) Errorf(format string, args ...interface{}) {
	u.entry(emojiError).Errorf(format, args...)
}

func (u *UserLogger) Warnf(format string, args ...interface{}) {
	u.entry(emojiWarn).Warnf(format, args...)
}

// Specific operation methods with relevant emojis
func (u *UserLogger) Starting(msg string) {
	u.entry(emojiStart).Info(msg)
}

func (u *UserLogger) Success(msg string) {
	u.entry(emojiSuccess).Info(msg)
}

func (u *UserLogger) Buildf(format string, args ...interface{}) {
	u.entry(emojiBuild).Infof(format, args...)
}

func (u *UserLogger) Watchf(format string, args ...interface{}) {
	u.entry(emojiWatch).Infof(format, args...)
}

func (u *UserLogger) Reloadf(format string, args ...interface{}) {
	u.entry(emojiReload).Infof(format, args...)
}

func (u *UserLogger) Cachef(format string, args ...interface{}) {
	u.entry(emojiCache).Infof(format, args...)
}

func (u *UserLogger) Cleanupf(format string, args ...interface{}) {
	u.entry(emojiCleanup).Infof(format, args...)
}

func (u *UserLogger) Servef(format string, args ...interface{}) {
	u.entry(emojiServe).Infof(format, args...)
}

// OpLogger methods without emojis - clean operational logs
func (o *OpLogger) Info(msg string) {
	o.logger.WithField("log_type", string(OpLog)).Info(msg)
}

func (o *OpLogger) Debug(msg string) {
	o.logger.WithField("log_type", string(OpLog)).Debug(msg)
}

func (o *OpLogger) WithFields(fields map[string]interface{}) *logrus.Entry {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["log_type"] = string(OpLog)
	return o.logger.WithFields(fields)
}

// CLIFormatter provides clean output for CLI applications
type CLIFormatter struct {
	DisableTimestamp bool
	DisableLevel     bool
	DisableColors    bool
}

func (f *CLIFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer

	// Simple clean format: just the message for user-facing logs
	if f.DisableLevel && f.DisableTimestamp {
		b.WriteString(entry.Message)
		b.WriteByte('\n')
		return b.Bytes(), nil
	}

	if !f.DisableTimestamp {
		b.WriteString(entry.Time.Format("15:04:05"))
		b.WriteByte(' ')
	}

	if !f.DisableLevel {
		levelColor := ""
		resetColor := ""
		if !f.DisableColors {
			switch entry.Level {
			case logrus.ErrorLevel:
				levelColor = "\033[31m" // Red
			case logrus.WarnLevel:
				levelColor = "\033[33m" // Yellow
			case logrus.InfoLevel:
				levelColor = "\033[36m" // Cyan
			case logrus.DebugLevel:
				levelColor = "\033[37m" // White
			}
			resetColor = "\033[0m"
		}

		b.WriteString(levelColor)
		b.WriteString(strings.ToUpper(entry.Level.String()))
		b.WriteString(resetColor)
		b.WriteString(": ")
	}

	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k == "log_type" || k == "emoji" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(" %s=%v", k, entry.Data[k]))
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

// Setup configures log level, format and routing. LOG_MODE and LOG_FORMAT
// environment variables override the flags.
func Setup(verbose bool, jsonLogs bool, quiet bool) {
	SetupWithWriters(verbose, jsonLogs, quiet, os.Stdout, os.Stderr)
}

// SetupWithWriters is Setup with explicit destinations for user and operational logs.
func SetupWithWriters(verbose bool, jsonLogs bool, quiet bool, userOut, opOut io.Writer) {
	if envLogMode := os.Getenv("LOG_MODE"); envLogMode != "" {
		switch envLogMode {
		case "quiet":
			quiet = true
			verbose = false
		case "verbose", "debug":
			verbose = true
			quiet = false
		}
	}

	if envLogFormat := os.Getenv("LOG_FORMAT"); envLogFormat != "" {
		switch envLogFormat {
		case "json":
			jsonLogs = true
		case "text":
			jsonLogs = false
		}
	}

	internalLogger := Internal()

	var level logrus.Level
	if quiet {
		level = logrus.ErrorLevel
	} else if verbose {
		level = logrus.DebugLevel
	} else {
		level = logrus.InfoLevel
	}

	internalLogger.Hooks = make(logrus.LevelHooks)
	internalLogger.SetLevel(level)
	internalLogger.SetOutput(io.Discard) // Output handled by hooks

	hook := NewOutputRouterHook(userOut, opOut)
	if jsonLogs {
		internalLogger.SetFormatter(&logrus.JSONFormatter{})
		hook.UserFormatter = &logrus.JSONFormatter{}
		hook.OpFormatter = &logrus.JSONFormatter{}
	} else {
		internalLogger.SetFormatter(&logrus.TextFormatter{})
		colors := isTerminal(opOut)
		if verbose {
			hook.OpFormatter = &logrus.TextFormatter{
				FullTimestamp: true,
				ForceColors:   colors,
			}
		} else {
			hook.OpFormatter = &CLIFormatter{
				DisableTimestamp: true,
				DisableColors:    !colors,
			}
		}
		hook.Emoji = isTerminal(userOut)
	}
	internalLogger.AddHook(hook)

	User = &UserLogger{logger: internalLogger}
	Op = &OpLogger{logger: internalLogger}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
