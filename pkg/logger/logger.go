package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	OutputFile string `yaml:"output_file" json:"output_file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

var (
	global = zap.NewNop().Sugar()
	once   sync.Once
)

// Init configures the global logger: a console core plus, when an output
// file is configured, a JSON core rotated by lumberjack. Later calls are
// ignored.
func Init(cfg Config) {
	once.Do(func() {
		level := zap.NewAtomicLevel()
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			level.SetLevel(zap.InfoLevel)
		}

		var consoleEnc zapcore.Encoder
		if cfg.Format == "json" {
			encCfg := zap.NewProductionEncoderConfig()
			encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
			consoleEnc = zapcore.NewJSONEncoder(encCfg)
		} else {
			encCfg := zap.NewDevelopmentEncoderConfig()
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
			consoleEnc = zapcore.NewConsoleEncoder(encCfg)
		}

		cores := []zapcore.Core{
			zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stdout), level),
		}

		if cfg.OutputFile != "" {
			encCfg := zap.NewProductionEncoderConfig()
			encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
			fileWriter := zapcore.AddSync(&lumberjack.Logger{
				Filename:   cfg.OutputFile,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   cfg.Compress,
			})
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), fileWriter, level))
		}

		l := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.ErrorLevel))
		zap.ReplaceGlobals(l)
		zap.RedirectStdLog(l)
		global = l.Sugar()
	})
}

func Default() *zap.SugaredLogger {
	return global
}

// WithComponent returns a named child logger for one subsystem.
func WithComponent(name string) *zap.SugaredLogger {
	return global.Named(name)
}

func Sync() {
	_ = global.Sync()
}
