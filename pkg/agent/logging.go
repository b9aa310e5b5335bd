package agent

import (
	"fmt"

	"github.com/neuroplastio/neio-split/hidapi"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(config Config) (*zap.Logger, error) {
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000000")
	loggerConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !config.Debug {
		loggerConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

type badgerLogger struct {
	l *zap.Logger
}

func (l badgerLogger) Errorf(msg string, args ...any) {
	l.l.Error(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Warningf(msg string, args ...any) {
	l.l.Warn(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Infof(msg string, args ...any) {
	l.l.Debug(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Debugf(msg string, args ...any) {
	l.l.Debug(fmt.Sprintf(msg, args...))
}

// reportLogger stands in for the host when no virtual HID device is configured.
type reportLogger struct {
	log     *zap.Logger
	decoder *hidapi.ReportDecoder
}

func newReportLogger(log *zap.Logger) reportLogger {
	return reportLogger{
		log:     log,
		decoder: hidapi.NewReportDecoder(hidapi.Layouts()),
	}
}

func (r reportLogger) WriteReport(data []byte) error {
	report, ok := r.decoder.Decode(data)
	if !ok {
		return fmt.Errorf("unknown report: %x", data)
	}
	switch report.ID {
	case hidapi.KeyboardReportID:
		k, err := hidapi.KeyboardReportFrom(report)
		if err != nil {
			return err
		}
		r.log.Info("Report", zap.Stringer("keyboard", k))
	case hidapi.MouseReportID:
		m, err := hidapi.MouseReportFrom(report)
		if err != nil {
			return err
		}
		r.log.Info("Report", zap.Stringer("mouse", m))
	}
	return nil
}
