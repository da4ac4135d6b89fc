package store

import "go.uber.org/zap"

// LogNotifier пишет пользовательские уведомления в журнал. На витрине
// их место занимают всплывающие сообщения; на сервере остаётся журнал.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier создаёт Notifier поверх указанного логгера.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Success фиксирует успешный исход операции.
func (n *LogNotifier) Success(msg string) {
	n.logger.Info(msg, zap.String("outcome", "success"))
}

// Info фиксирует мягкий (информационный) исход операции.
func (n *LogNotifier) Info(msg string) {
	n.logger.Info(msg, zap.String("outcome", "info"))
}

// Error фиксирует неуспешный исход операции.
func (n *LogNotifier) Error(msg string) {
	n.logger.Warn(msg, zap.String("outcome", "error"))
}
