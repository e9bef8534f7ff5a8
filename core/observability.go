package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

func (ins *Installer) observeOperation(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	if ins == nil {
		return
	}
	operation = normalizeOperation(operation)
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "failure"
	}

	contextFields := cloneFields(fields)
	contextFields["event_type"] = operation
	contextFields["status"] = status
	contextFields["duration_ms"] = time.Since(startedAt).Milliseconds()
	if err != nil {
		contextFields["error"] = err.Error()
	}

	tags := map[string]string{
		"operation": operation,
		"status":    status,
	}
	for _, key := range []string{"team_id", "enterprise_id", "user_id"} {
		if value := strings.TrimSpace(fmt.Sprint(contextFields[key])); value != "" && value != "<nil>" {
			tags[key] = value
		}
	}

	ins.recordCounter(ctx, "install."+operation+".total", 1, tags)
	ins.recordHistogram(ctx, "install."+operation+".duration_ms", float64(time.Since(startedAt).Milliseconds()), tags)

	if err != nil {
		ins.logError(ctx, operation+" failed", contextFields)
		return
	}
	ins.logInfo(ctx, operation+" succeeded", contextFields)
}

func (ins *Installer) logInfo(ctx context.Context, message string, fields map[string]any) {
	ins.logWithLevel(ctx, "info", message, fields)
}

func (ins *Installer) logError(ctx context.Context, message string, fields map[string]any) {
	ins.logWithLevel(ctx, "error", message, fields)
}

func (ins *Installer) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if ins == nil || ins.logger == nil {
		return
	}
	logger := ins.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (ins *Installer) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if ins == nil || ins.metricsRecorder == nil {
		return
	}
	ins.metricsRecorder.IncCounter(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func (ins *Installer) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if ins == nil || ins.metricsRecorder == nil {
		return
	}
	ins.metricsRecorder.ObserveHistogram(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}

func normalizeOperation(operation string) string {
	operation = strings.TrimSpace(strings.ToLower(operation))
	operation = strings.ReplaceAll(operation, " ", "_")
	operation = strings.ReplaceAll(operation, "-", "_")
	return operation
}
