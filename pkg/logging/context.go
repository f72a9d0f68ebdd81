package logging

import (
	"context"
)

const (
	TraceIDKey      = "trace_id"
	SubmissionIDKey = "submission_id"
	FocusKey        = "focus"
	ServiceNameKey  = "service_name"
)

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func WithSubmissionID(ctx context.Context, submissionID string) context.Context {
	return context.WithValue(ctx, SubmissionIDKey, submissionID)
}

func WithFocus(ctx context.Context, focus string) context.Context {
	return context.WithValue(ctx, FocusKey, focus)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, serviceName)
}

func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

func GetSubmissionID(ctx context.Context) string {
	if submissionID, ok := ctx.Value(SubmissionIDKey).(string); ok {
		return submissionID
	}
	return ""
}

func GetFocus(ctx context.Context) string {
	if focus, ok := ctx.Value(FocusKey).(string); ok {
		return focus
	}
	return ""
}

func GetServiceName(ctx context.Context) string {
	if serviceName, ok := ctx.Value(ServiceNameKey).(string); ok {
		return serviceName
	}
	return ""
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 8)

	if traceID := GetTraceID(ctx); traceID != "" {
		fields = append(fields, "trace_id", traceID)
	}

	if submissionID := GetSubmissionID(ctx); submissionID != "" {
		fields = append(fields, "submission_id", submissionID)
	}

	if focus := GetFocus(ctx); focus != "" {
		fields = append(fields, "focus", focus)
	}

	if serviceName := GetServiceName(ctx); serviceName != "" {
		fields = append(fields, "service_name", serviceName)
	}

	return fields
}
