package logging

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// AuditInfo is filled in by tool handlers and logged once the request
// completes.
type AuditInfo struct {
	Tool         string
	Package      string
	Status       string
	PolicyEffect string
	PolicyRule   string
}

type auditKey struct{}

func WithAuditInfo(ctx context.Context, info *AuditInfo) context.Context {
	return context.WithValue(ctx, auditKey{}, info)
}

func GetAuditInfo(ctx context.Context) *AuditInfo {
	info, _ := ctx.Value(auditKey{}).(*AuditInfo)
	return info
}

// NewReceivingMiddleware logs every incoming MCP request with its method,
// duration and outcome.
func NewReceivingMiddleware(logger *zap.Logger) mcp.Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			info := &AuditInfo{}
			ctx = WithAuditInfo(ctx, info)

			start := time.Now()
			result, err := next(ctx, method, req)

			fields := []zap.Field{
				zap.String("method", method),
				zap.String("direction", "request"),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Bool("error", err != nil),
			}
			fields = appendNonEmpty(fields, "tool", info.Tool)
			fields = appendNonEmpty(fields, "package", info.Package)
			fields = appendNonEmpty(fields, "status", info.Status)
			fields = appendNonEmpty(fields, "policy_effect", info.PolicyEffect)
			fields = appendNonEmpty(fields, "policy_rule", info.PolicyRule)
			if err != nil {
				fields = append(fields, zap.NamedError("cause", err))
			}

			logger.Info("mcp", fields...)
			return result, err
		}
	}
}

func appendNonEmpty(fields []zap.Field, key, value string) []zap.Field {
	if value == "" {
		return fields
	}
	return append(fields, zap.String(key, value))
}
