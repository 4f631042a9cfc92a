package httpx

import "context"

type ctxKey string

const (
	// CtxKeySubject carries the verified token subject (user id).
	CtxKeySubject ctxKey = "subject"
)

// SubjectFromContext returns the authenticated subject injected by
// AuthnMiddleware, or "" when the request is unauthenticated.
func SubjectFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeySubject).(string); ok {
		return v
	}
	return ""
}
