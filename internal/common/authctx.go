package common

import "context"

type ctxKey string

const adminSubjectKey ctxKey = "auth/admin-subject"

// WithAdminSubject stores the authenticated admin subject on the provided context.
func WithAdminSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, adminSubjectKey, sub)
}

// AdminSubject extracts the authenticated admin subject from the context if present.
func AdminSubject(ctx context.Context) (string, bool) {
	v := ctx.Value(adminSubjectKey)
	if v == nil {
		return "", false
	}
	sub, ok := v.(string)
	return sub, ok
}
