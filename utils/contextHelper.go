package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/pos_backend/appctx"
)

// Alias the shared context key type so existing code keeps working.
type contextKey = appctx.ContextKey

var (
	ContextKeyUserId        = appctx.ContextKeyUserId
	ContextKeyUserName      = appctx.ContextKeyUserName
	ContextKeyRegisterId    = appctx.ContextKeyRegisterId
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyIsAdmin       = appctx.ContextKeyIsAdmin
	ContextKeyCanEditPrice  = appctx.ContextKeyCanEditPrice
)

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyUserId)
}

func GetUserNameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyUserName)
}

func GetRegisterIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyRegisterId)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func GetIsAdminFromContext(ctx context.Context) (bool, bool) {
	return appctx.GetBool(ctx, ContextKeyIsAdmin)
}

func GetCanEditPriceFromContext(ctx context.Context) (bool, bool) {
	return appctx.GetBool(ctx, ContextKeyCanEditPrice)
}

func SetUserIdInContext(ctx context.Context, userId int) context.Context {
	return appctx.Set(ctx, ContextKeyUserId, userId)
}

func SetUserNameInContext(ctx context.Context, userName string) context.Context {
	return appctx.Set(ctx, ContextKeyUserName, userName)
}

func SetRegisterIdInContext(ctx context.Context, registerId int) context.Context {
	return appctx.Set(ctx, ContextKeyRegisterId, registerId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func SetIsAdminInContext(ctx context.Context, isAdmin bool) context.Context {
	return appctx.Set(ctx, ContextKeyIsAdmin, isAdmin)
}

func SetCanEditPriceInContext(ctx context.Context, canEdit bool) context.Context {
	return appctx.Set(ctx, ContextKeyCanEditPrice, canEdit)
}

// IsAdmin is false unless the session explicitly marked the caller as admin.
func IsAdmin(ctx context.Context) bool {
	v, ok := GetIsAdminFromContext(ctx)
	return ok && v
}

// UserNameOrSystem is the attribution recorded on ledger rows.
func UserNameOrSystem(ctx context.Context) string {
	if name, ok := GetUserNameFromContext(ctx); ok && name != "" {
		return name
	}
	return "system"
}
