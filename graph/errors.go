package graph

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/fiscal"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// PresentError tags resolver errors with a code the till can branch on,
// the same split the REST handlers make with status codes.
func PresentError(ctx context.Context, err error) *gqlerror.Error {
	gqlErr := graphql.DefaultErrorPresenter(ctx, err)
	if gqlErr.Extensions == nil {
		gqlErr.Extensions = map[string]interface{}{}
	}

	var ve *utils.ValidationError
	var se *utils.CommitStepError
	switch {
	case errors.As(err, &ve):
		gqlErr.Message = ve.Message
		gqlErr.Extensions["code"] = "BAD_USER_INPUT"
		if ve.Field != "" {
			gqlErr.Extensions["field"] = ve.Field
		}
	case errors.Is(err, utils.ErrForbidden):
		gqlErr.Extensions["code"] = "FORBIDDEN"
	case utils.IsRecordNotFound(err):
		gqlErr.Extensions["code"] = "NOT_FOUND"
	case errors.Is(err, fiscal.ErrDeviceUnavailable):
		gqlErr.Extensions["code"] = "DEVICE_UNAVAILABLE"
	case errors.As(err, &se):
		gqlErr.Extensions["code"] = "INTERNAL"
		gqlErr.Extensions["step"] = se.Step
		logError(ctx, err)
	default:
		if _, ok := gqlErr.Extensions["code"]; !ok && gqlErr.Err != nil {
			gqlErr.Extensions["code"] = "INTERNAL"
			logError(ctx, err)
		}
	}
	return gqlErr
}

func logError(ctx context.Context, err error) {
	var field string
	if fc := graphql.GetFieldContext(ctx); fc != nil {
		field = fc.Path().String()
	}
	config.LogError(config.GetLogger(), "GraphQL", "PresentError", field, nil, err)
}
