// Package reqctx carries request-scoped metadata through context.Context.
//
// The HTTP RequestID middleware stores a RequestMeta for every request;
// services pass the context on, and the logger reads the request ID from it:
//
//	ctx = reqctx.WithRequestMeta(ctx, &reqctx.RequestMeta{RequestID: rid})
//	rid := reqctx.RequestIDFromContext(ctx)
package reqctx
