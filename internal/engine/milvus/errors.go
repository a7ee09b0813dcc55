package milvus

import (
	"context"
	"errors"
	"strings"

	pkgerrors "vectorhub/pkg/errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// classify maps an SDK error onto a pkg/errors kind. The SDK flattens most
// server statuses into message strings, so the message is inspected after
// the transport status.
func classify(op, collection string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Connection(op, collection, err, "request aborted")
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled,
			codes.Unauthenticated, codes.PermissionDenied, codes.ResourceExhausted:
			return pkgerrors.Connection(op, collection, err, "milvus unavailable")
		case codes.NotFound:
			return pkgerrors.NotFound(op, collection, err, "milvus")
		case codes.AlreadyExists:
			return pkgerrors.New(pkgerrors.KindAlreadyExists, op, collection, err, "milvus")
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "already exist"):
		return pkgerrors.New(pkgerrors.KindAlreadyExists, op, collection, err, "milvus")
	case strings.Contains(msg, "not exist"),
		strings.Contains(msg, "not found"),
		strings.Contains(msg, "can't find"):
		return pkgerrors.NotFound(op, collection, err, "milvus")
	case strings.Contains(msg, "connection"),
		strings.Contains(msg, "not ready"),
		strings.Contains(msg, "unavailable"),
		strings.Contains(msg, "auth"):
		return pkgerrors.Connection(op, collection, err, "milvus unavailable")
	}
	return pkgerrors.Rejected(op, collection, err, "milvus refused the request")
}

// indexExists reports the answers Milvus gives to a repeated CreateIndex.
func indexExists(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "index already exist") ||
		strings.Contains(msg, "at most one distinct index")
}
