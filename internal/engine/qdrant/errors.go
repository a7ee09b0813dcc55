package qdrant

import (
	"strings"

	pkgerrors "vectorhub/pkg/errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// classify maps a gRPC status onto a pkg/errors kind. Qdrant reports a
// duplicate collection as InvalidArgument, so the message decides there.
func classify(op, collection string, err error) error {
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled,
		codes.Unauthenticated, codes.PermissionDenied, codes.ResourceExhausted, codes.Unknown:
		return pkgerrors.Connection(op, collection, err, "qdrant unavailable")
	case codes.NotFound:
		return pkgerrors.NotFound(op, collection, err, "qdrant")
	case codes.AlreadyExists:
		return pkgerrors.New(pkgerrors.KindAlreadyExists, op, collection, err, "qdrant")
	}
	if strings.Contains(strings.ToLower(st.Message()), "already exists") {
		return pkgerrors.New(pkgerrors.KindAlreadyExists, op, collection, err, "qdrant")
	}
	if strings.Contains(strings.ToLower(st.Message()), "doesn't exist") {
		return pkgerrors.NotFound(op, collection, err, "qdrant")
	}
	return pkgerrors.Rejected(op, collection, err, "qdrant refused the request")
}
