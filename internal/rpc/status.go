package rpc

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/timeseer-ai/kukur-go/pkg/errkind"
)

// toStatus maps an errkind.Kind to the grpc status code a Flight client
// expects, so a caller sees InvalidArgument for a bad selector and
// Unauthenticated for a rejected API key rather than an opaque Unknown.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	kind, ok := errkind.Of(err)
	if !ok {
		return status.Error(codes.Internal, err.Error())
	}
	switch kind {
	case errkind.UnknownSource, errkind.InvalidSource, errkind.InvalidData, errkind.InvalidMetadata, errkind.InvalidConfiguration:
		return status.Error(codes.InvalidArgument, err.Error())
	case errkind.NotSupported:
		return status.Error(codes.Unimplemented, err.Error())
	case errkind.Timeout:
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errkind.Transient:
		return status.Error(codes.Unavailable, err.Error())
	case errkind.Unauthenticated:
		return status.Error(codes.Unauthenticated, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
