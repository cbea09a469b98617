package service

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ex-wechaty/pkg/puppet"
)

// mapCallError classifies one failed call into the remote error taxonomy.
func mapCallError(operation string, err error) error {
	if err == nil {
		return nil
	}

	remoteErr := &puppet.RemoteError{
		Operation: operation,
		Kind:      puppet.RemoteErrorKindNetwork,
		Cause:     err,
	}

	callStatus, ok := status.FromError(err)
	if !ok {
		return remoteErr
	}
	remoteErr.Code = int(callStatus.Code())
	remoteErr.Kind = classifyStatusCode(callStatus.Code())

	return remoteErr
}

// classifyStatusCode maps status codes onto error kinds. Every code without a
// dedicated kind counts as a transport failure.
func classifyStatusCode(code codes.Code) puppet.RemoteErrorKind {
	switch code {
	case codes.Unimplemented:
		return puppet.RemoteErrorKindUnsupported
	case codes.InvalidArgument:
		return puppet.RemoteErrorKindUnknownPayloadType
	default:
		return puppet.RemoteErrorKindNetwork
	}
}
