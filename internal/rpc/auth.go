package rpc

import (
	"context"
	"encoding/base64"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/timeseer-ai/kukur-go/internal/apikey"
	"github.com/timeseer-ai/kukur-go/internal/metrics"
)

// authenticate validates the Basic credential on one RPC call against the
// API-key store. It is called at the start of every DoAction and DoGet
// handler rather than once per connection: a Flight client keeps one
// connection open across many calls, and a revoked key must stop working
// on the very next call, not just on the next handshake.
func authenticate(ctx context.Context, keys *apikey.Store) error {
	if keys == nil {
		return nil
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		metrics.RecordAuthAttempt("missing_credentials")
		return status.Error(codes.Unauthenticated, "rpc: missing credentials")
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		metrics.RecordAuthAttempt("missing_credentials")
		return status.Error(codes.Unauthenticated, "rpc: missing authorization header")
	}
	name, key, err := parseBasicAuth(values[0])
	if err != nil {
		metrics.RecordAuthAttempt("malformed_credentials")
		return status.Error(codes.Unauthenticated, "rpc: "+err.Error())
	}
	ok, err = keys.Validate(name, key)
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	if !ok {
		metrics.RecordAuthAttempt("invalid_key")
		return status.Error(codes.Unauthenticated, "rpc: invalid api key")
	}
	metrics.RecordAuthAttempt("success")
	return nil
}

func parseBasicAuth(header string) (name, key string, err error) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", errNotBasicAuth
	}
	raw, decodeErr := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, prefix))
	if decodeErr != nil {
		return "", "", errNotBasicAuth
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return "", "", errNotBasicAuth
	}
	return parts[0], parts[1], nil
}

var errNotBasicAuth = basicAuthError("malformed basic auth header")

type basicAuthError string

func (e basicAuthError) Error() string { return string(e) }
