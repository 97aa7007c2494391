package api

import (
	"context"
	"errors"
	"strconv"

	"github.com/circdesk/loanrules/internal/rules"
	"github.com/circdesk/loanrules/internal/types"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error mapping for handlers.
// Auth errors are mapped in the auth package interceptor.
// Compile failures map to INVALID_ARGUMENT with an ErrorInfo detail.
// Store errors map to UNAVAILABLE.
// Context timeouts map to DEADLINE_EXCEEDED.

const (
	errorDomain = "loanrules.circdesk.org"

	// ReasonParseError marks rule text that does not compile.
	ReasonParseError = "LOAN_RULES_PARSE_ERROR"
)

// parseErrorStatus converts a compile failure into INVALID_ARGUMENT with
// the error position attached as google.rpc.ErrorInfo metadata.
func parseErrorStatus(pe *rules.ParseError) error {
	st := status.New(codes.InvalidArgument, pe.Error())
	detailed, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason: ReasonParseError,
		Domain: errorDomain,
		Metadata: map[string]string{
			"kind":    string(pe.Kind),
			"line":    strconv.Itoa(pe.Line),
			"column":  strconv.Itoa(pe.Column),
			"message": pe.Message,
		},
	})
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}

// toStatus maps a handler error to a gRPC status error.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if pe, ok := rules.AsParseError(err); ok {
		return parseErrorStatus(pe)
	}

	switch {
	case errors.Is(err, types.ErrLoanRulesNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, types.ErrMissingRuleText),
		errors.Is(err, types.ErrRuleTextTooLarge),
		errors.Is(err, types.ErrInvalidTenantID):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}

// ParseErrorInfo extracts the ErrorInfo detail of a compile failure from a
// status error returned by the service.
func ParseErrorInfo(err error) (*errdetails.ErrorInfo, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return nil, false
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetReason() == ReasonParseError {
			return info, true
		}
	}
	return nil, false
}
