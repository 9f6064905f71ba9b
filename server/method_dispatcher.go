// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"context"

	"github.com/awcullen/uacore/ua"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Call invokes the method of the object. The inputs are checked against the declared input
// arguments before the handler is invoked, and the outputs are checked against the declared
// output arguments before they are returned.
func (m *NamespaceManager) Call(ctx context.Context, req ua.CallMethodRequest) ua.CallMethodResult {
	if _, ok := m.FindNode(req.ObjectID); !ok {
		return ua.CallMethodResult{StatusCode: ua.BadNodeIDUnknown}
	}
	method, ok := m.FindMethod(req.MethodID)
	if !ok || !m.IsChild(req.ObjectID, req.MethodID) {
		return ua.CallMethodResult{StatusCode: ua.BadMethodInvalid}
	}

	inputArguments := method.InputArguments()
	switch {
	case len(req.InputArguments) < len(inputArguments):
		return ua.CallMethodResult{StatusCode: ua.BadArgumentsMissing}
	case len(req.InputArguments) > len(inputArguments):
		return ua.CallMethodResult{StatusCode: ua.BadTooManyArguments}
	}
	inputResults := make([]ua.StatusCode, len(req.InputArguments))
	valid := true
	for i, arg := range req.InputArguments {
		if !matchesArgument(arg, inputArguments[i]) {
			inputResults[i] = ua.BadTypeMismatch
			valid = false
		}
	}
	if !valid {
		return ua.CallMethodResult{StatusCode: ua.BadInvalidArgument, InputArgumentResults: inputResults}
	}

	handler := method.handler()
	if handler == nil {
		return ua.CallMethodResult{StatusCode: ua.BadInternalError, InputArgumentResults: inputResults}
	}
	outputs, err := invoke(ctx, handler, req.InputArguments)
	if err != nil {
		loggerFrom(ctx).Warn().Err(err).Str("method", req.MethodID.String()).Msg("Method handler failed.")
		return ua.CallMethodResult{StatusCode: ua.BadInternalError, InputArgumentResults: inputResults}
	}

	outputArguments := method.OutputArguments()
	if len(outputs) != len(outputArguments) {
		loggerFrom(ctx).Warn().Str("method", req.MethodID.String()).Int("outputs", len(outputs)).Msg("Method handler returned wrong number of outputs.")
		return ua.CallMethodResult{StatusCode: ua.BadInternalError, InputArgumentResults: inputResults}
	}
	for i, out := range outputs {
		if !matchesArgument(out, outputArguments[i]) {
			loggerFrom(ctx).Warn().Str("method", req.MethodID.String()).Str("output", outputArguments[i].Name).Msg("Method handler returned wrong output type.")
			return ua.CallMethodResult{StatusCode: ua.BadInternalError, InputArgumentResults: inputResults}
		}
	}
	return ua.CallMethodResult{StatusCode: ua.Good, InputArgumentResults: inputResults, OutputArguments: outputs}
}

// invoke calls the handler, turning a panic into an error.
func invoke(ctx context.Context, handler CallMethodHandler, inputs []ua.Variant) (outputs []ua.Variant, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return handler(ctx, inputs)
}

func matchesArgument(value ua.Variant, arg ua.Argument) bool {
	return arg.DataType == ua.VariantTypeNull || value.Type() == arg.DataType
}

// loggerFrom returns the logger of the session in ctx, or a disabled logger.
func loggerFrom(ctx context.Context) *zerolog.Logger {
	if s, ok := ctx.Value(SessionKey).(*Session); ok {
		return &s.logger
	}
	return zerolog.Ctx(ctx)
}
