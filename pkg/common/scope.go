// Copyright (c) 2023 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package common

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const (
	tracerName          = "habit-challenge"
	traceIDLogField     = "traceID"
	challengeIDField    = "challengeId"
	participantIDField  = "participantId"
	transitionEventName = "lifecycle.transition"
)

// Scope is the span and log entry of one engine operation.
// Ctx carries the span so store calls made with it are nested under the operation.
type Scope struct {
	Ctx     context.Context
	TraceID string
	span    oteltrace.Span
	Log     *log.Entry
}

// StartScope starts a span named name under whatever span ctx already carries.
func StartScope(ctx context.Context, name string) *Scope {
	tracerCtx, span := otel.Tracer(tracerName).Start(ctx, name)
	traceID := span.SpanContext().TraceID().String()

	return &Scope{
		Ctx:     tracerCtx,
		TraceID: traceID,
		span:    span,
		Log:     log.WithField(traceIDLogField, traceID),
	}
}

// Challenge tags the span and the log entry with the challenge id.
func (s *Scope) Challenge(challengeID string) *Scope {
	s.span.SetAttributes(attribute.String(challengeIDField, challengeID))
	s.Log = s.Log.WithField(challengeIDField, challengeID)
	return s
}

// Participant tags the span and the log entry with the challenge and participant ids.
func (s *Scope) Participant(challengeID, participantID string) *Scope {
	s.Challenge(challengeID)
	s.span.SetAttributes(attribute.String(participantIDField, participantID))
	s.Log = s.Log.WithField(participantIDField, participantID)
	return s
}

// TraceTransition records a lifecycle change as a span event.
func (s *Scope) TraceTransition(from, to, asOf string) {
	s.span.AddEvent(transitionEventName, oteltrace.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
		attribute.String("asOf", asOf),
	))
	s.Log.WithFields(log.Fields{"from": from, "asOf": asOf}).Infof("participant is now %s", to)
}

// TraceError records err on the span and marks the span failed.
func (s *Scope) TraceError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// SetCount records a count attribute, such as participants touched by a batch.
func (s *Scope) SetCount(key string, n int) {
	s.span.SetAttributes(attribute.Int(key, n))
}

// Finish ends the span.
func (s *Scope) Finish() {
	s.span.End()
}
