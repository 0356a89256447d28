package tr

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// End closes span, marking it failed when *err is set at return time.
// Use it as: defer tr.End(span, &err).
func End(span trace.Span, err *error) {
	defer span.End()
	if err != nil && *err != nil {
		Fail(span, *err, (*err).Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

// Fail marks span failed with a description meant for humans. err may be nil
// when the failure has no Go error behind it.
func Fail(span trace.Span, err error, description string) {
	if err != nil {
		span.RecordError(err)
	}
	span.SetStatus(codes.Error, description)
}

// Ok marks span succeeded.
func Ok(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
