package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-merit/internal/domain"
	"github.com/ahrav/go-merit/internal/ports"
)

var _ ports.RatingObserver = (*OTelRatingObserver)(nil)

// OTelRatingObserver traces the vote write path with OpenTelemetry.
// Each SetRating call gets a span carrying the item, author, and vote,
// finished with the persisted rating id or the failure.
type OTelRatingObserver struct {
	tracer trace.Tracer
}

// NewOTelRatingObserver creates a new OpenTelemetry rating observer.
func NewOTelRatingObserver() *OTelRatingObserver {
	return &OTelRatingObserver{tracer: otel.Tracer("ratings-engine")}
}

// Start implements the RatingObserver interface. It opens a span for the
// vote mutation and returns the finish callback that closes it with the
// outcome.
func (o *OTelRatingObserver) Start(ctx context.Context, itemID, author string, vote int) (context.Context, func(rating *domain.Rating, err error)) {
	ctx, span := o.tracer.Start(ctx, "RatingService.SetRating",
		trace.WithAttributes(
			attribute.String("rating.item", itemID),
			attribute.String("rating.author", author),
			attribute.Int("rating.vote", vote),
		),
	)

	finish := func(rating *domain.Rating, err error) {
		defer span.End()

		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return
		}

		if rating != nil {
			span.SetAttributes(attribute.String("rating.id", rating.ID))
		}
		span.SetStatus(codes.Ok, "vote applied")
	}
	return ctx, finish
}
