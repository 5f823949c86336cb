package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/quillsocial/quill/internal/domain"
)

var tracer = otel.Tracer("viewer")

// ProfileSource loads viewer profiles.
type ProfileSource interface {
	Get(ctx context.Context, id int64) (domain.Profile, error)
}

// ViewerMiddleware resolves the requesting profile from the trusted header
// set by the fronting auth proxy. Requests without the header proceed as
// anonymous; the viewer is never an ambient global, handlers read it from
// the request context.
type ViewerMiddleware struct {
	profiles ProfileSource
	cache    *gocache.Cache
}

func NewViewerMiddleware(profiles ProfileSource) *ViewerMiddleware {
	return &ViewerMiddleware{
		profiles: profiles,
		cache:    gocache.New(5*time.Minute, 10*time.Minute),
	}
}

func (m *ViewerMiddleware) IdentifyViewer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Viewer.Middleware.IdentifyViewer")
		defer span.End()

		header := c.Request().Header.Get(domain.ViewerHeader)
		if header == "" {
			goto skipIdentify
		}

		if id, err := strconv.ParseInt(header, 10, 64); err == nil {
			viewer, err := m.lookup(ctx, id)
			if err != nil {
				span.RecordError(errors.Wrap(err, "ViewerMiddleware.IdentifyViewer: profile lookup failed"))
				goto skipIdentify
			}
			ctx = context.WithValue(ctx, domain.ViewerCtxKey, viewer)
			span.SetAttributes(attribute.Int64("ViewerId", viewer.ID))
		} else {
			span.RecordError(errors.Wrap(err, "invalid viewer header"))
		}

	skipIdentify:
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func (m *ViewerMiddleware) lookup(ctx context.Context, id int64) (domain.Profile, error) {
	key := strconv.FormatInt(id, 10)
	if cached, found := m.cache.Get(key); found {
		return cached.(domain.Profile), nil
	}

	viewer, err := m.profiles.Get(ctx, id)
	if err != nil {
		return domain.Profile{}, err
	}
	m.cache.Set(key, viewer, gocache.DefaultExpiration)
	return viewer, nil
}

// ViewerFrom extracts the resolved viewer, nil when anonymous.
func ViewerFrom(ctx context.Context) *domain.Profile {
	viewer, ok := ctx.Value(domain.ViewerCtxKey).(domain.Profile)
	if !ok {
		return nil
	}
	return &viewer
}
