package collector

import (
	"context"
	"errors"

	"wsb-sentiment/internal/logger"
	"wsb-sentiment/internal/types"
)

// Source is anything that can produce a collection pass.
type Source interface {
	Collect(ctx context.Context, p Params) (*Result, error)
}

// Service runs the primary source and falls back to the secondary when the
// primary fails outright. Auth failures never fall back: bad credentials
// are an operator problem, and the scrape would hide it.
type Service struct {
	primary  Source
	fallback Source
}

// NewService wires a primary source with an optional fallback.
func NewService(primary, fallback Source) *Service {
	return &Service{primary: primary, fallback: fallback}
}

func (s *Service) Collect(ctx context.Context, p Params) (*Result, error) {
	result, err := s.primary.Collect(ctx, p)
	if err == nil {
		return result, nil
	}

	var authErr *types.AuthError
	if errors.As(err, &authErr) || s.fallback == nil {
		return nil, err
	}

	logger.ErrorWithErr(ctx, "Primary collection failed, falling back to HTML scrape", err)
	return s.fallback.Collect(ctx, p)
}
