package store

import (
	"context"
	"errors"

	"grc-isms/internal/apperr"
)

func latestID[T any](ctx context.Context, repo Repo[T], id func(*T) string) (string, error) {
	v, err := repo.Latest(ctx)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id(v), nil
}
