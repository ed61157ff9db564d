package handler

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/randstring/randstring-go/internal/crypto"
	"github.com/randstring/randstring-go/internal/repository"
	"github.com/randstring/randstring-go/internal/service"
)

func statusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, service.ErrLengthOutOfRange),
		errors.Is(err, service.ErrHistoryIndex),
		errors.Is(err, crypto.ErrUnknownClass):
		return http.StatusBadRequest, true
	case errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, service.ErrGeneratorClosed):
		return http.StatusNotFound, true
	case errors.Is(err, service.ErrNotCopyable):
		return http.StatusConflict, true
	}
	return 0, false
}
