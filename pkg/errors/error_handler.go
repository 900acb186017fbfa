package errors

import (
	stderrors "errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"hls-downloader/pkg/errors/i18n"
)

func HandleError(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	var ae *APIError
	if stderrors.As(err, &ae) {
		// Orijinal hatayı logla (debug için)
		if ae.Err != nil {
			zap.L().Warn("api error", zap.String("code", ae.Code), zap.Error(ae.Err))
		}

		return c.Status(StatusFor(ae.Code)).JSON(fiber.Map{
			"error":   ae.Code,
			"message": ae.Message,
		})
	}

	var fe *fiber.Error
	if stderrors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"error":   CodeInvalidRequest,
			"message": fe.Message,
		})
	}

	// Yakalanmayan hatalar için fallback
	zap.L().Error("unexpected error", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   CodeInternal,
		"message": i18n.T(CodeInternal),
	})
}

func StatusFor(code string) int {
	switch code {
	case CodeTaskNotFound, CodeVariantNotFound:
		return fiber.StatusNotFound
	case CodeInvalidRequest, CodeManifestInvalid:
		return fiber.StatusBadRequest
	case CodeInvalidState:
		return fiber.StatusConflict
	case CodeManifestFetch:
		return fiber.StatusBadGateway
	case CodeNetworkRestricted:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// ToAPIError maps engine errors onto API codes.
func ToAPIError(err error) *APIError {
	var ae *APIError
	switch {
	case err == nil:
		return nil
	case stderrors.As(err, &ae):
		return ae
	case stderrors.Is(err, ErrRecordNotFound):
		return ErrTaskNotFound(err)
	case stderrors.Is(err, ErrInvalidTransition), stderrors.Is(err, ErrTaskExists):
		return ErrInvalidState(err)
	case stderrors.Is(err, ErrNetworkRestricted):
		return ErrNetworkDenied(err)
	case IsPermanent(err):
		return ErrManifestInvalid(err)
	}
	var (
		fe *FetchError
		te *TransientError
	)
	if stderrors.As(err, &fe) || stderrors.As(err, &te) {
		return ErrManifestFetch(err)
	}
	return ErrInternal(err)
}
