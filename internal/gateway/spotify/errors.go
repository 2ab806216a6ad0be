package spotify

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/based-on-what/Zortify/internal/retry"
	"github.com/zmb3/spotify/v2"
)

// APIError ошибка запроса к Spotify API
type APIError struct {
	Op         string
	Message    string
	Kind       retry.Kind
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (kind=%s, status=%d)", e.Op, e.Message, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (kind=%s)", e.Op, e.Message, e.Kind)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// HTTPStatus возвращает HTTP статус ответа
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// библиотека возвращает ошибку без статуса, если тело ответа пустое
var httpStatusPattern = regexp.MustCompile(`HTTP (\d{3})`)

func statusOf(err error) int {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	var apiErrPtr *spotify.Error
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Status
	}
	if m := httpStatusPattern.FindStringSubmatch(err.Error()); m != nil {
		if status, convErr := strconv.Atoi(m[1]); convErr == nil {
			return status
		}
	}
	return 0
}

// newAPIError оборачивает ошибку библиотеки в APIError
func newAPIError(op string, err error) error {
	if err == nil {
		return nil
	}

	var existing *APIError
	if errors.As(err, &existing) {
		return err
	}

	status := statusOf(err)
	return &APIError{
		Op:         op,
		Message:    err.Error(),
		Kind:       retry.KindOf(status),
		StatusCode: status,
		Err:        err,
	}
}
