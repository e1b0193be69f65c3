package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BytePitApp/bytepit-api/internal/api/middleware"
	"github.com/BytePitApp/bytepit-api/internal/app/service"
	"github.com/BytePitApp/bytepit-api/internal/common"
	"github.com/BytePitApp/bytepit-api/internal/domain/model"
	"github.com/BytePitApp/bytepit-api/internal/platform/logger"
)

const maxMultipartMemory = 32 << 20

// respondError writes the error response and logs server side failures with
// their full detail, which the response body omits.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	if common.HTTPStatusFromError(err) >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}
	common.RespondWithDomainError(w, err)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %v: %w", err, common.ErrBadRequest)
	}
	return nil
}

// actorFromRequest reads the caller placed on the context by the Authenticator.
func actorFromRequest(r *http.Request) (service.Actor, error) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		return service.Actor{}, fmt.Errorf("missing user context: %w", common.ErrUnauthorized)
	}
	role, _ := middleware.GetUserRoleFromContext(r.Context())
	return service.Actor{UserID: userID, Role: role}, nil
}

func parseMultipart(r *http.Request) error {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return fmt.Errorf("invalid multipart form: %v: %w", err, common.ErrBadRequest)
	}
	return nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// formFile returns the content of an optional single-file field. A missing
// field yields nil.
func formFile(r *http.Request, field string) ([]byte, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, nil
	}
	return readFileHeader(headers[0])
}

func testFiles(r *http.Request) ([]model.TestFile, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	var files []model.TestFile
	for _, fh := range r.MultipartForm.File["test_files"] {
		content, err := readFileHeader(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, model.TestFile{Name: fh.Filename, Content: content})
	}
	return files, nil
}

// Optional form values: absent fields stay nil so patches leave them untouched.

func formString(r *http.Request, field string) *string {
	if _, ok := r.MultipartForm.Value[field]; !ok {
		return nil
	}
	v := r.FormValue(field)
	return &v
}

func formBool(r *http.Request, field string) (*bool, error) {
	s := formString(r, field)
	if s == nil {
		return nil, nil
	}
	v, err := strconv.ParseBool(*s)
	if err != nil {
		return nil, fmt.Errorf("%s must be a boolean: %w", field, common.ErrValidation)
	}
	return &v, nil
}

func formFloat(r *http.Request, field string) (*float64, error) {
	s := formString(r, field)
	if s == nil {
		return nil, nil
	}
	v, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number: %w", field, common.ErrValidation)
	}
	return &v, nil
}

func formTime(r *http.Request, field string) (*time.Time, error) {
	s := formString(r, field)
	if s == nil {
		return nil, nil
	}
	v, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC 3339 timestamp: %w", field, common.ErrValidation)
	}
	return &v, nil
}

// formList accepts both repeated fields and a single comma separated value.
func formList(r *http.Request, field string) *[]string {
	raw, ok := r.MultipartForm.Value[field]
	if !ok {
		return nil
	}
	list := []string{}
	for _, v := range raw {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
	}
	return &list
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
