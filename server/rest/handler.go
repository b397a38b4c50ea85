package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/marcopiovanello/trackdl/server/internal/downloaders"
)

const (
	musicDomain  = "music.yandex."
	rutubeDomain = "rutube.ru"

	maxBodySize = 1 << 20
)

type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:  s,
		validate: newValidator(),
		logger:   logger,
	}
}

func (h *Handler) Download() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DownloadRequest
		if !h.decode(w, r, &req) {
			return
		}

		if !strings.Contains(req.URL, musicDomain) {
			writeDetail(w, http.StatusBadRequest, "Only Yandex Music links are supported")
			return
		}

		res, err := h.service.DownloadMusic(r.Context(), req)
		if err != nil {
			h.fail(w, err)
			return
		}

		h.send(w, res)
	}
}

func (h *Handler) DownloadRutube() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RutubeDownloadRequest
		if !h.decode(w, r, &req) {
			return
		}

		if !strings.Contains(req.URL, rutubeDomain) {
			writeDetail(w, http.StatusBadRequest, "Only Rutube links are supported")
			return
		}

		res, err := h.service.DownloadRutube(r.Context(), req)
		if err != nil {
			h.fail(w, err)
			return
		}

		h.send(w, res)
	}
}

func (h *Handler) Version() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := h.service.GetVersion(r.Context())
		if err != nil {
			h.logger.Warn("version lookup failed", slog.String("err", err.Error()))
			writeDetail(w, http.StatusGatewayTimeout, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, v)
	}
}

// decode reads and validates the body into dst, answering 422 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Detail: decodeIssues(err)})
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Detail: validationIssues(err)})
		return false
	}

	return true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.logger.Error("download failed", slog.String("err", err.Error()))
	writeDetail(w, http.StatusInternalServerError, err.Error())
}

func (h *Handler) send(w http.ResponseWriter, res *downloaders.Result) {
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", res.ContentDisposition())
	w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Content)))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, bytes.NewReader(res.Content)); err != nil {
		h.logger.Warn("client went away mid response", slog.String("err", err.Error()))
	}
}

type errorBody struct {
	Detail any `json:"detail"`
}

type Issue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func decodeIssues(err error) []Issue {
	var (
		typeErr *json.UnmarshalTypeError
		sizeErr *http.MaxBytesError
	)

	switch {
	case errors.As(err, &typeErr):
		return []Issue{{
			Loc:  []string{"body", typeErr.Field},
			Msg:  "expected " + typeErr.Type.String(),
			Type: "type_error",
		}}
	case errors.As(err, &sizeErr):
		return []Issue{{
			Loc:  []string{"body"},
			Msg:  "request body too large",
			Type: "value_error",
		}}
	case errors.Is(err, io.EOF):
		return []Issue{{
			Loc:  []string{"body"},
			Msg:  "field required",
			Type: "value_error.missing",
		}}
	default:
		return []Issue{{
			Loc:  []string{"body"},
			Msg:  "invalid JSON: " + err.Error(),
			Type: "value_error.jsondecode",
		}}
	}
}

func validationIssues(err error) []Issue {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []Issue{{Loc: []string{"body"}, Msg: err.Error(), Type: "value_error"}}
	}

	issues := make([]Issue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, Issue{
			Loc:  []string{"body", fe.Field()},
			Msg:  describe(fe),
			Type: "value_error." + fe.Tag(),
		})
	}
	return issues
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "oneof":
		return "value is not one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "eq_preset", "tier":
		return "value is not one of: " + strings.Join(allowed[fe.Tag()], ", ")
	case "gte":
		return "ensure this value is greater than or equal to " + fe.Param()
	case "lte":
		return "ensure this value is less than or equal to " + fe.Param()
	default:
		return "invalid value"
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
