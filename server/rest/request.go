package rest

import (
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/marcopiovanello/trackdl/server/internal/downloaders"
	"github.com/marcopiovanello/trackdl/server/internal/filters"
)

const (
	defaultQuality = "192"
	defaultFormat  = "mp3"
	defaultVolume  = 1.0
	defaultTier    = "best"
)

type DownloadRequest struct {
	URL      string   `json:"url" validate:"required"`
	Cookies  string   `json:"cookies,omitempty"`
	Quality  string   `json:"quality,omitempty" validate:"omitempty,oneof=64 96 128 160 192 256 320"`
	Format   string   `json:"format,omitempty" validate:"omitempty,oneof=mp3 aac flac wav opus m4a"`
	EqPreset string   `json:"eq_preset,omitempty" validate:"omitempty,eq_preset"`
	Volume   *float64 `json:"volume,omitempty" validate:"omitempty,gte=0.1,lte=5"`
	Trim     string   `json:"trim,omitempty"`
}

// Music fills in defaults for everything the caller left out.
func (r DownloadRequest) Music() downloaders.MusicRequest {
	req := downloaders.MusicRequest{
		URL:      r.URL,
		Cookies:  r.Cookies,
		Quality:  r.Quality,
		Format:   r.Format,
		EqPreset: r.EqPreset,
		Volume:   defaultVolume,
		Trim:     r.Trim,
	}

	if req.Quality == "" {
		req.Quality = defaultQuality
	}
	if req.Format == "" {
		req.Format = defaultFormat
	}
	if r.Volume != nil {
		req.Volume = *r.Volume
	}

	return req
}

type RutubeDownloadRequest struct {
	URL     string `json:"url" validate:"required"`
	Format  string `json:"format" validate:"required,oneof=mp3 mp4"`
	Quality string `json:"quality,omitempty" validate:"omitempty,tier"`
}

func (r RutubeDownloadRequest) Rutube() downloaders.RutubeRequest {
	req := downloaders.RutubeRequest{
		URL:     r.URL,
		Format:  r.Format,
		Quality: r.Quality,
	}
	if req.Quality == "" {
		req.Quality = defaultTier
	}
	return req
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	for tag, values := range allowed {
		v.RegisterValidation(tag, oneOf(values))
	}

	return v
}

// Enumerations owned by the pipelines, registered as validation tags.
var allowed = map[string][]string{
	"eq_preset": filters.Presets(),
	"tier":      downloaders.Tiers(),
}

func oneOf(values []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return slices.Contains(values, fl.Field().String())
	}
}
