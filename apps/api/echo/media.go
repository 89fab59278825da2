package echoapi

import (
	"encoding/json"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/scanlab/scanlab/core"
	"github.com/scanlab/scanlab/core/media"
)

type mediaApi struct {
	svc *media.Service
}

func registerMediaAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := mediaApi{svc: deps.MediaSvc}

	mg := g.Group("/media", jwt)
	mg.GET("", api.query)
	mg.GET("/:id", api.retrieve)
	mg.GET("/:id/file", api.download)
	mg.POST("", api.upload, adminMiddleware())
	mg.DELETE("/:id", api.destroy, adminMiddleware())
}

// Handlers

func (api *mediaApi) query(ctx echo.Context) error {
	var (
		medias []media.Media
		err    error
	)
	if category := ctx.QueryParam("category"); category != "" {
		medias, err = api.svc.QueryByCategory(ctx.Request().Context(), category)
	} else {
		medias, err = api.svc.QueryAll(ctx.Request().Context())
	}
	if err != nil {
		return errors.Wrap(err, "querying media")
	}
	if mediaType := ctx.QueryParam("mediaType"); mediaType != "" {
		filtered := make([]media.Media, 0, len(medias))
		for _, m := range medias {
			if m.MediaType == mediaType {
				filtered = append(filtered, m)
			}
		}
		medias = filtered
	}
	if medias == nil {
		medias = []media.Media{}
	}
	return ctx.JSON(http.StatusOK, medias)
}

func (api *mediaApi) retrieve(ctx echo.Context) error {
	m, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding media by ID")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *mediaApi) download(ctx echo.Context) error {
	m, rc, err := api.svc.Download(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "downloading media file")
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(filepath.Ext(m.Filename))
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	return ctx.Stream(http.StatusOK, contentType, rc)
}

// upload stores a teaching asset: metadata comes in as multipart form
// fields, the file as the "file" part.
func (api *mediaApi) upload(ctx echo.Context) error {
	nm := media.NewMedia{
		Name:      ctx.FormValue("name"),
		Category:  ctx.FormValue("category"),
		MediaType: ctx.FormValue("mediaType"),
	}
	if desc := ctx.FormValue("description"); desc != "" {
		nm.Description = null.StringFrom(desc)
	}
	if params := ctx.FormValue("parameters"); params != "" {
		if err := json.Unmarshal([]byte(params), &nm.Parameters); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "parameters", Error: "invalid parameters payload"})
		}
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	contentType := fh.Header.Get(echo.HeaderContentType)
	m, err := api.svc.Upload(ctx.Request().Context(), nm, fh.Filename, contentType, fh.Size, f)
	if err != nil {
		return errors.Wrap(err, "uploading media")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *mediaApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting media")
	}
	return ctx.NoContent(http.StatusNoContent)
}
