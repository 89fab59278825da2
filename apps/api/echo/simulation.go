package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/scanlab/scanlab/core/simulation"
)

type simulationApi struct {
	svc      *simulation.Service
	validate *validator.Validate
}

func registerSimulationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := simulationApi{
		svc:      deps.SimulationSvc,
		validate: deps.Validate,
	}

	pg := g.Group("/parameters", jwt)
	pg.POST("", api.save, studentMiddleware())
	pg.GET("", api.queryOwn)
	pg.GET("/:ownerId", api.queryByOwner, lecturerMiddleware())
}

// Handlers

// save upserts the caller's parameter record for an image; the owner is
// always the authenticated student, never the request body.
func (api *simulationApi) save(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data simulation.SaveRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveRecord")
	}
	data.OwnerID = claims.Subject

	rec, err := api.svc.Save(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving parameter record")
	}
	return ctx.JSON(http.StatusOK, SaveParametersResponse{
		Message: "Parameters saved successfully",
		Data:    rec,
	})
}

func (api *simulationApi) queryOwn(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	recs, err := api.svc.ListByOwner(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying parameter records")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *simulationApi) queryByOwner(ctx echo.Context) error {
	recs, err := api.svc.ListByOwner(ctx.Request().Context(), ctx.Param("ownerId"))
	if err != nil {
		return errors.Wrap(err, "querying parameter records")
	}
	return ctx.JSON(http.StatusOK, recs)
}

// Requests & Responses

type SaveParametersResponse struct {
	Message string            `json:"message"`
	Data    simulation.Record `json:"data"`
}
