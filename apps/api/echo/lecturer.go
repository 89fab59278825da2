package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/scanlab/scanlab/core/notification"
	"github.com/scanlab/scanlab/core/simulation"
)

type lecturerApi struct {
	simulationSvc   *simulation.Service
	notificationSvc *notification.Service
	validate        *validator.Validate
}

func registerLecturerAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := lecturerApi{
		simulationSvc:   deps.SimulationSvc,
		notificationSvc: deps.NotificationSvc,
		validate:        deps.Validate,
	}

	lg := g.Group("/lecturer", jwt, lecturerMiddleware())
	lg.GET("/students", api.queryStudentSubmissions)
	lg.POST("/comments", api.sendFeedback)
}

// Handlers

func (api *lecturerApi) queryStudentSubmissions(ctx echo.Context) error {
	subs, err := api.simulationSvc.ListSubmissions(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying student submissions")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *lecturerApi) sendFeedback(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data notification.NewNotification
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotification")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, err := api.notificationSvc.Notify(ctx.Request().Context(), claims.Subject, data); err != nil {
		return errors.Wrap(err, "sending feedback")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Comment and mark sent successfully"})
}

// Requests & Responses

type MessageResponse struct {
	Message string `json:"message"`
}
