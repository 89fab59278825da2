package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/scanlab/scanlab/core/assistant"
)

type assistantApi struct {
	svc      *assistant.Service
	validate *validator.Validate
}

func registerAssistantAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := assistantApi{
		svc:      deps.AssistantSvc,
		validate: deps.Validate,
	}

	ag := g.Group("/assistant", jwt)
	ag.POST("/chat", api.chat)
}

// Handlers

func (api *assistantApi) chat(ctx echo.Context) error {
	var data assistant.Question
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Question")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.Advise(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "generating advice")
	}
	return ctx.JSON(http.StatusOK, res)
}
