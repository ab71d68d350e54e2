package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/turbine-power-curve/internal/powercurve"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, ctrl *powercurve.Controller) {
	v1 := app.Group("/api/v1")

	v1.Get("/turbines", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"turbines": ctrl.Catalog(),
		})
	})

	v1.Get("/view", func(c *fiber.Ctx) error {
		return c.JSON(ctrl.View())
	})

	v1.Get("/params", func(c *fiber.Ctx) error {
		return c.JSON(ctrl.Params())
	})

	v1.Put("/params", func(c *fiber.Ctx) error {
		var req paramsQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		dispatched, err := ctrl.UpdateParams(req.apply)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"params":     ctrl.Params(),
			"dispatched": dispatched,
		})
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"dispatched": ctrl.Refresh(),
		})
	})
}

// paramsQuery holds the query parameters of a selection update.
// Omitted parameters keep their current value.
type paramsQuery struct {
	TurbineID int64  `validate:"omitempty,gt=0"`
	Start     string `validate:"omitempty,datetime=2006-01-02"`
	End       string `validate:"omitempty,datetime=2006-01-02"`
}

func (q *paramsQuery) bind(c *fiber.Ctx) error {
	if raw := c.Query("turbine_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return errors.New("turbine_id must be an integer")
		}
		if id == 0 {
			return errors.New("turbine_id must be positive")
		}
		q.TurbineID = id
	}
	q.Start = c.Query("start")
	q.End = c.Query("end")

	if q.TurbineID == 0 && q.Start == "" && q.End == "" {
		return errors.New("at least one of turbine_id, start or end is required")
	}
	return nil
}

// apply overlays the given parameters on the current selection.
func (q paramsQuery) apply(p *powercurve.Params) error {
	if q.TurbineID != 0 {
		p.TurbineID = q.TurbineID
	}
	if q.Start != "" {
		d, err := powercurve.ParseDate(q.Start)
		if err != nil {
			return err
		}
		p.Range.Start = d
	}
	if q.End != "" {
		d, err := powercurve.ParseDate(q.End)
		if err != nil {
			return err
		}
		p.Range.End = d
	}
	return nil
}
