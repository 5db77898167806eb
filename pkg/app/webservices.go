package app

import (
	"rf433/pkg/thermopro"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// captureStats are the counters of the pulse capture buffer.
type captureStats struct {
	Pulses    int    `json:"pulses"`
	Capacity  int    `json:"capacity"`
	Overflows uint64 `json:"overflows"`
	Rejected  uint64 `json:"rejected"`
	Drains    uint64 `json:"drains"`
}

// runWebServer starts the applications web server and listens for web requests.
// It's designed to run in a separate go function to not block the main go function,
// see app.Run().
func (app *App) runWebServer() {
	if err := app.web.Listen(app.urlParsed.Host); err != nil {
		debug.ErrorLog.Print(err)
	}
}

// HandleData returns the last valid reading of every sensor.
func (app *App) HandleData() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request data")

		app.readings.Lock()
		data := make(map[string]thermopro.Reading, len(app.readings.data))
		for k, r := range app.readings.data {
			data[k] = r
		}
		app.readings.Unlock()

		return ctx.JSON(data)
	}
}

// HandleStats returns the counters of the capture buffer and the decoder.
func (app *App) HandleStats() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request stats")

		return ctx.JSON(fiber.Map{
			"capture": captureStats{
				Pulses:    app.receiver.Len(),
				Capacity:  app.receiver.Cap(),
				Overflows: app.receiver.Overflows(),
				Rejected:  app.receiver.Rejected(),
				Drains:    app.receiver.Drains(),
			},
			"decoder": app.sensor.Stats(),
		})
	}
}
