package app

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// HandleHealth returns data about the health of myself.
// output example:
//
//	{"NumGoroutines":11,"NumCPU":4,"HeapAllocatedMB":3,"SysMemoryMB":12,"Version":"1.0.0+20261001",
//	 "ProgLang":"go1.21.0","HostName":"pi","Time":"2026-10-19T10:00:00Z","Decoded":12,"LastReading":"2026-10-19T09:59:10Z"}
func (app *App) HandleHealth() fiber.Handler {
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}

	host, _ := os.Hostname()

	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request health")

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		var last time.Time
		app.readings.Lock()
		for _, r := range app.readings.data {
			if r.Time.After(last) {
				last = r.Time
			}
		}
		app.readings.Unlock()

		healthData := struct {
			NumGoroutines   int
			NumCPU          int
			HeapAllocatedMB uint64
			SysMemoryMB     uint64
			Version         string
			ProgLang        string
			HostName        string
			Time            string
			Decoded         uint64
			LastReading     *time.Time `json:",omitempty"`
		}{
			NumGoroutines:   runtime.NumGoroutine(),
			NumCPU:          runtime.NumCPU(),
			HeapAllocatedMB: bToMb(m.Alloc),
			SysMemoryMB:     bToMb(m.Sys),
			ProgLang:        runtime.Version(),
			Version:         VERSION,
			HostName:        host,
			Time:            time.Now().Format(time.RFC3339),
			Decoded:         app.sensor.Stats().Decoded,
		}
		if !last.IsZero() {
			healthData.LastReading = &last
		}

		ctx.Status(http.StatusOK)
		return ctx.JSON(healthData)
	}
}
