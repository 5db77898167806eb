package app

import (
	"errors"
	"math"
	"strconv"
	"time"

	"rf433/pkg/pulse"
	"rf433/pkg/thermopro"

	"github.com/womat/debug"
)

// service polls the capture buffer every decoder interval until Close is called.
func (app *App) service() {
	defer close(app.done)

	ticker := time.NewTicker(app.config.Decoder.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-app.quit:
			return
		case <-ticker.C:
			app.poll()
		}
	}
}

// poll decodes the captured pulses. A valid reading is saved to the app main structure
// and sent to the mqtt broker. Failed decodings are just logged, the next poll gets new pulses.
func (app *App) poll() {
	r, err := app.sensor.Get()

	switch {
	case err == nil:
		debug.InfoLog.Printf("%s: %v", r.Time.Format("15:04:05"), r)

		app.readings.Lock()
		app.readings.data[r.Key()] = r
		app.readings.Unlock()

		app.validateMeasurements(r)
	case errors.Is(err, pulse.ErrInsufficientData):
		debug.TraceLog.Printf("waiting for pulses (%d captured)", app.receiver.Len())
	default:
		debug.DebugLog.Printf("no data: %v", err)
	}
}

// validateMeasurements checks the reading by deltaT and deltaK
// and sends the reading to mqtt if a delta value is exceeded or the sensor wasn't sent before.
func (app *App) validateMeasurements(r thermopro.Reading) {
	app.mqttData.Lock()
	defer app.mqttData.Unlock()

	if m, ok := app.mqttData.data[r.Key()]; ok &&
		r.Time.Sub(m.Time) < app.config.MQTT.Interval &&
		math.Abs(r.Temperature-m.Temperature) < app.config.MQTT.DeltaKelvin {
		return
	}

	if app.sendMQTT(topic(app.config.MQTT.Topic, r), r) {
		app.mqttData.data[r.Key()] = r
	}
}

// sendMQTT send the reading to the mqtt broker.
// It's called from the polling service only, so channel C is open.
// A dropped message returns false and is sent with the next reading.
func (app *App) sendMQTT(topic string, r thermopro.Reading) bool {
	debug.TraceLog.Printf("prepare mqtt message %v %v", topic, r)

	if err := app.mqtt.Send(topic, r); err != nil {
		debug.ErrorLog.Printf("sendMQTT: %v", err)
		return false
	}
	return true
}

// topic returns the mqtt topic of a reading: <base>/<protocol>[/<channel>]
func topic(base string, r thermopro.Reading) string {
	t := base + "/" + r.Protocol
	if r.Channel != thermopro.NoChannel {
		t += "/" + strconv.Itoa(r.Channel)
	}
	return t
}
