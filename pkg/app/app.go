package app

import (
	"net/url"
	"sync"

	"rf433/pkg/app/config"
	"rf433/pkg/capture"
	"rf433/pkg/emulator"
	"rf433/pkg/mqtt"
	"rf433/pkg/port"
	"rf433/pkg/pulse"
	"rf433/pkg/raspberry"
	"rf433/pkg/thermopro"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Url parameter
	// and makes it easier to get params out of e.g.
	// url: https://0.0.0.0:7844/?minTls=1.2&bodyLimit=50MB
	urlParsed *url.URL

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// line is the receiver line (gpio or emulator)
	line port.Line

	// receiver captures the pulses of the line
	receiver *capture.Receiver

	// sensor decodes the captured pulses to readings
	sensor *thermopro.Handler

	// readings are the last valid readings per sensor
	readings readings

	// mqttData are the last readings sent to the mqtt broker per sensor
	mqttData readings

	// quit stops the polling service
	quit chan struct{}
	// done signals that the polling service is terminated
	done chan struct{}
	// running is true after the services are started
	running bool
	// once guards Close
	once sync.Once

	// restart signals application restart
	restart chan struct{}
	// shutdown signals application shutdown
	shutdown chan struct{}
}

// readings are readings by sensor key.
type readings struct {
	sync.Mutex
	data map[string]thermopro.Reading
}

// New checks the Web server URL and initialize the main app structure
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return &App{}, err
	}

	receiver := capture.NewReceiver(capture.NewBuffer(config.Receiver.Capacity),
		config.Receiver.MinPulse, config.Receiver.MaxPulse)

	sensor := thermopro.New(receiver,
		pulse.Options{
			MinPulses: config.Decoder.MinPulses,
			MinFrame:  config.Decoder.MinFrame,
			MaxFrame:  config.Decoder.MaxFrame,
			Debug:     config.Decoder.Debug,
		},
		thermopro.Decoder{Protocols: thermopro.Protocols, Strict: config.Decoder.Strict})

	return &App{
		config:    config,
		urlParsed: u,

		receiver: receiver,
		sensor:   sensor,
		web:      fiber.New(fiber.Config{DisableStartupMessage: true}),
		mqtt:     mqtt.New(),

		readings: readings{data: map[string]thermopro.Reading{}},
		mqttData: readings{data: map[string]thermopro.Reading{}},
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		restart:  make(chan struct{}),
		shutdown: make(chan struct{}),
	}, err
}

// Run starts the application.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	app.running = true
	go app.mqtt.Service()
	go app.runWebServer()
	go app.service()

	return nil
}

// init initializes the application.
func (app *App) init() (err error) {
	if app.line, err = app.openLine(); err != nil {
		debug.ErrorLog.Printf("can't open receiver line: %v", err)
		return err
	}

	// the capture buffer must be ready before the edges are received
	app.receiver.Run(app.line.Events())
	debug.InfoLog.Printf("starting 433 MHz receiver on %s line %d", app.config.Gpio.Driver, app.config.Gpio.Line)

	if err = app.mqtt.Connect(app.config.MQTT.Connection, mqtt.ClientID(MODULE)); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}

	// initDefaultRoutes should be always called last
	app.initDefaultRoutes()

	return nil
}

// openLine opens the configured receiver line.
func (app *App) openLine() (port.Line, error) {
	c := app.config

	if c.Gpio.Driver == "emulator" {
		l, err := emulator.Open(c.Emulator.Sensors, c.Emulator.Interval, c.Emulator.Jitter)
		if err != nil {
			return nil, err
		}
		return l, nil
	}

	return raspberry.Open(raspberry.Config{
		Driver: c.Gpio.Driver,
		Chip:   c.Gpio.Chip,
		Line:   c.Gpio.Line,
		Bias:   c.Gpio.Bias,
	})
}

// Restart returns the read only restart channel.
// Restart is used to be able to react on application restart. (see cmd/main.go)
func (app *App) Restart() <-chan struct{} {
	return app.restart
}

// Shutdown returns the read only shutdown channel.
// Shutdown is used to be able to react on application shutdown. (see cmd/main.go)
func (app *App) Shutdown() <-chan struct{} {
	return app.shutdown
}

// Close stops the polling service and releases the line, the mqtt connection and the web server.
func (app *App) Close() error {
	app.once.Do(func() {
		if app.running {
			close(app.quit)
			<-app.done
		}

		if app.line != nil {
			_ = app.line.Close()
		}

		if app.receiver != nil {
			_ = app.receiver.Close()
		}

		if app.mqtt != nil {
			_ = app.mqtt.Close()
		}

		if app.web != nil {
			_ = app.web.Shutdown()
		}
	})

	return nil
}
