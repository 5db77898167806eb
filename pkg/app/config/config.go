package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"rf433/pkg/emulator"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"
)

// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	Gpio      GpioConfig      `yaml:"gpio"`
	Receiver  ReceiverConfig  `yaml:"receiver"`
	Decoder   DecoderConfig   `yaml:"decoder"`
	Flag      FlagConfig      `yaml:"-"`
	Log       LogConfig       `yaml:"debug"`
	Webserver WebserverConfig `yaml:"webserver"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Emulator  EmulatorConfig  `yaml:"emulator"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	LogLevel   string
	ConfigFile string
}

// GpioConfig defines the receiver line.
type GpioConfig struct {
	// Driver is cdev, gpiomem or emulator.
	Driver string `yaml:"driver"`
	Chip   string `yaml:"chip"`
	Line   int    `yaml:"line"`
	// Bias is pullup, pulldown or none.
	Bias string `yaml:"bias"`
}

// ReceiverConfig defines the pulse capture buffer.
type ReceiverConfig struct {
	Capacity int `yaml:"capacity"`
	// MinPulse and MaxPulse are the plausibility band of a pulse in µs, 0 disables the bound.
	MinPulse uint32 `yaml:"minpulse"`
	MaxPulse uint32 `yaml:"maxpulse"`
}

// DecoderConfig defines the polling and decoding of the captured pulses.
type DecoderConfig struct {
	Interval    time.Duration `yaml:"-"`
	IntervalInt int           `yaml:"interval"`
	MinPulses   int           `yaml:"minpulses"`
	// MinFrame and MaxFrame are the accepted frame lengths (gap included), 0 uses the protocol lengths.
	MinFrame int  `yaml:"minframe"`
	MaxFrame int  `yaml:"maxframe"`
	Strict   bool `yaml:"strict"`
	Debug    bool `yaml:"debug"`
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// MQTTConfig defines the struct of the mqtt client configuration and configuration file
type MQTTConfig struct {
	Connection  string        `yaml:"connection"`
	Interval    time.Duration `yaml:"-"`
	IntervalInt int           `yaml:"interval"`
	DeltaKelvin float64       `yaml:"deltakelvin"`
	Topic       string        `yaml:"topic"`
}

// LogConfig defines the struct of the debug configuration and configuration file
type LogConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

// EmulatorConfig defines the emulated sensors of the emulator driver.
type EmulatorConfig struct {
	Interval    time.Duration     `yaml:"-"`
	IntervalInt int               `yaml:"interval"`
	Jitter      float64           `yaml:"jitter"`
	Sensors     []emulator.Sensor `yaml:"sensors"`
}

func NewConfig() *Config {
	return &Config{
		Gpio: GpioConfig{
			Driver: "cdev",
			Chip:   "gpiochip0",
			Line:   16,
			Bias:   "none",
		},
		Receiver: ReceiverConfig{
			Capacity: 500,
			MinPulse: 100,
			MaxPulse: 10000,
		},
		Decoder: DecoderConfig{
			IntervalInt: 2,
			MinPulses:   32,
		},
		Flag: FlagConfig{},
		Log: LogConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version": true,
				"health":  true,
				"data":    true,
				"stats":   true,
			},
		},
		MQTT: MQTTConfig{
			IntervalInt: 300,
			DeltaKelvin: 0.5,
			Topic:       "rf433",
		},
		Emulator: EmulatorConfig{
			IntervalInt: 10,
			Jitter:      0.05,
			Sensors: []emulator.Sensor{
				{Protocol: "TP", Sync: "1001111001000000", Channel: 1, Temperature: 21.5},
			},
		},
	}
}

func (c *Config) LoadConfig() error {
	if err := c.readConfigFile(); err != nil {
		return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
	}

	if c.Flag.LogLevel != "" {
		c.Log.FlagString = c.Flag.LogLevel
	}
	if err := c.setDebugConfig(); err != nil {
		return fmt.Errorf("unable to open debug file %q: %w", c.Log.FileString, err)
	}

	if c.Decoder.IntervalInt <= 0 {
		return fmt.Errorf("invalid decoder interval %v", c.Decoder.IntervalInt)
	}

	c.Decoder.Interval = time.Duration(c.Decoder.IntervalInt) * time.Second
	c.MQTT.Interval = time.Duration(c.MQTT.IntervalInt) * time.Second
	c.Emulator.Interval = time.Duration(c.Emulator.IntervalInt) * time.Second

	return nil
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil && err != io.EOF {
		return err
	}

	return nil
}

func (c *Config) setDebugConfig() (err error) {
	// defines Debug section of global.Config
	switch c.Log.FlagString {
	case "trace", "full":
		c.Log.Flag = debug.Full
	case "debug":
		c.Log.Flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	case "standard":
		c.Log.Flag = debug.Standard
	default:
		return fmt.Errorf("invalid log level %q", c.Log.FlagString)
	}

	switch c.Log.FileString {
	case "stderr":
		c.Log.File = os.Stderr
	case "stdout":
		c.Log.File = os.Stdout
	default:
		if c.Log.File, err = os.OpenFile(c.Log.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
	}

	return
}
