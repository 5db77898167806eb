package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	name := filepath.Join(t.TempDir(), "rf433.yaml")
	require.NoError(t, os.WriteFile(name, []byte(content), 0o600))
	return name
}

func TestLoadConfig(t *testing.T) {
	c := NewConfig()
	c.Flag.ConfigFile = writeConfig(t, `
gpio:
  driver: emulator
  line: 18
receiver:
  capacity: 400
  minpulse: 1000
  maxpulse: 9000
decoder:
  interval: 1
  minpulses: 38
  minframe: 38
  maxframe: 38
  strict: true
debug:
  file: stdout
  flag: standard
mqtt:
  connection: tcp://127.0.0.1:1883
  interval: 60
  topic: home/rf433
emulator:
  interval: 5
  sensors:
    - protocol: NN
      sync: "101100101101"
      temperature: -1.5
`)
	c.Flag.LogLevel = "debug"

	require.NoError(t, c.LoadConfig())

	require.Equal(t, "emulator", c.Gpio.Driver)
	require.Equal(t, 18, c.Gpio.Line)
	require.Equal(t, "gpiochip0", c.Gpio.Chip)
	require.Equal(t, ReceiverConfig{Capacity: 400, MinPulse: 1000, MaxPulse: 9000}, c.Receiver)
	require.Equal(t, time.Second, c.Decoder.Interval)
	require.Equal(t, 38, c.Decoder.MinPulses)
	require.True(t, c.Decoder.Strict)
	require.Equal(t, time.Minute, c.MQTT.Interval)
	require.Equal(t, 0.5, c.MQTT.DeltaKelvin)
	require.Equal(t, "home/rf433", c.MQTT.Topic)
	require.Equal(t, 5*time.Second, c.Emulator.Interval)
	require.Len(t, c.Emulator.Sensors, 1)
	require.Equal(t, -1.5, c.Emulator.Sensors[0].Temperature)
	require.Equal(t, "debug", c.Log.FlagString)
	require.Equal(t, os.Stdout, c.Log.File)
	require.True(t, c.Webserver.Webservices["stats"])
}

func TestLoadConfigEmptyFile(t *testing.T) {
	c := NewConfig()
	c.Flag.ConfigFile = writeConfig(t, "")

	require.NoError(t, c.LoadConfig())
	require.Equal(t, 2*time.Second, c.Decoder.Interval)
	require.Equal(t, 5*time.Minute, c.MQTT.Interval)
}

func TestLoadConfigErrors(t *testing.T) {
	c := NewConfig()
	c.Flag.ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")
	require.Error(t, c.LoadConfig())

	c = NewConfig()
	c.Flag.ConfigFile = writeConfig(t, "debug:\n  flag: chatty\n")
	require.Error(t, c.LoadConfig())

	c = NewConfig()
	c.Flag.ConfigFile = writeConfig(t, "decoder:\n  interval: 0\n")
	require.Error(t, c.LoadConfig())

	c = NewConfig()
	c.Flag.ConfigFile = writeConfig(t, "gpio: [")
	require.Error(t, c.LoadConfig())
}
