package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iwtcode/modbusAdapter/pkg/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigurationFromEnv(t *testing.T) {
	t.Setenv("MODBUS_HOST", "10.1.1.5")
	t.Setenv("MODBUS_PORT", "1502")
	t.Setenv("MODBUS_BYTE_ORDER", "cdab")
	t.Setenv("MODBUS_CONNECT_TIMEOUT", "750ms")
	t.Setenv("MODBUS_IDLE_LIFETIME", "90000")
	t.Setenv("DB_DRIVER", "SQLite")

	cfg, err := LoadConfiguration()
	require.NoError(t, err)

	assert.Equal(t, "10.1.1.5", cfg.Modbus.Host)
	assert.Equal(t, 1502, cfg.Modbus.Port)
	assert.Equal(t, codec.CDAB, cfg.Modbus.Order())
	assert.Equal(t, 750*time.Millisecond, cfg.Modbus.ConnectTimeout)
	assert.Equal(t, 90*time.Second, cfg.Modbus.IdleLifetime)
	assert.Equal(t, 30*time.Second, cfg.Modbus.EvictionPeriod)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadConfigurationRejectsBadByteOrder(t *testing.T) {
	t.Setenv("MODBUS_BYTE_ORDER", "XYZW")

	_, err := LoadConfiguration()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MODBUS_BYTE_ORDER")
}

func TestModbusConfigValidate(t *testing.T) {
	valid := ModbusConfig{Host: "plc", Port: 502, SlaveID: 1, ByteOrder: "ABCD", MaxConnections: 1, MaxConcurrentRequests: 1}
	require.NoError(t, valid.Validate())

	cases := map[string]func(c *ModbusConfig){
		"host":        func(c *ModbusConfig) { c.Host = " " },
		"port":        func(c *ModbusConfig) { c.Port = 0 },
		"slave":       func(c *ModbusConfig) { c.SlaveID = 300 },
		"connections": func(c *ModbusConfig) { c.MaxConnections = 0 },
		"throttle":    func(c *ModbusConfig) { c.MaxConcurrentRequests = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

const groupsYAML = `
groups:
  - id: boiler
    interval: 500ms
    retry_count: 2
    retry_interval: 100ms
    tasks:
      - name: temperature
        kind: FLOAT
        address: 100
        count: 2
      - name: alarms
        kind: bits
        address: 200
`

const groupsTOML = `
[[groups]]
id = "pump"
interval = "1s"
retry_count = 1

  [[groups.tasks]]
  name = "speed"
  kind = "holding"
  address = 10
  count = 4
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadGroupsYAML(t *testing.T) {
	groups, err := LoadGroups(writeFile(t, "groups.yaml", groupsYAML))
	require.NoError(t, err)
	require.Len(t, groups, 1)

	g := groups[0]
	assert.Equal(t, "boiler", g.ID)
	assert.Equal(t, 500*time.Millisecond, g.Interval.Duration)
	assert.Equal(t, 100*time.Millisecond, g.RetryInterval.Duration)
	require.Len(t, g.Tasks, 2)
	assert.Equal(t, "float", g.Tasks[0].Kind)
	assert.Equal(t, uint16(2), g.Tasks[0].Count)
	assert.Equal(t, uint16(1), g.Tasks[1].Count)
}

func TestLoadGroupsTOML(t *testing.T) {
	groups, err := LoadGroups(writeFile(t, "groups.toml", groupsTOML))
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "pump", groups[0].ID)
	assert.Equal(t, time.Second, groups[0].Interval.Duration)
	assert.Equal(t, uint16(4), groups[0].Tasks[0].Count)
	assert.Equal(t, uint16(10), groups[0].Tasks[0].Address)
}

func TestLoadGroupsValidation(t *testing.T) {
	_, err := LoadGroups(writeFile(t, "groups.json", "{}"))
	assert.ErrorContains(t, err, "неподдерживаемый формат")

	bad := "groups:\n  - id: x\n    interval: 1s\n    tasks:\n      - name: t\n        kind: strings\n"
	_, err = LoadGroups(writeFile(t, "bad.yml", bad))
	assert.ErrorContains(t, err, "неизвестный вид")

	dup := "groups:\n  - id: x\n    interval: 1s\n  - id: x\n    interval: 2s\n"
	_, err = LoadGroups(writeFile(t, "dup.yml", dup))
	assert.ErrorContains(t, err, "повторно")

	noInterval := "groups:\n  - id: x\n"
	_, err = LoadGroups(writeFile(t, "zero.yml", noInterval))
	assert.ErrorContains(t, err, "интервал")
}
