package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	modbus "github.com/iwtcode/modbusAdapter"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	host      string
	port      int
	slaveID   uint8
	byteOrder string
	timeout   time.Duration
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "modbus-adapter",
	Short: "Адаптер Modbus TCP",
	Long: `modbus-adapter опрашивает устройство Modbus TCP и публикует значения в Kafka.

Команды:
  serve  - HTTP API, группы опроса и восстановление из БД
  read   - разовое чтение значений
  write  - разовая запись значений`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	defaults := modbus.DefaultConfig()
	rootCmd.PersistentFlags().StringVar(&host, "host", "", "Адрес устройства (по умолчанию MODBUS_HOST)")
	rootCmd.PersistentFlags().IntVar(&port, "port", 0, "Порт устройства (по умолчанию MODBUS_PORT)")
	rootCmd.PersistentFlags().Uint8Var(&slaveID, "slave", 0, "Адрес ведомого (по умолчанию MODBUS_SLAVE_ID)")
	rootCmd.PersistentFlags().StringVar(&byteOrder, "byte-order", "", "Порядок байт ABCD, BADC, CDAB, DCBA")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Общий таймаут команды")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Уровень логирования (по умолчанию LOG_LEVEL, "+defaults.LogLevel+")")
}

// newClient собирает конфигурацию из окружения и флагов.
func newClient(cmd *cobra.Command) (*modbus.Client, error) {
	cfg := modbus.Load()
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = host
	}
	if flags.Changed("port") {
		cfg.Port = port
	}
	if flags.Changed("slave") {
		cfg.SlaveID = slaveID
	}
	if flags.Changed("byte-order") {
		cfg.ByteOrder = byteOrder
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	return modbus.New(cfg)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Ошибка: %s: %v\n", msg, err)
}
