// @title Modbus Adapter API
// @version 1.0.0
// @description API для опроса устройств Modbus TCP и отправки данных в Kafka.
// @host localhost:8082
// @BasePath /api/v1
package main

import (
	"os"

	"github.com/iwtcode/modbusAdapter/cmd/app/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
