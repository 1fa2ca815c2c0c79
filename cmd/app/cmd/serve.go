package cmd

import (
	"github.com/iwtcode/modbusAdapter/internal/app"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запускает HTTP API и группы опроса",
	Long: `Запускает приложение: пул подключений, группы опроса из БД и файла
MODBUS_GROUPS_FILE, публикацию значений и HTTP API на APP_PORT.
Параметры берутся из окружения и .env.`,
	Run: func(cmd *cobra.Command, args []string) {
		app.New().Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
