package cmd

import (
	"github.com/iwtcode/modbusAdapter/internal/domain/models"
	"github.com/spf13/cobra"
)

var (
	readKind    string
	readAddress uint16
	readCount   uint16
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Читает значения с устройства",
	Example: `  modbus-adapter read --kind float --address 100 --count 2
  modbus-adapter read --kind coils --address 0 --count 16 --host 10.0.0.5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			printError("не удалось создать клиента", err)
			return err
		}
		defer client.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		values, err := client.ReadKind(ctx, readKind, readAddress, readCount)
		if err != nil {
			printError("чтение не выполнено", err)
			return err
		}
		return printJSON(models.RegisterReadResponse{
			Status:  "ok",
			Kind:    readKind,
			Address: readAddress,
			Values:  values,
		})
	},
}

func init() {
	readCmd.Flags().StringVar(&readKind, "kind", "holding", "Вид значения: holding, input, float, double, uint32, int32, signal, bits, coils")
	readCmd.Flags().Uint16Var(&readAddress, "address", 0, "Начальный адрес")
	readCmd.Flags().Uint16Var(&readCount, "count", 1, "Количество значений (для bits - регистров)")
	rootCmd.AddCommand(readCmd)
}
