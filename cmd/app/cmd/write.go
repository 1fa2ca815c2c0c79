package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	writeKind    string
	writeAddress uint16
	writeValues  []float64
	writeBits    []bool
)

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Записывает значения на устройство",
	Example: `  modbus-adapter write --kind float --address 100 --values 1.5,2.25
  modbus-adapter write --kind coils --address 0 --bits true,false,true`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(writeValues) == 0 && len(writeBits) == 0 {
			return fmt.Errorf("нужно указать --values или --bits")
		}

		client, err := newClient(cmd)
		if err != nil {
			printError("не удалось создать клиента", err)
			return err
		}
		defer client.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		if err := client.WriteKind(ctx, writeKind, writeAddress, writeValues, writeBits); err != nil {
			printError("запись не выполнена", err)
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Записано: %s @ %d\n", writeKind, writeAddress)
		return nil
	},
}

func init() {
	writeCmd.Flags().StringVar(&writeKind, "kind", "holding", "Вид значения: holding, float, double, uint32, int32, signal, bits, coils")
	writeCmd.Flags().Uint16Var(&writeAddress, "address", 0, "Начальный адрес")
	writeCmd.Flags().Float64SliceVar(&writeValues, "values", nil, "Числовые значения через запятую")
	writeCmd.Flags().BoolSliceVar(&writeBits, "bits", nil, "Флаги через запятую (signal, bits, coils)")
	rootCmd.AddCommand(writeCmd)
}
