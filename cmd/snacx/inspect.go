package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/snac-ml/snacx/internal/onnx"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <model.onnx>",
	Short: "Print the structure of an exported model",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	info, err := onnx.GetModelInfo(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("IR version:   %d\n", info.IRVersion)
	fmt.Printf("Opset:        %d\n", info.OpsetVersion)
	fmt.Printf("Producer:     %s %s\n", info.ProducerName, info.ProducerVersion)
	fmt.Printf("Inputs:       %s\n", strings.Join(info.InputNames, ", "))
	fmt.Printf("Outputs:      %s\n", strings.Join(info.OutputNames, ", "))
	fmt.Printf("Nodes:        %d\n", info.NodeCount)
	fmt.Printf("Initializers: %d\n", info.InitializerCount)

	if len(info.OpCounts) > 0 {
		ops := make([]string, 0, len(info.OpCounts))
		for op := range info.OpCounts {
			ops = append(ops, op)
		}
		sort.Strings(ops)
		fmt.Println("Operators:")
		for _, op := range ops {
			fmt.Printf("  %-20s %d\n", op, info.OpCounts[op])
		}
	}

	if len(info.Metadata) > 0 {
		keys := make([]string, 0, len(info.Metadata))
		for k := range info.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Println("Metadata:")
		for _, k := range keys {
			fmt.Printf("  %s: %s\n", k, info.Metadata[k])
		}
	}

	return nil
}
